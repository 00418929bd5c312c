package observability

import (
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeyPattern matches attribute keys whose values must never reach
// log output verbatim.
var sensitiveKeyPattern = regexp.MustCompile(`(?i)(password|passwd|secret|token|api[_-]?key|credential)`)

// RedactionMarker replaces sensitive values in logs and execution output.
const RedactionMarker = "[REDACTED]"

// NewLogger builds the process logger from configuration. Format is "json"
// or "text"; level is one of debug/info/warn/error. Attribute values under
// sensitive keys are redacted by the handler, so call sites don't need to
// remember which fields are secrets.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redactSensitive,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactSensitive is a slog ReplaceAttr hook that masks values stored under
// credential-shaped keys.
func redactSensitive(groups []string, a slog.Attr) slog.Attr {
	if sensitiveKeyPattern.MatchString(a.Key) {
		return slog.String(a.Key, RedactionMarker)
	}
	return a
}
