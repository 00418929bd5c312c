package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/opsconductor/toolengine/internal/catalog"
	"github.com/opsconductor/toolengine/internal/config"
	"github.com/opsconductor/toolengine/internal/observability"
	"github.com/opsconductor/toolengine/internal/types"
)

// ErrorKind classifies a failed execution in Result.ErrorKind. Failures
// are data returned to callers, never errors crossing the boundary.
const (
	ErrorKindUnknownTool         = "unknown_tool"
	ErrorKindInvalidParameters   = "invalid_parameters"
	ErrorKindUnsupportedPlatform = "unsupported_platform"
	ErrorKindTimeout             = "timeout"
	ErrorKindExecutionError      = "execution_error"
)

// truncationMarker is appended to capped output streams.
const truncationMarker = "\n...[output truncated]"

// Request describes one tool invocation.
type Request struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	TraceID    types.TraceID  `json:"trace_id,omitempty"`
	Target     string         `json:"target,omitempty"`
	// Timeout overrides the default execution timeout. Values above the
	// configured hard ceiling are clamped.
	Timeout time.Duration `json:"-"`
}

// Result is the structured outcome of one tool invocation. Output and
// Error never contain substrings matching the configured secret patterns.
type Result struct {
	Success    bool          `json:"success"`
	Output     string        `json:"output,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	ExitCode   int           `json:"exit_code"`
	DurationMS int64         `json:"duration_ms"`
	TraceID    types.TraceID `json:"trace_id"`
}

// Runner executes one tool safely under timeout, output-size, and
// redaction constraints.
type Runner struct {
	registry *catalog.Registry
	cfg      config.RunnerConfig
	metrics  *observability.Metrics
	logger   *slog.Logger
	redactor *redactor
	platform types.Platform
}

// New creates a Runner resolving specs from registry.
func New(registry *catalog.Registry, cfg config.RunnerConfig, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		redactor: newRedactor(cfg.SecretPatterns),
		platform: hostPlatform(),
	}
}

// hostPlatform maps the runtime OS onto a catalog platform value.
func hostPlatform() types.Platform {
	switch runtime.GOOS {
	case "windows":
		return types.PlatformWindows
	case "darwin":
		return types.PlatformDarwin
	default:
		return types.PlatformLinux
	}
}

// Execute runs the requested tool and returns a structured result. All
// failure modes (unknown tool, invalid parameters, platform mismatch,
// timeout, runtime fault) are reported as data in the result.
func (r *Runner) Execute(ctx context.Context, req Request) Result {
	start := time.Now()
	traceID := req.TraceID.OrNew()

	fail := func(kind, message string) Result {
		r.metrics.Executions.WithLabelValues("failure").Inc()
		r.logger.Warn("tool execution failed",
			"trace_id", traceID.String(),
			"tool", req.ToolName,
			"error_kind", kind,
			"error", message)
		return Result{
			Success:    false,
			Error:      message,
			ErrorKind:  kind,
			ExitCode:   -1,
			DurationMS: time.Since(start).Milliseconds(),
			TraceID:    traceID,
		}
	}

	spec, err := r.registry.Get(req.ToolName)
	if err != nil {
		return fail(ErrorKindUnknownTool, fmt.Sprintf("unknown tool %q", req.ToolName))
	}

	if !spec.Platform.Matches(r.platform) {
		return fail(ErrorKindUnsupportedPlatform,
			fmt.Sprintf("tool %q requires platform %s, host is %s", spec.Name, spec.Platform, r.platform))
	}

	values, secrets, err := r.resolveParameters(spec, req.Parameters)
	if err != nil {
		return fail(ErrorKindInvalidParameters, err.Error())
	}

	argv, err := renderCommand(spec.CommandTemplate, values)
	if err != nil {
		return fail(ErrorKindInvalidParameters, err.Error())
	}

	timeout := r.resolveTimeout(req.Timeout, spec)
	scrub := r.redactor.withLiterals(secrets)

	result := r.run(ctx, argv, timeout, scrub)
	result.TraceID = traceID
	result.DurationMS = time.Since(start).Milliseconds()

	if result.Success {
		r.metrics.Executions.WithLabelValues("success").Inc()
	} else {
		r.metrics.Executions.WithLabelValues("failure").Inc()
	}

	r.logger.Info("tool execution completed",
		"trace_id", traceID.String(),
		"tool", spec.Name,
		"success", result.Success,
		"exit_code", result.ExitCode,
		"duration_ms", result.DurationMS)

	return result
}

// resolveParameters validates the request parameters against the spec's
// declared descriptors, applies defaults, and collects secret values for
// redaction. Unknown parameters are rejected.
func (r *Runner) resolveParameters(spec types.ToolSpec, params map[string]any) (map[string]string, []string, error) {
	values := make(map[string]string, len(spec.Parameters))
	var secrets []string

	for name := range params {
		if _, ok := spec.Parameter(name); !ok {
			return nil, nil, fmt.Errorf("unknown parameter %q for tool %q", name, spec.Name)
		}
	}

	for _, p := range spec.Parameters {
		raw, provided := params[p.Name]

		if !provided {
			if p.Required && p.Default == "" {
				return nil, nil, fmt.Errorf("missing required parameter %q", p.Name)
			}
			if p.Default == "" {
				continue
			}
			raw = p.Default
		}

		value, err := p.CoerceAndValidate(raw)
		if err != nil {
			return nil, nil, err
		}

		values[p.Name] = value
		if p.Secret {
			secrets = append(secrets, value)
		}
	}

	return values, secrets, nil
}

// resolveTimeout picks the effective deadline: explicit request value,
// else the spec's time estimate, else the configured default. The hard
// ceiling clamps all three.
func (r *Runner) resolveTimeout(requested time.Duration, spec types.ToolSpec) time.Duration {
	timeout := requested
	if timeout <= 0 && spec.TimeEstimateMS > 0 {
		timeout = time.Duration(spec.TimeEstimateMS) * time.Millisecond
	}
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}
	if timeout > r.cfg.MaxTimeout {
		timeout = r.cfg.MaxTimeout
	}
	return timeout
}

// run executes argv in its own process group with a wall-clock timeout.
// On timeout the whole group is killed with SIGKILL so no orphaned
// children survive the deadline.
func (r *Runner) run(ctx context.Context, argv []string, timeout time.Duration, scrub *redactor) Result {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Negative pid addresses the process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	stdout := newCappedBuffer(r.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(r.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	execErr := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		return Result{
			Success:   false,
			Output:    scrub.scrub(stdout.String()),
			Error:     fmt.Sprintf("timeout after %v", timeout),
			ErrorKind: ErrorKindTimeout,
			ExitCode:  -1,
		}
	}

	result := Result{
		Output: scrub.scrub(stdout.String()),
	}

	if execErr != nil {
		errText := scrub.scrub(strings.TrimSpace(stderr.String()))
		if exitErr, ok := execErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			if errText == "" {
				errText = fmt.Sprintf("exited with code %d", result.ExitCode)
			}
		} else {
			result.ExitCode = -1
			errText = scrub.scrub(execErr.Error())
		}
		result.Error = errText
		result.ErrorKind = ErrorKindExecutionError
		return result
	}

	result.Success = true
	result.ExitCode = 0
	if errText := scrub.scrub(strings.TrimSpace(stderr.String())); errText != "" {
		result.Error = errText
	}
	return result
}

// cappedBuffer captures a stream up to a byte limit, then discards the
// rest and marks the capture as truncated.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

// Write implements io.Writer. It always reports the full length as written
// so the child process never sees a pipe error from capping.
func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.max - b.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}

	return len(p), nil
}

// String returns the captured text with a truncation marker when capped.
func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return b.buf.String() + truncationMarker
	}
	return b.buf.String()
}
