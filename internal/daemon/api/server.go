package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsconductor/toolengine/internal/audit"
	"github.com/opsconductor/toolengine/internal/catalog"
	"github.com/opsconductor/toolengine/internal/config"
	"github.com/opsconductor/toolengine/internal/observability"
	"github.com/opsconductor/toolengine/internal/runner"
	"github.com/opsconductor/toolengine/internal/selector"
	"github.com/opsconductor/toolengine/internal/types"
)

// authHeader carries the shared secret for internal audit endpoints.
const authHeader = "X-Internal-Auth"

// Server is the engine's HTTP surface: selector search, tool execution,
// metrics exposition, audit ingest and health.
type Server struct {
	cfg      config.Config
	registry *catalog.Registry
	selector *selector.Selector
	runner   *runner.Runner
	sink     *audit.Sink
	metrics  *observability.Metrics
	logger   *slog.Logger
	http     *http.Server
}

// NewServer wires the engine components into an HTTP server.
func NewServer(
	cfg config.Config,
	registry *catalog.Registry,
	sel *selector.Selector,
	run *runner.Runner,
	sink *audit.Sink,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		registry: registry,
		selector: sel,
		runner:   run,
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/selector/search", s.handleSearch)
	mux.HandleFunc("POST /api/tools/execute", s.handleExecute)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /audit/ai-query", s.handleAuditIngest)
	mux.HandleFunc("GET /audit/health", s.handleAuditHealth)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the root handler for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves HTTP until ctx is cancelled, then drains connections within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// handleSearch serves GET /api/selector/search?query=&k=&platform=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("query")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	k := s.cfg.Selector.DefaultK
	if raw := q.Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "k must be a non-negative integer")
			return
		}
		k = parsed
	}

	var platforms []string
	for _, raw := range q["platform"] {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				platforms = append(platforms, p)
			}
		}
	}

	traceID := types.TraceID(r.Header.Get("X-Trace-Id")).OrNew()
	result := s.selector.Select(r.Context(), traceID, query, k, platforms)

	s.sink.Enqueue(types.NewAuditRecord(traceID, userID(r), types.AuditEventSelection, map[string]any{
		"query":      result.Query,
		"k":          result.K,
		"results":    result.Results,
		"from_cache": result.FromCache,
	}))

	writeJSON(w, http.StatusOK, result)
}

// executeRequest is the POST /api/tools/execute payload.
type executeRequest struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	TraceID    string         `json:"trace_id,omitempty"`
	Target     string         `json:"target,omitempty"`
	TimeoutMS  int64          `json:"timeout_ms,omitempty"`
}

// handleExecute runs one tool invocation. Execution failures are part of
// the 200 response body; only malformed requests get a 4xx.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ToolName == "" {
		writeError(w, http.StatusBadRequest, "tool_name is required")
		return
	}

	traceID := types.TraceID(req.TraceID).OrNew()
	result := s.runner.Execute(r.Context(), runner.Request{
		ToolName:   req.ToolName,
		Parameters: req.Parameters,
		TraceID:    traceID,
		Target:     req.Target,
		Timeout:    time.Duration(req.TimeoutMS) * time.Millisecond,
	})

	s.sink.Enqueue(types.NewAuditRecord(traceID, userID(r), types.AuditEventExecution, map[string]any{
		"tool_name":   req.ToolName,
		"success":     result.Success,
		"error_kind":  result.ErrorKind,
		"exit_code":   result.ExitCode,
		"duration_ms": result.DurationMS,
	}))

	writeJSON(w, http.StatusOK, result)
}

// auditIngestRequest is the POST /audit/ai-query payload.
type auditIngestRequest struct {
	TraceID   string         `json:"trace_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// auditIngestResponse acknowledges a queued (not yet processed) write.
type auditIngestResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	RecordID string `json:"record_id"`
}

// handleAuditIngest accepts an audit record for asynchronous persistence.
// The response is always 202 Accepted for authorized well-formed requests:
// the write is queued, not done. A full queue yields 202 with a degraded
// status because audit loss must never fail the caller's operation.
func (s *Server) handleAuditIngest(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "missing or invalid internal auth header")
		return
	}

	var req auditIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	eventType := types.AuditEventType(req.EventType)
	if !eventType.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid event_type %q", req.EventType))
		return
	}

	record := types.NewAuditRecord(types.TraceID(req.TraceID), req.UserID, eventType, req.Payload)

	resp := auditIngestResponse{RecordID: record.ID}
	if s.sink.Enqueue(record) {
		resp.Status = "accepted"
		resp.Message = "audit record queued"
	} else {
		resp.Status = "degraded"
		resp.Message = "audit record dropped (queue unavailable)"
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// handleAuditHealth serves GET /audit/health.
func (s *Server) handleAuditHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sink.Health())
}

// handleHealthz reports overall component health.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	registryHealth := s.registry.Health(r.Context())
	auditHealth := s.sink.Health()

	status := http.StatusOK
	overall := types.HealthStateHealthy
	switch {
	case registryHealth.State == types.HealthStateUnhealthy:
		overall = types.HealthStateUnhealthy
		status = http.StatusServiceUnavailable
	case auditHealth.Status != types.HealthStateHealthy:
		overall = types.HealthStateDegraded
	}

	writeJSON(w, status, map[string]any{
		"status":   overall,
		"registry": registryHealth,
		"audit":    auditHealth,
	})
}

// authorized checks the shared-secret header unless auth is disabled.
func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.Audit.AuthDisabled {
		return true
	}
	provided := r.Header.Get(authHeader)
	if provided == "" || s.cfg.Audit.SharedSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.Audit.SharedSecret)) == 1
}

// userID extracts the acting user from headers; empty when anonymous.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
