package selector

import (
	"context"
	"log/slog"
	"time"

	"github.com/opsconductor/toolengine/internal/config"
	"github.com/opsconductor/toolengine/internal/observability"
	"github.com/opsconductor/toolengine/internal/types"
)

// Result is the outcome of one selection call.
type Result struct {
	Query      string   `json:"query"`
	K          int      `json:"k"`
	Platforms  []string `json:"platforms,omitempty"`
	Results    []string `json:"results"`
	FromCache  bool     `json:"from_cache"`
	DurationMS int64    `json:"duration_ms"`
}

// Selector turns a free-text intent into a bounded, deduplicated,
// cache-aware ordered candidate list. Candidate-source failures degrade to
// the always-include list and are never surfaced to the caller.
type Selector struct {
	source        CandidateSource
	cache         *resultCache
	alwaysInclude []string
	queryLimit    int
	maxK          int
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// New creates a Selector. The candidate source is constructor-injected so
// callers depend on the capability, not a concrete search backend.
func New(source CandidateSource, cfg config.SelectorConfig, metrics *observability.Metrics, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Selector{
		source:        source,
		alwaysInclude: append([]string(nil), cfg.AlwaysInclude...),
		queryLimit:    cfg.QueryLimit,
		maxK:          cfg.MaxK,
		metrics:       metrics,
		logger:        logger,
	}
	s.cache = newResultCache(cfg.CacheTTL, cfg.CacheMaxSize, func() {
		metrics.CacheEvictions.Inc()
	})

	metrics.CacheTTLSeconds.Set(cfg.CacheTTL.Seconds())

	return s
}

// Select produces at most k candidate tool names for the intent, ordered
// always-include first (in configured order) then retrieval order with
// first-occurrence dedup. It never returns an error: source failures fall
// back to the always-include list alone.
func (s *Selector) Select(ctx context.Context, traceID types.TraceID, query string, k int, platforms []string) Result {
	start := time.Now()
	traceID = traceID.OrNew()

	if k < 0 {
		k = 0
	}
	if s.maxK > 0 && k > s.maxK {
		k = s.maxK
	}

	result := Result{
		Query:     query,
		K:         k,
		Platforms: platforms,
	}

	key := cacheKey(query, k, platforms)
	if cached, ok := s.cache.get(key); ok {
		result.Results = cached
		result.FromCache = true
		result.DurationMS = time.Since(start).Milliseconds()

		s.metrics.RequestsTotal.WithLabelValues(observability.StatusOK, observability.SourceCache).Inc()
		s.metrics.RequestDuration.Observe(time.Since(start).Seconds())
		s.metrics.CacheEntries.Set(float64(s.cache.len()))
		s.logSelection(traceID, k, result.Results, observability.SourceCache)
		return result
	}

	source := observability.SourceFresh
	candidates, err := s.source.Candidates(ctx, query, s.queryLimit)
	if err != nil {
		// Graceful degradation: the always-include list still serves.
		source = observability.SourceDegraded
		candidates = nil
		s.metrics.DBErrors.Inc()
		s.logger.Warn("candidate source failed, serving degraded selection",
			"trace_id", traceID.String(),
			"error", err)
	}

	names := s.merge(candidates, k)
	result.Results = names
	result.DurationMS = time.Since(start).Milliseconds()

	if source == observability.SourceFresh {
		s.cache.put(key, names)
	}

	s.metrics.RequestsTotal.WithLabelValues(observability.StatusOK, source).Inc()
	s.metrics.RequestDuration.Observe(time.Since(start).Seconds())
	s.metrics.CacheEntries.Set(float64(s.cache.len()))
	s.logSelection(traceID, k, names, source)

	return result
}

// merge prepends the always-include policy list ahead of retrieved
// candidates, deduplicates by first occurrence, and truncates to k.
// This is a stable, order-preserving dedup, not a re-sort by score.
func (s *Selector) merge(candidates []Candidate, k int) []string {
	seen := make(map[string]bool)
	merged := make([]string, 0, k)

	appendName := func(name string) {
		if name == "" || seen[name] || len(merged) >= k {
			return
		}
		seen[name] = true
		merged = append(merged, name)
	}

	for _, name := range s.alwaysInclude {
		appendName(name)
	}
	for _, c := range candidates {
		appendName(c.ToolName)
	}

	return merged
}

// logSelection emits the one structured event per call used for downstream
// audit correlation.
func (s *Selector) logSelection(traceID types.TraceID, k int, names []string, source string) {
	s.logger.Info("tool selection completed",
		"trace_id", traceID.String(),
		"k_requested", k,
		"k_returned", len(names),
		"tool_names", names,
		"source", source)
}

// CacheLen returns the current cache entry count.
func (s *Selector) CacheLen() int {
	return s.cache.len()
}

// PurgeExpired removes expired cache entries, returning the count removed.
// Called periodically by the daemon so TTL expiry shows up in the eviction
// counter even without read traffic.
func (s *Selector) PurgeExpired() int {
	removed := s.cache.purgeExpired()
	s.metrics.CacheEntries.Set(float64(s.cache.len()))
	return removed
}
