package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for selector_requests_total.
const (
	StatusOK    = "ok"
	StatusError = "error"

	SourceCache    = "cache"
	SourceFresh    = "fresh"
	SourceDegraded = "degraded"
)

// Version is the build version stamped into selector_build_info.
// Overridden at link time via -ldflags.
var Version = "dev"

// Metrics holds the process-wide metric instruments. All instruments are
// registered at construction so a zero-traffic scrape still emits every
// metric family with HELP/TYPE lines and zero-valued samples.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	CacheEntries    prometheus.Gauge
	CacheTTLSeconds prometheus.Gauge
	CacheEvictions  prometheus.Counter
	DBErrors        prometheus.Counter
	BuildInfo       *prometheus.GaugeVec
	Executions      *prometheus.CounterVec
}

// NewMetrics creates and registers the engine's metric instruments on a
// fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "selector_requests_total",
			Help: "Total selector requests by status and source.",
		}, []string{"status", "source"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "selector_request_duration_seconds",
			Help:    "Selector request duration in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "selector_cache_entries",
			Help: "Current number of entries in the selector cache.",
		}),
		CacheTTLSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "selector_cache_ttl_seconds",
			Help: "Configured selector cache TTL in seconds.",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selector_cache_evictions_total",
			Help: "Total selector cache evictions (TTL expiry and capacity pressure).",
		}),
		DBErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selector_db_errors_total",
			Help: "Total candidate-source failures absorbed by degraded mode.",
		}),
		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "selector_build_info",
			Help: "Build information. Constant 1 labeled by version.",
		}, []string{"version"}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runner_executions_total",
			Help: "Total tool executions by terminal status.",
		}, []string{"status"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.CacheEntries,
		m.CacheTTLSeconds,
		m.CacheEvictions,
		m.DBErrors,
		m.BuildInfo,
		m.Executions,
	)

	// Pre-populate labeled families so they appear before first use.
	for _, status := range []string{StatusOK, StatusError} {
		for _, source := range []string{SourceCache, SourceFresh, SourceDegraded} {
			m.RequestsTotal.WithLabelValues(status, source)
		}
	}
	m.Executions.WithLabelValues("success")
	m.Executions.WithLabelValues("failure")
	m.BuildInfo.WithLabelValues(Version).Set(1)

	return m
}

// Handler returns the Prometheus text exposition handler for this metric
// set. Scrapes never fail: collection errors degrade to partial output.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
