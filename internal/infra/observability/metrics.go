package observability

import (
	"time"

	"github.com/dealerops/console-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the console API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	syncRuns        *prometheus.CounterVec
	rollupRuns      *prometheus.CounterVec
	bulkLinkRows    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		syncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_custom_value_syncs_total",
				Help: "Total custom-value sync runs by status.",
			},
			[]string{"status"},
		),
		rollupRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_rollup_runs_total",
				Help: "Total contact-rollup runs by status.",
			},
			[]string{"status"},
		),
		bulkLinkRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_bulk_link_rows_total",
				Help: "Total bulk location-link rows by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSyncRun increments the custom-value sync counter with a status label.
func (m *Metrics) IncrSyncRun(status string) {
	m.syncRuns.WithLabelValues(status).Inc()
}

// IncrRollupRun increments the rollup run counter with a status label.
func (m *Metrics) IncrRollupRun(status string) {
	m.rollupRuns.WithLabelValues(status).Inc()
}

// AddBulkLinkRows adds parsed bulk-link rows to the counter for an outcome.
func (m *Metrics) AddBulkLinkRows(outcome string, n int) {
	m.bulkLinkRows.WithLabelValues(outcome).Add(float64(n))
}

// GetSyncSnapshot returns a snapshot of sync-related metrics suitable for the
// GET /v1/metrics/sync endpoint.
func (m *Metrics) GetSyncSnapshot() *domain.SyncMetrics {
	// Gather current values from Prometheus counters.
	// Note: Prometheus counters expose cumulative values.
	success := getCounterValue(m.syncRuns, "success")
	failed := getCounterValue(m.syncRuns, "failed")
	skipped := getCounterValue(m.syncRuns, "skipped")
	total := success + failed + skipped

	scopeHits := getCounterValue(m.cacheHits, "scopes")
	scopeMisses := getCounterValue(m.cacheMisses, "scopes")

	errorRate := float64(0)
	scopeHitRate := float64(0)

	if total > 0 {
		errorRate = failed / total
	}
	if scopeHits+scopeMisses > 0 {
		scopeHitRate = scopeHits / (scopeHits + scopeMisses)
	}

	return &domain.SyncMetrics{
		TotalSyncs:        int64(total),
		SuccessfulSyncs:   int64(success),
		FailedSyncs:       int64(failed),
		SkippedSyncs:      int64(skipped),
		ErrorRate:         errorRate,
		ScopeCacheHitRate: scopeHitRate,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
