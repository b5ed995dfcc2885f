package observability

import (
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	externalErrors      *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	statementsGenerated *prometheus.CounterVec
	degradedFallbacks   *prometheus.CounterVec
	officerDaily        *prometheus.GaugeVec
	digestRuns          *prometheus.CounterVec
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
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from the backend API.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		statementsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_statements_generated_total",
				Help: "Statements rendered by account kind and output format.",
			},
			[]string{"kind", "format"},
		),
		degradedFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_degraded_fallbacks_total",
				Help: "Responses served with empty data after a source failed.",
			},
			[]string{"source"},
		),
		officerDaily: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bfa_officer_daily_collection_amount",
				Help: "Amount collected per officer in the last daily digest.",
			},
			[]string{"officer"},
		),
		digestRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_daily_digest_runs_total",
				Help: "Daily digest job runs by outcome.",
			},
			[]string{"status"},
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

// IncrStatement counts a rendered statement.
func (m *Metrics) IncrStatement(kind, format string) {
	m.statementsGenerated.WithLabelValues(kind, format).Inc()
}

// IncrDegraded counts a fallback to empty data for a failed source.
func (m *Metrics) IncrDegraded(source string) {
	m.degradedFallbacks.WithLabelValues(source).Inc()
}

// SetOfficerDaily publishes an officer's collected amount from the daily digest.
func (m *Metrics) SetOfficerDaily(officer string, amount float64) {
	m.officerDaily.WithLabelValues(officer).Set(amount)
}

// IncrDigestRun counts a daily digest run with status "success" or "error".
func (m *Metrics) IncrDigestRun(status string) {
	m.digestRuns.WithLabelValues(status).Inc()
}

// Snapshot returns the report-related counters suitable for the
// GET /v1/metrics/reports endpoint.
func (m *Metrics) Snapshot() *domain.ReportMetrics {
	// Prometheus counters expose cumulative values since process start.
	hits := sumCounterVec(m.cacheHits)
	misses := sumCounterVec(m.cacheMisses)

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.ReportMetrics{
		StatementsGenerated: sumCounterVec(m.statementsGenerated),
		DegradedFallbacks:   sumCounterVec(m.degradedFallbacks),
		ExternalErrors:      sumCounterVec(m.externalErrors),
		CacheHitRate:        hitRate,
		Period:              "all_time",
	}
}

// sumCounterVec adds up every child counter of a CounterVec.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := float64(0)
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
