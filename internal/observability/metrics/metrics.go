// Package metrics exposes the prometheus registry used across every
// subsystem: cache hit ratio, circuit-breaker state, rate-limiter throttle
// counts, and sink flush timings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric this core exports.
type Registry struct {
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	CacheHitRatio   *prometheus.GaugeVec
	CircuitState    *prometheus.GaugeVec
	RateLimitThrottles *prometheus.CounterVec
	BudgetWarnings  *prometheus.CounterVec
	BudgetDenials   *prometheus.CounterVec
	PipelineStepDuration *prometheus.HistogramVec
	PipelineErrors  *prometheus.CounterVec
	SinkFlushDuration *prometheus.HistogramVec
	SinkBufferedItems *prometheus.GaugeVec
	SchedulerTasksActive prometheus.Gauge
	SchedulerTasksDisabled prometheus.Gauge
}

// NewRegistry constructs and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestcore", Subsystem: "cache", Name: "hits_total",
			Help: "Cache hits by tier (l1_fresh, l1_stale, l2_fresh, l2_stale).",
		}, []string{"tier"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestcore", Subsystem: "cache", Name: "misses_total",
			Help: "Cache misses requiring a refresher invocation.",
		}, []string{"namespace"}),
		CacheHitRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ingestcore", Subsystem: "cache", Name: "hit_ratio",
			Help: "Rolling hit ratio per namespace.",
		}, []string{"namespace"}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ingestcore", Subsystem: "circuit", Name: "state",
			Help: "0=CLOSED 1=HALF_OPEN 2=OPEN per provider.",
		}, []string{"provider"}),
		RateLimitThrottles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestcore", Subsystem: "ratelimit", Name: "throttled_total",
			Help: "Requests denied a token by the bucket.",
		}, []string{"provider"}),
		BudgetWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestcore", Subsystem: "budget", Name: "soft_threshold_total",
			Help: "Requests that crossed the soft budget threshold.",
		}, []string{"provider"}),
		BudgetDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestcore", Subsystem: "budget", Name: "denied_total",
			Help: "Requests denied by the hard budget limit.",
		}, []string{"provider"}),
		PipelineStepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingestcore", Subsystem: "pipeline", Name: "step_duration_seconds",
			Help:    "Duration of each adapter pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source", "stage"}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestcore", Subsystem: "pipeline", Name: "errors_total",
			Help: "Pipeline stage failures by error_type.",
		}, []string{"source", "stage", "error_type"}),
		SinkFlushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingestcore", Subsystem: "sink", Name: "flush_duration_seconds",
			Help:    "Duration of a durable-sink flush.",
			Buckets: prometheus.DefBuckets,
		}, []string{"data_type"}),
		SinkBufferedItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ingestcore", Subsystem: "sink", Name: "buffered_items",
			Help: "Items currently buffered awaiting flush.",
		}, []string{"data_type"}),
		SchedulerTasksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingestcore", Subsystem: "scheduler", Name: "tasks_active",
			Help: "Enabled scheduled tasks.",
		}),
		SchedulerTasksDisabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingestcore", Subsystem: "scheduler", Name: "tasks_disabled",
			Help: "Tasks disabled after exceeding max retries.",
		}),
	}

	reg.MustRegister(
		r.CacheHits, r.CacheMisses, r.CacheHitRatio, r.CircuitState,
		r.RateLimitThrottles, r.BudgetWarnings, r.BudgetDenials,
		r.PipelineStepDuration, r.PipelineErrors,
		r.SinkFlushDuration, r.SinkBufferedItems,
		r.SchedulerTasksActive, r.SchedulerTasksDisabled,
	)
	return r
}
