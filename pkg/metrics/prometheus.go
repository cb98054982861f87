package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	outcomes     *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	fallbacks    prometheus.Counter
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_outcomes_total",
				Help: "Pipeline outcomes by asset and reason code",
			},
			[]string{"asset", "reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		stageLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradegate_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_validation_cache_lookups_total",
				Help: "Validation cache lookups by result",
			},
			[]string{"result"},
		),
		fallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tradegate_fact_check_fallbacks_total",
				Help: "Fact checks resolved by the keyword fallback",
			},
		),
	}
}

// RecordOutcome records a terminal pipeline outcome.
func (r *Recorder) RecordOutcome(asset, reason string) {
	r.outcomes.WithLabelValues(asset, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordStageLatency records stage latency in seconds.
func (r *Recorder) RecordStageLatency(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordCacheLookup records a validation cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordFallback records a keyword-fallback fact check.
func (r *Recorder) RecordFallback() {
	r.fallbacks.Inc()
}
