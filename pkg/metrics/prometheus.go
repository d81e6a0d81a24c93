package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ChartCore/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	cacheLookup *prometheus.CounterVec
	patterns    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder on its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartcore_ephemeris_invocations_total",
				Help: "Ephemeris tool invocations by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		cacheLookup: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartcore_cache_lookups_total",
				Help: "Chart cache lookups by result",
			},
			[]string{"result"},
		),
		patterns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartcore_patterns_detected_total",
				Help: "Detected patterns by type",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartcore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every metric to path in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// RecordInvocation counts one ephemeris tool call.
func (r *Recorder) RecordInvocation(stage, outcome string) {
	r.invocations.WithLabelValues(stage, outcome).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheLookup counts a cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookup.WithLabelValues(result).Inc()
}

// RecordPattern counts one detected pattern.
func (r *Recorder) RecordPattern(patternType string) {
	r.patterns.WithLabelValues(patternType).Inc()
}

var _ repository.Metrics = (*Recorder)(nil)
