package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analysesTotal *prometheus.CounterVec
	impulseScore  prometheus.Histogram
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg; tests pass a private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analysesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "impulse_analyses_total",
				Help: "Completed product analyses",
			},
			[]string{"quality", "category", "verdict"},
		),
		impulseScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "impulse_score",
				Help:    "Distribution of composed impulse scores",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "impulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "impulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAnalysis counts a completed analysis.
func (r *Recorder) RecordAnalysis(quality, category, verdict string) {
	r.analysesTotal.WithLabelValues(quality, category, verdict).Inc()
}

// RecordImpulseScore observes a composed impulse score.
func (r *Recorder) RecordImpulseScore(score int) {
	r.impulseScore.Observe(float64(score))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
