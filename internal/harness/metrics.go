package harness

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for instrumented test runs.
type Metrics struct {
	OutcomesTotal *prometheus.CounterVec
	BodyDuration  prometheus.Histogram
	FlushFailures prometheus.Counter
}

// NewMetrics creates and registers the runner metrics once per process.
//
// Metrics:
//   - otelharness_runner_outcomes_total{outcome} - Runs by outcome kind
//   - otelharness_runner_body_duration_seconds - Histogram of body run times
//   - otelharness_runner_flush_failures_total - Flushes that failed after retries
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			OutcomesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "otelharness_runner_outcomes_total",
					Help: "Total number of instrumented test runs by outcome",
				},
				[]string{"outcome"}, // "success", "body_error", "abnormal"
			),

			BodyDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "otelharness_runner_body_duration_seconds",
					Help:    "Duration of instrumented test bodies in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
				},
			),

			FlushFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "otelharness_runner_flush_failures_total",
					Help: "Total number of telemetry flushes that failed after retries",
				},
			),
		}
	})

	return globalMetrics
}

// RecordOutcome counts a finished run.
func (m *Metrics) RecordOutcome(kind Kind, durationSeconds float64) {
	m.OutcomesTotal.WithLabelValues(kind.String()).Inc()
	m.BodyDuration.Observe(durationSeconds)
}

// RecordFlushFailure counts a flush that failed after retries.
func (m *Metrics) RecordFlushFailure() {
	m.FlushFailures.Inc()
}
