package api

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the node API
type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	ProofTasks    *prometheus.CounterVec
	ProofDuration prometheus.Histogram
	QueueDepth    prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics creates and registers node API metrics (singleton pattern)
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			HTTPRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "alith",
					Subsystem: "node",
					Name:      "http_requests_total",
					Help:      "HTTP requests served by method, route and status",
				},
				[]string{"method", "route", "status"},
			),
			ProofTasks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "alith",
					Subsystem: "node",
					Name:      "proof_tasks_total",
					Help:      "Proof tasks by outcome",
				},
				[]string{"result"},
			),
			ProofDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "alith",
					Subsystem: "node",
					Name:      "proof_duration_seconds",
					Help:      "Time from dequeue to a settled proof",
					Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
				},
			),
			QueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "alith",
					Subsystem: "node",
					Name:      "proof_queue_depth",
					Help:      "Proof tasks waiting for a worker",
				},
			),
		}
	})
	return metrics
}
