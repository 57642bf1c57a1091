package reqauth

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of request authentication
type Metrics struct {
	Verifications *prometheus.CounterVec
	NoncesPruned  prometheus.Counter
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics creates and registers request authentication metrics (singleton pattern)
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			Verifications: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "alith",
					Subsystem: "reqauth",
					Name:      "verifications_total",
					Help:      "Request authentications by outcome",
				},
				[]string{"result"},
			),
			NoncesPruned: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "alith",
					Subsystem: "reqauth",
					Name:      "nonces_pruned_total",
					Help:      "Expired nonces pruned from the replay store",
				},
			),
		}
	})
	return metrics
}
