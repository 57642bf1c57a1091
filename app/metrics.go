package app

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerMetrics holds Prometheus metrics for the in-memory ledger.
type LedgerMetrics struct {
	Txs        *prometheus.CounterVec
	TxDuration prometheus.Histogram
	Height     prometheus.Gauge
	Queries    *prometheus.CounterVec
	Invariants *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// NewLedgerMetrics creates and registers ledger metrics (singleton).
func NewLedgerMetrics() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = &LedgerMetrics{
			Txs: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "alith",
					Subsystem: "ledger",
					Name:      "txs_total",
					Help:      "Delivered transactions by outcome kind",
				},
				[]string{"kind"},
			),
			TxDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "alith",
					Subsystem: "ledger",
					Name:      "tx_duration_seconds",
					Help:      "Time to check, execute and commit one transaction",
					Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
				},
			),
			Height: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "alith",
					Subsystem: "ledger",
					Name:      "height",
					Help:      "Last committed height",
				},
			),
			Queries: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "alith",
					Subsystem: "ledger",
					Name:      "queries_total",
					Help:      "Read-only calls by outcome kind",
				},
				[]string{"kind"},
			),
			Invariants: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "alith",
					Subsystem: "ledger",
					Name:      "broken_invariants_total",
					Help:      "Broken invariants by route",
				},
				[]string{"route"},
			),
		}
	})
	return ledgerMetrics
}
