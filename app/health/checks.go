package health

import (
	"context"
	"fmt"
	"time"
)

// ProbeCheck times probe. A failed probe is unhealthy and a probe slower
// than maxLatency is degraded. A zero maxLatency disables the latency check.
func ProbeCheck(probe func(ctx context.Context) error, maxLatency time.Duration) CheckFunc {
	return func(ctx context.Context) ComponentHealth {
		start := time.Now()
		err := probe(ctx)
		duration := time.Since(start)

		metrics := map[string]interface{}{
			"response_time_ms": duration.Milliseconds(),
		}
		if err != nil {
			return ComponentHealth{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("probe failed: %v", err),
				Metrics: metrics,
			}
		}
		if maxLatency > 0 && duration > maxLatency {
			return ComponentHealth{
				Status:  StatusDegraded,
				Message: "response time is degraded",
				Metrics: metrics,
			}
		}
		return ComponentHealth{Status: StatusHealthy, Metrics: metrics}
	}
}

// CapacityCheck reports a bounded queue. It is degraded above the
// threshold fraction of capacity and unhealthy when full.
func CapacityCheck(usage func() (used, capacity int), threshold float64) CheckFunc {
	return func(context.Context) ComponentHealth {
		used, capacity := usage()
		metrics := map[string]interface{}{
			"used":     used,
			"capacity": capacity,
		}
		switch {
		case capacity > 0 && used >= capacity:
			return ComponentHealth{Status: StatusUnhealthy, Message: "queue is full", Metrics: metrics}
		case capacity > 0 && float64(used) > threshold*float64(capacity):
			return ComponentHealth{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("queue above %.0f%% of capacity", threshold*100),
				Metrics: metrics,
			}
		default:
			return ComponentHealth{Status: StatusHealthy, Metrics: metrics}
		}
	}
}
