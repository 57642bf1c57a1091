package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	stageOnce      sync.Once
	stageHistogram metric.Float64Histogram
)

// RecordStage records the duration of one stage since start. The
// instrument is created on the global meter, so it follows whichever
// provider NewProvider installs.
func RecordStage(ctx context.Context, stage string, start time.Time, err error) {
	stageOnce.Do(func() {
		h, herr := otel.Meter(serviceName).Float64Histogram(
			"alith.stage.duration",
			metric.WithDescription("Duration of proof and ledger stages"),
			metric.WithUnit("s"),
		)
		if herr != nil {
			otel.Handle(herr)
			return
		}
		stageHistogram = h
	})
	if stageHistogram == nil {
		return
	}
	stageHistogram.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("success", err == nil),
	))
}
