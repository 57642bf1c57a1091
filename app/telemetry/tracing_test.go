package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{OTLPEndpoint: "http://localhost:4318", SampleRate: 0.5}, false},
		{"custom path", Config{OTLPEndpoint: "https://otel.example/v1/traces", SampleRate: 1}, false},
		{"missing endpoint", Config{SampleRate: 1}, true},
		{"no scheme", Config{OTLPEndpoint: "localhost:4318", SampleRate: 1}, true},
		{"rate above one", Config{OTLPEndpoint: "http://localhost:4318", SampleRate: 1.5}, true},
		{"negative rate", Config{OTLPEndpoint: "http://localhost:4318", SampleRate: -0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDisabledProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	require.NoError(t, p.HealthCheck(context.Background()))
	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())
	require.NoError(t, p.Shutdown(context.Background()))

	_, err = NewProvider(Config{Enabled: true})
	require.Error(t, err)
}

func TestEnabledProvider(t *testing.T) {
	prevTracer, prevMeter := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
	})

	p, err := NewProvider(Config{
		Enabled:        true,
		OTLPEndpoint:   "http://127.0.0.1:4318",
		SampleRate:     1,
		Version:        "test",
		MetricsEnabled: true,
	})
	require.NoError(t, err)
	require.NoError(t, p.HealthCheck(context.Background()))
	require.Same(t, p.tracerProvider, otel.GetTracerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, task := StartProofSpan(context.Background(), 7, 3, "req-1")
	_, stage := StartStageSpan(ctx, "proof.prove")
	RecordError(stage, errors.New("fetch failed"))
	stage.End()
	SetSpanStatus(task, true, "ok")
	task.End()

	_, tx := StartTxSpan(context.Background(), "addProof", common.HexToAddress("0x42"))
	RecordError(tx, nil)
	tx.End()

	ended := sr.Ended()
	require.Len(t, ended, 3)

	stageSpan, taskSpan, txSpan := ended[0], ended[1], ended[2]
	require.Equal(t, "proof.prove", stageSpan.Name())
	require.Equal(t, taskSpan.SpanContext().SpanID(), stageSpan.Parent().SpanID())
	require.Equal(t, codes.Error, stageSpan.Status().Code)
	require.Len(t, stageSpan.Events(), 1)

	require.Equal(t, "proof.task", taskSpan.Name())
	require.Equal(t, codes.Ok, taskSpan.Status().Code)
	require.Contains(t, taskSpan.Attributes(), attribute.Int64("job.id", 7))
	require.Contains(t, taskSpan.Attributes(), attribute.String("request.id", "req-1"))

	require.Equal(t, "ledger.submit", txSpan.Name())
	require.Equal(t, codes.Unset, txSpan.Status().Code)
	require.Contains(t, txSpan.Attributes(), attribute.String("contract.method", "addProof"))

	// nil spans are tolerated
	RecordError(nil, errors.New("x"))
	SetSpanStatus(nil, false, "x")
}

func TestRecordStage(t *testing.T) {
	prev := otel.GetMeterProvider()
	reader := metricsdk.NewManualReader()
	otel.SetMeterProvider(metricsdk.NewMeterProvider(metricsdk.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	ctx := context.Background()
	RecordStage(ctx, "prove", time.Now().Add(-time.Second), nil)
	RecordStage(ctx, "prove", time.Now(), errors.New("boom"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var points int
	var total uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "alith.stage.duration" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			for _, dp := range hist.DataPoints {
				points++
				total += dp.Count
			}
		}
	}
	require.Equal(t, 2, points, "success and failure are separate series")
	require.Equal(t, uint64(2), total)
}
