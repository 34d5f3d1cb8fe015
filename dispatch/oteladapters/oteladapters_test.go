package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	lognoop "go.opentelemetry.io/otel/log/noop"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/oteladapters"
)

func Test_SlogBridgeLogger_LogsAllLevelsThroughHandler(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug message", "signal_type", "deposit-funds")
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message")

	// assert
	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
	assert.Contains(t, output, `"signal_type":"deposit-funds"`)
}

func Test_OTelLogger_ToleratesUnevenArgs(t *testing.T) {
	// arrange
	logger := oteladapters.NewOTelLogger(lognoop.NewLoggerProvider().Logger("dispatch-test"))
	ctx := context.Background()

	// act + assert
	assert.NotPanics(t, func() {
		logger.InfoContext(ctx, "message", "key1", "value1", "dangling")
	})

	assert.NotPanics(t, func() {
		logger.ErrorContext(ctx, "message", 42, "non-string key")
	})
}

func Test_MetricsCollector_RecordsWithoutError(t *testing.T) {
	// arrange
	collector := oteladapters.NewMetricsCollector(metricnoop.NewMeterProvider().Meter("dispatch-test"))
	ctx := context.Background()
	labels := map[string]string{"target_type": "account"}

	// act + assert
	assert.NotPanics(t, func() {
		collector.RecordDuration(dispatch.DispatchDurationMetric, 5*time.Millisecond, labels)
		collector.RecordDurationContext(ctx, dispatch.DispatchDurationMetric, 5*time.Millisecond, labels)
		collector.IncrementCounter(dispatch.SignalsPostedMetric, labels)
		collector.IncrementCounterContext(ctx, dispatch.SignalsPostedMetric, labels)
		collector.RecordValue(dispatch.LaneDepthMetric, 3, nil)
		collector.RecordValueContext(ctx, dispatch.LaneDepthMetric, 3, nil)
	})
}

func Test_TracingCollector_SpanLifecycle(t *testing.T) {
	// arrange
	collector := oteladapters.NewTracingCollector(tracenoop.NewTracerProvider().Tracer("dispatch-test"))
	ctx := context.Background()

	// act
	spanCtx, span := collector.StartSpan(ctx, "dispatch.attempt", map[string]string{"target_type": "account"})

	// assert
	assert.NotNil(t, spanCtx)
	assert.NotNil(t, span)

	assert.NotPanics(t, func() {
		span.AddAttribute("outcome", "success")
		span.SetStatus("conflict")
		collector.FinishSpan(span, "success", map[string]string{"outcome": "success"})
	})
}

func Test_TracingCollector_FinishSpan_IgnoresForeignSpanContext(t *testing.T) {
	// arrange
	collector := oteladapters.NewTracingCollector(tracenoop.NewTracerProvider().Tracer("dispatch-test"))

	// act + assert
	assert.NotPanics(t, func() {
		collector.FinishSpan(foreignSpanContext{}, "success", nil)
	})
}

type foreignSpanContext struct{}

func (foreignSpanContext) SetStatus(string)            {}
func (foreignSpanContext) AddAttribute(string, string) {}
