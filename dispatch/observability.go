package dispatch

import (
	"context"
	"time"
)

// Logger interface for operational logging, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting dispatch performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware methods for better tracing integration.
// Implementations can use the context for trace correlation, span propagation, and other contextual metadata.
// This interface is optional - the dispatch core uses the context-aware methods when available, falling back
// to the base MetricsCollector interface for backward compatibility.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from dispatch operations.
// This interface follows the same dependency-free pattern as MetricsCollector, allowing users to integrate
// with any tracing backend (OpenTelemetry, Jaeger, Zipkin, etc.) by implementing this interface.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

const (
	// SignalsPostedMetric tracks signals admitted by the posting pipeline.
	SignalsPostedMetric = "dispatch_signals_posted_total"

	// SignalsRejectedMetric tracks signals rejected by the posting pipeline.
	//
	// Labels:
	//   - stage: pipeline stage that rejected (filters, validation, dead_signal, routing, delivery)
	SignalsRejectedMetric = "dispatch_signals_rejected_total"

	// SignalsDuplicateMetric tracks pairs dropped by delivery as already applied.
	SignalsDuplicateMetric = "dispatch_signals_duplicate_total"

	// SignalsPostponedMetric tracks pairs deferred to the tail of their lane.
	SignalsPostponedMetric = "dispatch_signals_postponed_total"

	// DispatchDurationMetric tracks endpoint dispatch duration (OpenTelemetry-compatible).
	//
	// Labels:
	//   - target_type: type of the dispatched target
	//   - outcome: success, rejection, error, interrupted
	DispatchDurationMetric = "dispatch_attempt_duration_seconds"

	// DispatchAttemptsMetric tracks total dispatch attempts.
	DispatchAttemptsMetric = "dispatch_attempts_total"

	// DispatchConflictsMetric tracks version conflicts that triggered redelivery.
	DispatchConflictsMetric = "dispatch_version_conflicts_total"

	// LaneDepthMetric tracks the current depth of a delivery lane.
	//
	// Labels:
	//   - shard: shard index of the lane
	LaneDepthMetric = "dispatch_lane_depth"
)

const (
	LogAttrError      = "error"
	LogAttrSignalID   = "signal_id"
	LogAttrSignalType = "signal_type"
	LogAttrSignalKind = "signal_kind"
	LogAttrTargetType = "target_type"
	LogAttrTargetID   = "target_id"
	LogAttrTenantID   = "tenant_id"
	LogAttrShard      = "shard"
	LogAttrStage      = "stage"
	LogAttrReason     = "reason"
	LogAttrOutcome    = "outcome"
	LogAttrVersion    = "version"
	LogAttrDurationMS = "duration_ms"
)
