package postgresengine

import (
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
)

// Option defines a functional option for configuring an EntityStore.
type Option func(*EntityStore) error

// WithEntityTableName sets the entity table name for the EntityStore.
func WithEntityTableName(tableName string) Option {
	return func(es *EntityStore) error {
		if tableName == "" {
			return ErrEmptyEntityTableName
		}

		es.entityTableName = tableName

		return nil
	}
}

// WithLedgerTableName sets the applied-signal table name for the EntityStore.
func WithLedgerTableName(tableName string) Option {
	return func(es *EntityStore) error {
		if tableName == "" {
			return ErrEmptyLedgerTableName
		}

		es.ledgerTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the EntityStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: store operations, durations, version conflicts (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger dispatch.Logger) Option {
	return func(es *EntityStore) error {
		es.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EntityStore.
// The metrics collector will receive performance and operational metrics
// including load/store durations and version conflicts.
func WithMetrics(collector dispatch.MetricsCollector) Option {
	return func(es *EntityStore) error {
		es.metricsCollector = collector
		return nil
	}
}
