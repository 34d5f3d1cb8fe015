// Package postgresengine provides the PostgreSQL-backed entity repository and
// applied-signal ledger for the dispatch core.
//
// It supports multiple database libraries through internal adapters:
// pgx.Pool (recommended), sql.DB, and sqlx.DB. Queries are built with goqu
// and executed as plain SQL strings, so all adapters behave identically.
//
// The store relies on two tables:
//
//	CREATE TABLE dispatch_entities (
//	    tenant_id   TEXT        NOT NULL,
//	    target_type TEXT        NOT NULL,
//	    target_id   TEXT        NOT NULL,
//	    state       JSONB       NOT NULL,
//	    version     BIGINT      NOT NULL,
//	    archived    BOOLEAN     NOT NULL DEFAULT FALSE,
//	    deleted     BOOLEAN     NOT NULL DEFAULT FALSE,
//	    PRIMARY KEY (tenant_id, target_type, target_id)
//	);
//
//	CREATE TABLE dispatch_applied_signals (
//	    target_key  TEXT        NOT NULL,
//	    signal_id   TEXT        NOT NULL,
//	    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (target_key, signal_id)
//	);
//
// Optimistic concurrency is enforced by conditioning every write on the
// stored version; a write that affects zero rows is a version conflict and
// leaves the stored entity untouched. StoreAndRecord persists the entity and
// the applied-signal record in one statement, so a crash can never record a
// signal as applied without the matching state change, and a signal already
// present in the ledger can never advance the entity a second time.
package postgresengine
