package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/postgresengine/internal/adapters"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

const (
	defaultEntityTableName = "dispatch_entities"
	defaultLedgerTableName = "dispatch_applied_signals"

	logMsgBuildQueryFailed     = "failed to build sql query"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgDBExecFailed         = "database execution failed"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgRowsAffectedFailed   = "failed to get rows affected count"
	logMsgVersionConflict      = "version conflict detected"
	logMsgEntityStored         = "entity stored"
	logMsgEntityCommitted      = "entity stored with applied-signal record"
	logMsgLifecycleMarked      = "entity lifecycle flags updated"
	logMsgSQLExecuted          = "executed sql for: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrDurationMS          = "duration_ms"
	logAttrRowsAffected        = "rows_affected"
	logAttrExpectedVersion     = "expected_version"
	logActionLoad              = "load"
	logActionStore             = "store"
	logActionCommit            = "commit"
	logActionLifecycle         = "lifecycle"
	logActionLedgerCheck       = "ledger_check"
	logActionLedgerRecord      = "ledger_record"
	storeDurationMetric        = "dispatch_store_operation_duration_seconds"
	storeConflictsMetric       = "dispatch_store_version_conflicts_total"
	labelOperation             = "operation"
	colTenantID                = "tenant_id"
	colTargetType              = "target_type"
	colTargetID                = "target_id"
	colState                   = "state"
	colVersion                 = "version"
	colArchived                = "archived"
	colDeleted                 = "deleted"
	colTargetKey               = "target_key"
	colSignalID                = "signal_id"
	cteIns                     = "ins"
	dialectPostgres            = "postgres"
	castText                   = "?::text"
	castJsonb                  = "?::jsonb"
)

type sqlQueryString = string

var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrEmptyEntityTableName = errors.New("entity table name must not be empty")
var ErrEmptyLedgerTableName = errors.New("ledger table name must not be empty")
var ErrBuildingQueryFailed = errors.New("building sql query failed")
var ErrQueryingStoreFailed = errors.New("querying entity store failed")
var ErrExecutingStoreFailed = errors.New("executing entity store statement failed")
var ErrScanningDBRowFailed = errors.New("scanning database row failed")
var ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")

// EntityStore is the PostgreSQL implementation of dispatch.EntityRepository,
// dispatch.AppliedSignalLedger and dispatch.CommitStore. It leverages a
// database adapter and supports customizable logging and table configuration.
type EntityStore struct {
	db               adapters.DBAdapter
	entityTableName  string
	ledgerTableName  string
	logger           dispatch.Logger
	metricsCollector dispatch.MetricsCollector
}

// NewEntityStoreFromPGXPool creates a new EntityStore using a pgx Pool with optional configuration.
func NewEntityStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*EntityStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEntityStore(adapters.NewPGXAdapter(db), options...)
}

// NewEntityStoreFromPGXPoolWithReplica creates a new EntityStore that writes
// to the primary pool and serves reads from the replica pool. Replica reads
// may lag; every read feeds a retried decision, so lag costs extra delivery
// attempts, never correctness.
func NewEntityStoreFromPGXPoolWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*EntityStore, error) {
	if primary == nil || replica == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEntityStore(adapters.NewPGXAdapterWithReplica(primary, replica), options...)
}

// NewEntityStoreFromSQLDB creates a new EntityStore using a sql.DB with optional configuration.
func NewEntityStoreFromSQLDB(db *sql.DB, options ...Option) (*EntityStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEntityStore(adapters.NewSQLAdapter(db), options...)
}

// NewEntityStoreFromSQLX creates a new EntityStore using a sqlx.DB with optional configuration.
func NewEntityStoreFromSQLX(db *sqlx.DB, options ...Option) (*EntityStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEntityStore(adapters.NewSQLXAdapter(db), options...)
}

func newEntityStore(db adapters.DBAdapter, options ...Option) (*EntityStore, error) {
	es := &EntityStore{
		db:              db,
		entityTableName: defaultEntityTableName,
		ledgerTableName: defaultLedgerTableName,
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// Load implements dispatch.EntityRepository. A deleted entity is reported as
// absent; the tombstone row stays to block silent re-creation in Store.
func (es *EntityStore) Load(
	ctx context.Context,
	tenantID signals.TenantIDString,
	target signals.TargetID,
) (dispatch.Entity, bool, error) {

	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.entityTableName).
		Select(colState, colVersion, colArchived, colDeleted).
		Where(entityKeyExpression(tenantID, target))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return dispatch.Entity{}, false, es.buildQueryError(toSQLErr)
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, logActionLoad, duration)
	es.recordOperationDuration(logActionLoad, duration)

	if queryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return dispatch.Entity{}, false, errors.Join(ErrQueryingStoreFailed, queryErr)
	}
	defer es.closeRows(rows)

	if !rows.Next() {
		return dispatch.Entity{}, false, nil
	}

	var state []byte
	var version int64
	var archived, deleted bool

	if scanErr := rows.Scan(&state, &version, &archived, &deleted); scanErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgScanRowFailed, logAttrError, scanErr.Error())
		}

		return dispatch.Entity{}, false, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	if deleted {
		return dispatch.Entity{}, false, nil
	}

	entity := dispatch.Entity{
		Target:    target,
		TenantID:  tenantID,
		StateJSON: state,
		Version:   dispatch.EntityVersionUint(version),
		Archived:  archived,
		Deleted:   deleted,
	}

	return entity, true, nil
}

// Store implements dispatch.EntityRepository. The write is conditioned on the
// stored version matching expectedVersion; zero rows affected is classified
// as a version conflict or a deleted tombstone.
func (es *EntityStore) Store(
	ctx context.Context,
	entity dispatch.Entity,
	expectedVersion dispatch.EntityVersionUint,
) error {

	sqlQuery, buildErr := es.buildStoreQuery(entity, expectedVersion)
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := es.executeWithRowsAffected(ctx, sqlQuery, logActionStore)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return es.classifyStoreConflict(ctx, entity, expectedVersion)
	}

	if es.logger != nil {
		es.logger.Debug(logMsgEntityStored,
			dispatch.LogAttrTargetType, entity.Target.Type,
			dispatch.LogAttrTargetID, entity.Target.ID,
			dispatch.LogAttrVersion, entity.Version)
	}

	return nil
}

// MarkLifecycle implements dispatch.EntityRepository. Lifecycle flags change
// without moving the version; they are operational state, not handler state.
func (es *EntityStore) MarkLifecycle(
	ctx context.Context,
	tenantID signals.TenantIDString,
	target signals.TargetID,
	change dispatch.LifecycleChange,
) error {

	if change.IsZero() {
		return nil
	}

	record := goqu.Record{}
	if change.Archived != nil {
		record[colArchived] = *change.Archived
	}
	if change.Deleted != nil {
		record[colDeleted] = *change.Deleted
	}

	updateStmt := goqu.Dialect(dialectPostgres).
		Update(es.entityTableName).
		Set(record).
		Where(entityKeyExpression(tenantID, target))

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return es.buildQueryError(toSQLErr)
	}

	rowsAffected, execErr := es.executeWithRowsAffected(ctx, sqlQuery, logActionLifecycle)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return dispatch.ErrEntityNotFound
	}

	if es.logger != nil {
		es.logger.Debug(logMsgLifecycleMarked,
			dispatch.LogAttrTargetType, target.Type,
			dispatch.LogAttrTargetID, target.ID)
	}

	return nil
}

// WasApplied implements dispatch.AppliedSignalLedger.
func (es *EntityStore) WasApplied(
	ctx context.Context,
	target signals.TargetID,
	signalID signals.SignalIDString,
) (bool, error) {

	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.ledgerTableName).
		Select(goqu.V(1)).
		Where(goqu.Ex{colTargetKey: target.Key(), colSignalID: signalID})

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return false, es.buildQueryError(toSQLErr)
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, logActionLedgerCheck, duration)
	es.recordOperationDuration(logActionLedgerCheck, duration)

	if queryErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return false, errors.Join(ErrQueryingStoreFailed, queryErr)
	}
	defer es.closeRows(rows)

	return rows.Next(), nil
}

// RecordApplied implements dispatch.AppliedSignalLedger. Recording the same
// pair twice is a no-op.
func (es *EntityStore) RecordApplied(
	ctx context.Context,
	target signals.TargetID,
	signalID signals.SignalIDString,
) error {

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(es.ledgerTableName).
		Cols(colTargetKey, colSignalID).
		Vals(goqu.Vals{target.Key(), signalID}).
		OnConflict(goqu.DoNothing())

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return es.buildQueryError(toSQLErr)
	}

	_, execErr := es.executeWithRowsAffected(ctx, sqlQuery, logActionLedgerRecord)

	return execErr
}

// StoreAndRecord implements dispatch.CommitStore. The applied-signal insert
// and the entity write run as one statement: the ledger insert is gated on
// the entity's version precondition, and the entity write is gated on the
// ledger insert having produced a row. An already-recorded signal therefore
// leaves the entity untouched, and a version conflict leaves the ledger
// untouched.
//
// Zero affected rows is classified like a store conflict; for an
// already-recorded signal, redelivery then drops the pair at the dedup check.
func (es *EntityStore) StoreAndRecord(
	ctx context.Context,
	entity dispatch.Entity,
	expectedVersion dispatch.EntityVersionUint,
	signalID signals.SignalIDString,
) error {

	ledgerSQL, entitySQL, buildErr := es.buildCommitQueries(entity, expectedVersion, signalID)
	if buildErr != nil {
		return buildErr
	}

	sqlQuery := "WITH " + cteIns + " AS (" + ledgerSQL + ") " + entitySQL

	rowsAffected, execErr := es.executeWithRowsAffected(ctx, sqlQuery, logActionCommit)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return es.classifyStoreConflict(ctx, entity, expectedVersion)
	}

	if es.logger != nil {
		es.logger.Debug(logMsgEntityCommitted,
			dispatch.LogAttrTargetType, entity.Target.Type,
			dispatch.LogAttrTargetID, entity.Target.ID,
			dispatch.LogAttrSignalID, signalID,
			dispatch.LogAttrVersion, entity.Version)
	}

	return nil
}

// buildCommitQueries builds the ledger-insert CTE and the entity write for
// StoreAndRecord. The CTE needs a RETURNING clause so the entity write can
// reference it.
func (es *EntityStore) buildCommitQueries(
	entity dispatch.Entity,
	expectedVersion dispatch.EntityVersionUint,
	signalID signals.SignalIDString,
) (sqlQueryString, sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	var entityPrecondition goqu.Expression
	if expectedVersion == 0 {
		entityPrecondition = goqu.L("NOT EXISTS ?",
			builder.From(es.entityTableName).
				Select(goqu.V(1)).
				Where(entityKeyExpression(entity.TenantID, entity.Target)))
	} else {
		entityPrecondition = goqu.L("EXISTS ?",
			builder.From(es.entityTableName).
				Select(goqu.V(1)).
				Where(
					entityKeyExpression(entity.TenantID, entity.Target),
					goqu.C(colVersion).Eq(int64(expectedVersion)),
					goqu.C(colDeleted).IsFalse(),
				))
	}

	ledgerStmt := builder.
		Insert(es.ledgerTableName).
		Cols(colTargetKey, colSignalID).
		FromQuery(
			builder.
				Select(goqu.L(castText, entity.Target.Key()), goqu.L(castText, signalID)).
				Where(entityPrecondition),
		).
		OnConflict(goqu.DoNothing()).
		Returning(colTargetKey)

	ledgerSQL, _, ledgerErr := ledgerStmt.ToSQL()
	if ledgerErr != nil {
		return "", "", es.buildQueryError(ledgerErr)
	}

	recordedGate := goqu.L("EXISTS ?", builder.From(cteIns).Select(goqu.V(1)))

	if expectedVersion == 0 {
		insertStmt := builder.
			Insert(es.entityTableName).
			Cols(colTenantID, colTargetType, colTargetID, colState, colVersion, colArchived, colDeleted).
			FromQuery(
				builder.Select(
					goqu.L(castText, entity.TenantID),
					goqu.L(castText, entity.Target.Type),
					goqu.L(castText, entity.Target.ID),
					goqu.L(castJsonb, string(entity.StateJSON)),
					goqu.V(int64(entity.Version)),
					goqu.V(entity.Archived),
					goqu.V(entity.Deleted),
				).Where(recordedGate),
			).
			OnConflict(goqu.DoNothing())

		entitySQL, _, toSQLErr := insertStmt.ToSQL()
		if toSQLErr != nil {
			return "", "", es.buildQueryError(toSQLErr)
		}

		return ledgerSQL, entitySQL, nil
	}

	updateStmt := builder.
		Update(es.entityTableName).
		Set(goqu.Record{
			colState:    goqu.L(castJsonb, string(entity.StateJSON)),
			colVersion:  int64(entity.Version),
			colArchived: entity.Archived,
		}).
		Where(
			entityKeyExpression(entity.TenantID, entity.Target),
			goqu.C(colVersion).Eq(int64(expectedVersion)),
			goqu.C(colDeleted).IsFalse(),
			recordedGate,
		)

	entitySQL, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return "", "", es.buildQueryError(toSQLErr)
	}

	return ledgerSQL, entitySQL, nil
}

// buildStoreQuery builds the conditional INSERT (fresh entity) or UPDATE
// (existing entity) for the plain entity write.
func (es *EntityStore) buildStoreQuery(
	entity dispatch.Entity,
	expectedVersion dispatch.EntityVersionUint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	if expectedVersion == 0 {
		insertStmt := builder.
			Insert(es.entityTableName).
			Cols(colTenantID, colTargetType, colTargetID, colState, colVersion, colArchived, colDeleted).
			Vals(goqu.Vals{
				entity.TenantID,
				entity.Target.Type,
				entity.Target.ID,
				goqu.L(castJsonb, string(entity.StateJSON)),
				int64(entity.Version),
				entity.Archived,
				entity.Deleted,
			}).
			OnConflict(goqu.DoNothing())

		sqlQuery, _, toSQLErr := insertStmt.ToSQL()
		if toSQLErr != nil {
			return "", es.buildQueryError(toSQLErr)
		}

		return sqlQuery, nil
	}

	updateStmt := builder.
		Update(es.entityTableName).
		Set(goqu.Record{
			colState:    goqu.L(castJsonb, string(entity.StateJSON)),
			colVersion:  int64(entity.Version),
			colArchived: entity.Archived,
		}).
		Where(
			entityKeyExpression(entity.TenantID, entity.Target),
			goqu.C(colVersion).Eq(int64(expectedVersion)),
			goqu.C(colDeleted).IsFalse(),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return "", es.buildQueryError(toSQLErr)
	}

	return sqlQuery, nil
}

// classifyStoreConflict distinguishes a deleted tombstone from a plain
// version conflict after a write affected zero rows.
func (es *EntityStore) classifyStoreConflict(
	ctx context.Context,
	entity dispatch.Entity,
	expectedVersion dispatch.EntityVersionUint,
) error {

	es.incrementCounter(storeConflictsMetric, map[string]string{labelOperation: logActionStore})

	if es.logger != nil {
		es.logger.Info(logMsgVersionConflict,
			dispatch.LogAttrTargetType, entity.Target.Type,
			dispatch.LogAttrTargetID, entity.Target.ID,
			logAttrExpectedVersion, expectedVersion)
	}

	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.entityTableName).
		Select(colDeleted).
		Where(entityKeyExpression(entity.TenantID, entity.Target))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return dispatch.ErrVersionConflict
	}

	rows, queryErr := es.db.Query(ctx, sqlQuery)
	if queryErr != nil {
		return dispatch.ErrVersionConflict
	}
	defer es.closeRows(rows)

	if rows.Next() {
		var deleted bool
		if scanErr := rows.Scan(&deleted); scanErr == nil && deleted {
			return dispatch.ErrEntityDeleted
		}
	}

	return dispatch.ErrVersionConflict
}

// executeWithRowsAffected executes a statement and returns its affected row count.
func (es *EntityStore) executeWithRowsAffected(ctx context.Context, sqlQuery string, action string) (int64, error) {
	start := time.Now()
	result, execErr := es.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, action, duration)
	es.recordOperationDuration(action, duration)

	if execErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		}

		return 0, errors.Join(ErrExecutingStoreFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())
		}

		return 0, errors.Join(ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (es *EntityStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if es.logger != nil {
			es.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

func (es *EntityStore) buildQueryError(toSQLErr error) error {
	if es.logger != nil {
		es.logger.Error(logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
	}

	return errors.Join(ErrBuildingQueryFailed, toSQLErr)
}

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (es *EntityStore) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

func (es *EntityStore) recordOperationDuration(action string, duration time.Duration) {
	if es.metricsCollector != nil {
		es.metricsCollector.RecordDuration(storeDurationMetric, duration, map[string]string{labelOperation: action})
	}
}

func (es *EntityStore) incrementCounter(metric string, labels map[string]string) {
	if es.metricsCollector != nil {
		es.metricsCollector.IncrementCounter(metric, labels)
	}
}

func entityKeyExpression(tenantID signals.TenantIDString, target signals.TargetID) goqu.Ex {
	return goqu.Ex{
		colTenantID:   tenantID,
		colTargetType: target.Type,
		colTargetID:   target.ID,
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

var _ dispatch.EntityRepository = (*EntityStore)(nil)
var _ dispatch.AppliedSignalLedger = (*EntityStore)(nil)
var _ dispatch.CommitStore = (*EntityStore)(nil)
