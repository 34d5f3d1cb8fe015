package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXAdapter implements DBAdapter on pgx connection pools, with an optional
// read replica. Writes always go to the primary. Reads may go to a replica
// and therefore may be stale; that is safe for this store because every read
// feeds a retried decision: a stale entity version surfaces as a conflict on
// commit and the pair is redelivered, a stale ledger miss leads to a commit
// the ledger gate then refuses.
type PGXAdapter struct {
	primary *pgxpool.Pool
	replica *pgxpool.Pool
}

// NewPGXAdapter creates an adapter that serves reads and writes from one pool.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{primary: pool}
}

// NewPGXAdapterWithReplica creates an adapter that serves reads from the
// replica pool and writes from the primary pool.
func NewPGXAdapterWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{primary: primary, replica: replica}
}

// Query implements the DBAdapter interface, routing to the read pool.
func (a *PGXAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := a.readPool().Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return &pgxRowSet{rows: rows}, nil
}

// Exec implements the DBAdapter interface, always against the primary pool.
func (a *PGXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	tag, err := a.primary.Exec(ctx, query)
	if err != nil {
		return nil, err
	}

	return &pgxCommandResult{tag: tag}, nil
}

func (a *PGXAdapter) readPool() *pgxpool.Pool {
	if a.replica != nil {
		return a.replica
	}

	return a.primary
}

// pgxRowSet adapts pgx.Rows to DBRows.
type pgxRowSet struct {
	rows pgx.Rows
}

func (r *pgxRowSet) Next() bool {
	return r.rows.Next()
}

func (r *pgxRowSet) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgxRowSet) Close() error {
	r.rows.Close()
	return nil
}

// pgxCommandResult adapts pgconn.CommandTag to DBResult.
type pgxCommandResult struct {
	tag pgconn.CommandTag
}

func (r *pgxCommandResult) RowsAffected() (int64, error) {
	return r.tag.RowsAffected(), nil
}
