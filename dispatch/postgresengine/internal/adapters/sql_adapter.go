package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter on a database/sql connection pool.
type SQLAdapter struct {
	db *sql.DB
}

// NewSQLAdapter creates an adapter over the given sql.DB.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// Query implements the DBAdapter interface.
func (a *SQLAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &sqlRowSet{rows: rows}, nil
}

// Exec implements the DBAdapter interface.
func (a *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := a.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &sqlCommandResult{result: result}, nil
}

// sqlRowSet adapts *sql.Rows to DBRows. Shared by the sql.DB and sqlx
// variants, which both hand out *sql.Rows.
type sqlRowSet struct {
	rows *sql.Rows
}

func (r *sqlRowSet) Next() bool {
	return r.rows.Next()
}

func (r *sqlRowSet) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *sqlRowSet) Close() error {
	return r.rows.Close()
}

// sqlCommandResult adapts sql.Result to DBResult.
type sqlCommandResult struct {
	result sql.Result
}

func (r *sqlCommandResult) RowsAffected() (int64, error) {
	return r.result.RowsAffected()
}
