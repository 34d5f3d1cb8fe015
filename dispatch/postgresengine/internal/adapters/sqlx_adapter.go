package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter on a sqlx connection pool. The entity
// store renders its own SQL, so only the plain query/exec surface of sqlx is
// used; the result wrappers are shared with the database/sql variant.
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter creates an adapter over the given sqlx.DB.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Query implements the DBAdapter interface.
func (a *SQLXAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &sqlRowSet{rows: rows}, nil
}

// Exec implements the DBAdapter interface.
func (a *SQLXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := a.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &sqlCommandResult{result: result}, nil
}
