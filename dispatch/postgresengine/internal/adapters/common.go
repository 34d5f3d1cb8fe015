package adapters

import "context"

// DBAdapter is the narrow database surface the entity store runs on: reads
// for entity loads, ledger lookups and conflict classification, writes for
// the version-checked store and commit statements. All SQL arrives fully
// rendered; the adapters only execute and wrap driver types.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBRows is the row iterator the entity store scans entity and ledger rows
// from.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult reports how many rows a write affected; the entity store derives
// version conflicts from a zero count.
type DBResult interface {
	RowsAffected() (int64, error)
}
