package quietroom

import "context"

// Rows is a lazy, finite, single-pass sequence of result rows. It is not
// restartable: once Next returns false the sequence is exhausted and a new
// Query call is required to re-read. Callers must Close on every path.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Querier executes canonical query text. Queries are written once with `?`
// positional markers; the database layer rewrites them for the active
// backend before dispatch, so callers never see backend marker syntax.
type Querier interface {
	// Execute runs a mutating statement and reports rows affected.
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	// Query runs a read and returns a single-pass row sequence.
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Connection is an acquired backend session. It is owned exclusively by the
// caller between acquisition and release and must never be shared across
// concurrent callers.
type Connection interface {
	Querier

	// WithinTransaction runs fn inside one backend transaction. It commits
	// when fn returns nil, rolls back when fn returns an error or panics,
	// and the ordering of statements issued through tx is preserved.
	WithinTransaction(ctx context.Context, fn func(tx Querier) error) error
}
