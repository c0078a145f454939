// Package driver defines the contract a storage backend implements for the
// database layer, loosely modeled on database/sql/driver: the database
// package owns pooling, placeholder translation, and migrations, while a
// backend owns raw session behavior against its engine.
package driver

import (
	"context"

	"github.com/quietroom/quietroom"
)

// Session is one live, authenticated backend connection. Sessions are
// leased out by the pool one caller at a time; implementations do not need
// to be safe for concurrent use.
type Session interface {
	// Ping is the lightweight liveness probe the pool runs before every
	// lease.
	Ping(ctx context.Context) error

	// Exec runs a mutating statement already rendered in the backend's
	// marker syntax and reports rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Query runs a read and returns a single-pass row sequence. Statements
	// that both write and return rows must run inside a transaction so the
	// embedded backend can serialize them with other writers.
	Query(ctx context.Context, sql string, args ...any) (quietroom.Rows, error)

	// Begin opens a transaction at the backend's default isolation level.
	Begin(ctx context.Context) (Tx, error)

	Close(ctx context.Context) error
}

// Tx is an open backend transaction. Exactly one of Commit or Rollback must
// be called.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (quietroom.Rows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Backend opens sessions against one configured store.
type Backend interface {
	// Open establishes a new session, authenticating where the engine
	// requires it.
	Open(ctx context.Context) (Session, error)

	// SchemaLock acquires the cross-process migration lock, blocking until
	// granted or ctx expires. The returned func releases the lock.
	SchemaLock(ctx context.Context) (release func() error, err error)

	// Close tears down backend-wide resources. Sessions handed out by Open
	// are owned by their holders and closed separately.
	Close() error
}
