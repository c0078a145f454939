// Package postgres implements the client-server storage backend over pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database/driver"
)

const (
	// Advisory lock identity for schema migrations. Derived from constant
	// strings server-side via hashtext to avoid magic numbers.
	lockNamespace = "quietroom"
	lockName      = "schema"

	releaseTimeout = 5 * time.Second
)

// Backend opens one pgx session per pool slot against a shared connection
// string.
type Backend struct {
	connString string
}

var _ driver.Backend = (*Backend)(nil)

// New validates the connection string without dialing.
func New(connString string) (*Backend, error) {
	if _, err := pgx.ParseConfig(connString); err != nil {
		return nil, fmt.Errorf("parse postgres conn string: %w", err)
	}
	return &Backend{connString: connString}, nil
}

func (b *Backend) Open(ctx context.Context) (driver.Session, error) {
	conn, err := pgx.Connect(ctx, b.connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &session{conn: conn}, nil
}

// SchemaLock takes a session-scoped advisory lock on a dedicated
// connection, blocking server-side until granted or ctx expires. The
// connection is held open until release.
func (b *Backend) SchemaLock(ctx context.Context) (func() error, error) {
	conn, err := pgx.Connect(ctx, b.connString)
	if err != nil {
		return nil, fmt.Errorf("connect for schema lock: %w", err)
	}

	if _, err := conn.Exec(ctx,
		"select pg_advisory_lock(hashtext($1), hashtext($2))",
		lockNamespace, lockName,
	); err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	release := func() error {
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		_, unlockErr := conn.Exec(rctx,
			"select pg_advisory_unlock(hashtext($1), hashtext($2))",
			lockNamespace, lockName,
		)
		closeErr := conn.Close(rctx)
		if unlockErr != nil {
			return fmt.Errorf("release advisory lock: %w", unlockErr)
		}
		return closeErr
	}
	return release, nil
}

// Close is a no-op: sessions are owned by their holders and the backend
// keeps no shared handle.
func (b *Backend) Close() error { return nil }

type session struct {
	conn *pgx.Conn
}

func (s *session) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := s.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *session) Query(ctx context.Context, query string, args ...any) (quietroom.Rows, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{Rows: rows}, nil
}

func (s *session) Begin(ctx context.Context) (driver.Tx, error) {
	pgxTx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &tx{tx: pgxTx}, nil
}

func (s *session) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// pgxRows adapts pgx.Rows to the quietroom.Rows contract, whose Close
// reports an error.
type pgxRows struct {
	pgx.Rows
}

func (r *pgxRows) Close() error {
	r.Rows.Close()
	return nil
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *tx) Query(ctx context.Context, query string, args ...any) (quietroom.Rows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{Rows: rows}, nil
}

func (t *tx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
