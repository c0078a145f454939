package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database/driver"
)

// Conn is a leased backend session implementing quietroom.Connection. It is
// owned exclusively by the caller between Acquire and Release. All query
// text passes through Translate before dispatch.
type Conn struct {
	kind Kind
	ps   *pooledSession
}

var _ quietroom.Connection = (*Conn)(nil)

// Execute runs a mutating statement written in canonical marker syntax.
// Backend rejections (constraint violations, syntax errors) propagate
// wrapped, never swallowed.
func (c *Conn) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	affected, err := c.ps.sess.Exec(ctx, Translate(c.kind, query), args...)
	if err != nil {
		return 0, fmt.Errorf("execute: %w", err)
	}
	return affected, nil
}

// Query runs a read and returns a lazy single-pass row sequence. The
// sequence is not restartable; re-reading requires a new Query call.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (quietroom.Rows, error) {
	rows, err := c.ps.sess.Query(ctx, Translate(c.kind, query), args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// WithinTransaction runs fn inside one backend transaction: commit on nil
// return, rollback on error or panic. Statement order inside fn is
// preserved; the backend's default isolation level applies.
func (c *Conn) WithinTransaction(ctx context.Context, fn func(tx quietroom.Querier) error) error {
	tx, err := c.ps.sess.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(&txQuerier{kind: c.kind, tx: tx}); err != nil {
		done = true
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	done = true
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// txQuerier exposes a backend transaction through the canonical Querier
// surface, translating markers exactly like a pooled connection does.
type txQuerier struct {
	kind Kind
	tx   driver.Tx
}

func (q *txQuerier) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	affected, err := q.tx.Exec(ctx, Translate(q.kind, query), args...)
	if err != nil {
		return 0, fmt.Errorf("execute: %w", err)
	}
	return affected, nil
}

func (q *txQuerier) Query(ctx context.Context, query string, args ...any) (quietroom.Rows, error) {
	rows, err := q.tx.Query(ctx, Translate(q.kind, query), args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// pooledRows releases the underlying connection back to the pool when the
// row sequence is closed. Used by the DB-level Query convenience.
type pooledRows struct {
	quietroom.Rows
	release func()
	once    sync.Once
}

func (r *pooledRows) Close() error {
	err := r.Rows.Close()
	r.once.Do(r.release)
	return err
}
