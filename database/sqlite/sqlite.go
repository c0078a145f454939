// Package sqlite implements the embedded storage backend on a single
// database file via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database/driver"

	_ "modernc.org/sqlite" // SQLite driver
)

const lockRetryDelay = 100 * time.Millisecond

// Backend shares one backing file across all sessions. SQLite allows many
// concurrent readers but a single writer per file, so all sessions funnel
// writes through a shared mutex.
type Backend struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex
	lock    *flock.Flock
}

var _ driver.Backend = (*Backend)(nil)

// New opens the backing file with WAL journaling, enforced foreign keys,
// and a busy timeout. The file is created on first write.
func New(path string) (*Backend, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Backend{
		db:   db,
		path: path,
		lock: flock.New(path + ".migrate.lock"),
	}, nil
}

// Open pins one connection out of the shared handle. Every session wraps
// the same backing file.
func (b *Backend) Open(ctx context.Context) (driver.Session, error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open sqlite session: %w", err)
	}
	return &session{conn: conn, writeMu: &b.writeMu}, nil
}

// SchemaLock takes an exclusive lock on a sentinel file alongside the
// database file, serializing migrations across concurrent process starts.
func (b *Backend) SchemaLock(ctx context.Context) (func() error, error) {
	ok, err := b.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", b.lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", b.lock.Path())
	}
	return b.lock.Unlock, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

type session struct {
	conn    *sql.Conn
	writeMu *sync.Mutex
}

func (s *session) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Exec serializes with every other writer on the shared file.
func (s *session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query runs reads without the write mutex so readers stay concurrent.
// Mutating statements that return rows must run inside a transaction, which
// holds the mutex for its whole extent.
func (s *session) Query(ctx context.Context, query string, args ...any) (quietroom.Rows, error) {
	if isWriteStatement(query) {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}
	return s.conn.QueryContext(ctx, query, args...)
}

// Begin takes the write mutex for the transaction's whole extent; it is
// released on commit or rollback.
func (s *session) Begin(ctx context.Context) (driver.Tx, error) {
	s.writeMu.Lock()
	sqlTx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		s.writeMu.Unlock()
		return nil, err
	}
	t := &tx{tx: sqlTx}
	t.unlock = func() { s.writeMu.Unlock() }
	return t, nil
}

func (s *session) Close(ctx context.Context) error {
	return s.conn.Close()
}

type tx struct {
	tx     *sql.Tx
	unlock func()
	once   sync.Once
}

func (t *tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *tx) Query(ctx context.Context, query string, args ...any) (quietroom.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *tx) Commit(ctx context.Context) error {
	defer t.once.Do(t.unlock)
	return t.tx.Commit()
}

func (t *tx) Rollback(ctx context.Context) error {
	defer t.once.Do(t.unlock)
	return t.tx.Rollback()
}

// isWriteStatement treats anything that is not a plain read as a write.
func isWriteStatement(query string) bool {
	q := strings.TrimSpace(query)
	for _, kw := range []string{"SELECT", "PRAGMA", "EXPLAIN"} {
		if len(q) >= len(kw) && strings.EqualFold(q[:len(kw)], kw) {
			return false
		}
	}
	return true
}
