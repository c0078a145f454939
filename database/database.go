package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database/driver"
	"github.com/quietroom/quietroom/database/postgres"
	"github.com/quietroom/quietroom/database/sqlite"
)

// Kind selects the storage backend. The set is closed: every dispatch site
// (backend construction, placeholder choice, migration dialect) switches
// exhaustively, so adding a backend means touching each of them.
type Kind string

const (
	// KindEmbedded is the single-file in-process SQLite store.
	KindEmbedded Kind = "sqlite"
	// KindClientServer is the networked PostgreSQL store.
	KindClientServer Kind = "postgres"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindEmbedded, KindClientServer:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

const (
	defaultPoolSize       = 5
	defaultAcquireTimeout = 5 * time.Second
	defaultLockWait       = 30 * time.Second
)

// Config selects and parameterizes the backend. It is resolved once at
// process start and immutable thereafter; the backend choice is fixed for
// the lifetime of the process.
type Config struct {
	Kind Kind

	// Path is the embedded database file (KindEmbedded only).
	Path string

	// DSN is the full client-server connection string. When set it takes
	// precedence over the individual credential fields below.
	DSN string

	Host     string
	Port     uint16
	Database string
	User     string
	Password string

	// PoolSize bounds the number of live sessions. Defaults to 5.
	PoolSize int

	// AcquireTimeout bounds how long Acquire blocks on an exhausted pool.
	// Defaults to 5s.
	AcquireTimeout time.Duration

	// LockWait bounds how long the migrator waits for the cross-process
	// schema lock. Defaults to 30s.
	LockWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = defaultPoolSize
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = defaultAcquireTimeout
	}
	if c.LockWait <= 0 {
		c.LockWait = defaultLockWait
	}
	return c
}

// Validate checks the config is internally consistent for its kind. It
// never attempts a connection.
func (c Config) Validate() error {
	switch c.Kind {
	case KindEmbedded:
		if c.Path == "" {
			return &ConfigError{Reason: "embedded backend requires a database file path"}
		}
		dir := filepath.Dir(c.Path)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return &ConfigError{Reason: fmt.Sprintf("embedded database directory %s does not exist", dir)}
		}
		return nil
	case KindClientServer:
		if c.DSN == "" && (c.Host == "" || c.Database == "") {
			return &ConfigError{Reason: "client-server backend requires a connection URL or host and database"}
		}
		return nil
	default:
		return &ConfigError{Reason: fmt.Sprintf("unsupported backend kind: %q", c.Kind)}
	}
}

// connString renders the client-server DSN, building one from the
// individual fields when no full URL was configured.
func (c Config) connString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.port()),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

func (c Config) port() uint16 {
	if c.Port == 0 {
		return 5432
	}
	return c.Port
}

// DB is the entry point every subsystem uses. It owns the connection pool
// and dispatches to the configured backend; callers only ever see canonical
// query text and the quietroom.Connection contract.
type DB struct {
	kind    Kind
	cfg     Config
	backend driver.Backend
	pool    *pool
}

// Connect validates cfg, constructs the backend, and eagerly opens the
// pool. For the client-server backend an unreachable remote fails fast with
// ConnectionError.
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		b   driver.Backend
		err error
	)
	switch cfg.Kind {
	case KindEmbedded:
		b, err = sqlite.New(cfg.Path)
	case KindClientServer:
		b, err = postgres.New(cfg.connString())
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported backend kind: %q", cfg.Kind)}
	}
	if err != nil {
		return nil, err
	}

	p, err := newPool(ctx, b, cfg.Kind, cfg.PoolSize, cfg.AcquireTimeout)
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	return &DB{kind: cfg.Kind, cfg: cfg, backend: b, pool: p}, nil
}

func (db *DB) Kind() Kind { return db.kind }

// Acquire leases a connection. It blocks up to the configured acquire
// timeout and fails with ErrPoolTimeout when the pool stays exhausted. The
// returned Conn is owned exclusively by the caller until Release.
func (db *DB) Acquire(ctx context.Context) (*Conn, error) {
	ps, err := db.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Conn{kind: db.kind, ps: ps}, nil
}

// Release returns a connection to the pool.
func (db *DB) Release(conn *Conn) {
	if conn == nil || conn.ps == nil {
		return
	}
	db.pool.release(context.Background(), conn.ps, false)
	conn.ps = nil
}

// Discard closes a connection the caller knows is broken; its pool slot is
// reopened on a later acquire.
func (db *DB) Discard(conn *Conn) {
	if conn == nil || conn.ps == nil {
		return
	}
	db.pool.release(context.Background(), conn.ps, true)
	conn.ps = nil
}

// WithConn runs fn with a scoped connection, releasing it on every path.
func (db *DB) WithConn(ctx context.Context, fn func(conn quietroom.Connection) error) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer db.Release(conn)
	return fn(conn)
}

// Execute acquires a connection, runs one canonical statement, and releases.
func (db *DB) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Release(conn)
	return conn.Execute(ctx, query, args...)
}

// Query acquires a connection and runs one canonical read. The connection
// stays leased until the returned rows are closed, so callers must Close on
// every path.
func (db *DB) Query(ctx context.Context, query string, args ...any) (quietroom.Rows, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		db.Release(conn)
		return nil, err
	}
	return &pooledRows{Rows: rows, release: func() { db.Release(conn) }}, nil
}

// WithinTransaction acquires a connection and runs fn inside one backend
// transaction, releasing the connection afterward regardless of outcome.
func (db *DB) WithinTransaction(ctx context.Context, fn func(tx quietroom.Querier) error) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer db.Release(conn)
	return conn.WithinTransaction(ctx, fn)
}

// Ping verifies the backend is reachable through a pooled session.
func (db *DB) Ping(ctx context.Context) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer db.Release(conn)
	return conn.ps.sess.Ping(ctx)
}

// Migrate brings the schema to the latest built-in version. It must have
// completed before any collaborator issues queries.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := NewMigrator(db, DefaultSteps()).Run(ctx)
	return err
}

// Close drains the pool and tears down the backend.
func (db *DB) Close(ctx context.Context) error {
	poolErr := db.pool.close(ctx)
	backendErr := db.backend.Close()
	if poolErr != nil {
		return poolErr
	}
	return backendErr
}
