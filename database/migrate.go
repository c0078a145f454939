package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quietroom/quietroom"
)

// versionTable tracks applied migrations. One row per step, append-only;
// rows are never updated or deleted by normal operation.
const versionTable = "schema_version"

// MigrationStep is one schema change, defined at build time. Each step
// carries its statements in both backends' native dialects; the migrator
// never attempts automatic dialect translation of DDL.
type MigrationStep struct {
	Version     int
	Description string

	Embedded     []string
	ClientServer []string
}

func (s MigrationStep) statements(kind Kind) ([]string, error) {
	switch kind {
	case KindEmbedded:
		return s.Embedded, nil
	case KindClientServer:
		return s.ClientServer, nil
	default:
		return nil, fmt.Errorf("migration step %d: unsupported backend kind %q", s.Version, kind)
	}
}

// MigrationRecord is one applied step as persisted in the version table.
type MigrationRecord struct {
	Version     int
	Description string
	AppliedAt   time.Time
}

// Migrator brings the schema to the latest known version exactly once,
// regardless of how many process instances start concurrently. It holds the
// backend's cross-process schema lock for the duration of the run.
type Migrator struct {
	db       *DB
	steps    []MigrationStep
	lockWait time.Duration
}

func NewMigrator(db *DB, steps []MigrationStep) *Migrator {
	return &Migrator{db: db, steps: steps, lockWait: db.cfg.LockWait}
}

// Run applies every pending step in ascending order, each inside its own
// transaction, and returns the resulting schema version. A failed step
// rolls back alone, leaves the persisted version unchanged, and surfaces
// MigrationError with the failed version. A second run against a current
// schema performs zero DDL.
func (m *Migrator) Run(ctx context.Context) (int, error) {
	if err := validateSteps(m.steps); err != nil {
		return 0, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, m.lockWait)
	defer cancel()
	release, err := m.db.backend.SchemaLock(lockCtx)
	if err != nil {
		return 0, fmt.Errorf("acquire schema lock: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			slog.Warn("failed to release schema lock", "err", err)
		}
	}()

	conn, err := m.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer m.db.Release(conn)

	current, err := m.currentVersion(ctx, conn)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, step := range m.steps {
		if step.Version <= current {
			continue
		}
		if err := m.apply(ctx, conn, step); err != nil {
			return current, err
		}
		current = step.Version
		applied++
		slog.Info("applied migration",
			"version", step.Version,
			"description", step.Description,
			"backend", m.db.kind.String(),
		)
	}

	if applied == 0 {
		slog.Debug("schema already current", "version", current)
	}
	return current, nil
}

// CurrentVersion reports the persisted schema version, 0 when the version
// table does not exist yet.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	conn, err := m.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer m.db.Release(conn)
	return m.currentVersion(ctx, conn)
}

// Records lists applied migrations in version order.
func (m *Migrator) Records(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := m.db.Query(ctx,
		`SELECT version, description, applied_at FROM schema_version ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []MigrationRecord
	for rows.Next() {
		var (
			rec       MigrationRecord
			appliedAt Timestamp
		)
		if err := rows.Scan(&rec.Version, &rec.Description, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration record: %w", err)
		}
		rec.AppliedAt = appliedAt.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read migration records: %w", err)
	}
	return records, nil
}

func (m *Migrator) apply(ctx context.Context, conn *Conn, step MigrationStep) error {
	stmts, err := step.statements(m.db.kind)
	if err != nil {
		return err
	}

	err = conn.WithinTransaction(ctx, func(tx quietroom.Querier) error {
		for _, stmt := range stmts {
			if _, err := tx.Execute(ctx, stmt); err != nil {
				return err
			}
		}
		const record = `INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)`
		_, err := tx.Execute(ctx, record,
			step.Version, step.Description, BindTimestamp(m.db.kind, time.Now().UTC()))
		return err
	})
	if err != nil {
		return &MigrationError{Version: step.Version, Err: err}
	}
	return nil
}

func (m *Migrator) currentVersion(ctx context.Context, conn *Conn) (int, error) {
	exists, err := m.versionTableExists(ctx, conn)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	rows, err := conn.Query(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	version := 0
	if rows.Next() {
		if err := rows.Scan(&version); err != nil {
			return 0, fmt.Errorf("scan schema version: %w", err)
		}
	}
	return version, rows.Err()
}

func (m *Migrator) versionTableExists(ctx context.Context, conn *Conn) (bool, error) {
	var query string
	switch m.db.kind {
	case KindEmbedded:
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`
	case KindClientServer:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = ?`
	default:
		return false, fmt.Errorf("unsupported backend kind: %q", m.db.kind)
	}

	rows, err := conn.Query(ctx, query, versionTable)
	if err != nil {
		return false, fmt.Errorf("check version table: %w", err)
	}
	defer func() { _ = rows.Close() }()

	exists := rows.Next()
	return exists, rows.Err()
}

// validateSteps enforces a strictly increasing version sequence with both
// dialect variants present; the executor assumes no gaps in intent, only in
// numbering.
func validateSteps(steps []MigrationStep) error {
	last := 0
	for _, step := range steps {
		if step.Version <= last {
			return fmt.Errorf("migration steps out of order: version %d after %d", step.Version, last)
		}
		if len(step.Embedded) == 0 || len(step.ClientServer) == 0 {
			return fmt.Errorf("migration step %d is missing a dialect variant", step.Version)
		}
		last = step.Version
	}
	return nil
}
