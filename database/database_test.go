package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database"
)

func TestConnect_RejectsUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := database.Connect(context.Background(), database.Config{Kind: "mysql"})
	require.Error(t, err)

	var cfgErr *database.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "mysql")
}

func TestConnect_EmbeddedRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := database.Connect(context.Background(), database.Config{Kind: database.KindEmbedded})
	var cfgErr *database.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestConnect_EmbeddedRequiresExistingDirectory(t *testing.T) {
	t.Parallel()

	cfg := database.Config{
		Kind: database.KindEmbedded,
		Path: filepath.Join(t.TempDir(), "missing", "deep", "quietroom.db"),
	}
	_, err := database.Connect(context.Background(), cfg)
	var cfgErr *database.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestConnect_ClientServerRequiresTarget(t *testing.T) {
	t.Parallel()

	_, err := database.Connect(context.Background(), database.Config{Kind: database.KindClientServer})
	var cfgErr *database.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestDB_ExecuteAndQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newMigratedDB(t)

	affected, err := db.Execute(ctx,
		`INSERT INTO users (user_id, username, first_name) VALUES (?, ?, ?)`,
		int64(42), "ghost", "Casper")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	rows, err := db.Query(ctx, `SELECT username, first_name FROM users WHERE user_id = ?`, int64(42))
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var username, firstName string
	require.NoError(t, rows.Scan(&username, &firstName))
	assert.Equal(t, "ghost", username)
	assert.Equal(t, "Casper", firstName)
	assert.False(t, rows.Next())
	require.NoError(t, rows.Err())
}

func TestDB_ExecuteSurfacesConstraintViolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newMigratedDB(t)

	_, err := db.Execute(ctx, `INSERT INTO users (user_id) VALUES (?)`, int64(7))
	require.NoError(t, err)

	_, err = db.Execute(ctx, `INSERT INTO users (user_id) VALUES (?)`, int64(7))
	require.Error(t, err, "duplicate primary key propagates")
}

func TestDB_WithinTransactionCommits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newMigratedDB(t)

	err := db.WithinTransaction(ctx, func(tx quietroom.Querier) error {
		if _, err := tx.Execute(ctx, `INSERT INTO users (user_id, username) VALUES (?, ?)`, int64(1), "a"); err != nil {
			return err
		}
		_, err := tx.Execute(ctx, `INSERT INTO users (user_id, username) VALUES (?, ?)`, int64(2), "b")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), countUsers(t, db))
}

func TestDB_WithinTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newMigratedDB(t)
	boom := errors.New("boom")

	err := db.WithinTransaction(ctx, func(tx quietroom.Querier) error {
		if _, err := tx.Execute(ctx, `INSERT INTO users (user_id, username) VALUES (?, ?)`, int64(1), "a"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Zero(t, countUsers(t, db), "partial writes rolled back")
}

func TestDB_AcquireReleaseCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newMigratedDB(t)

	conn, err := db.Acquire(ctx)
	require.NoError(t, err)

	_, err = conn.Execute(ctx, `INSERT INTO users (user_id) VALUES (?)`, int64(9))
	require.NoError(t, err)
	db.Release(conn)

	assert.Equal(t, int64(1), countUsers(t, db))
}

func TestDB_PoolExhaustionTimesOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newEmbeddedDB(t, database.Config{
		PoolSize:       2,
		AcquireTimeout: time.Second,
	})

	first, err := db.Acquire(ctx)
	require.NoError(t, err)
	second, err := db.Acquire(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		conn, err := db.Acquire(ctx)
		if err == nil {
			db.Release(conn)
		}
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, database.ErrPoolTimeout)
	case <-time.After(3 * time.Second):
		t.Fatal("third acquire neither succeeded nor timed out")
	}

	db.Release(first)
	db.Release(second)

	conn, err := db.Acquire(ctx)
	require.NoError(t, err)
	db.Release(conn)
}

func TestDB_Ping(t *testing.T) {
	t.Parallel()

	db := newEmbeddedDB(t, database.Config{})
	require.NoError(t, db.Ping(context.Background()))
}

func TestDB_DiscardReplacesSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newEmbeddedDB(t, database.Config{PoolSize: 1})

	conn, err := db.Acquire(ctx)
	require.NoError(t, err)
	db.Discard(conn)

	// The discarded slot is reopened transparently.
	conn, err = db.Acquire(ctx)
	require.NoError(t, err)
	rows, err := conn.Query(ctx, `SELECT 1`)
	require.NoError(t, err)
	require.True(t, rows.Next())
	require.NoError(t, rows.Close())
	db.Release(conn)
}

func TestDB_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newMigratedDB(t)

	const writers = 8
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(id int64) {
			_, err := db.Execute(ctx,
				`INSERT INTO users (user_id, username) VALUES (?, ?)`, id, "w")
			errs <- err
		}(int64(i + 1))
	}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-errs)
	}

	assert.Equal(t, int64(writers), countUsers(t, db))
}

func countUsers(t *testing.T, db *database.DB) int64 {
	t.Helper()

	rows, err := db.Query(context.Background(), `SELECT COUNT(*) FROM users`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var n int64
	require.NoError(t, rows.Scan(&n))
	return n
}
