package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quietroom/quietroom/database"
)

// newEmbeddedDB connects an embedded backend against a throwaway file. The
// in-memory DSN is deliberately avoided: each pooled session would see its
// own empty database.
func newEmbeddedDB(t *testing.T, cfg database.Config) *database.DB {
	t.Helper()

	if cfg.Kind == "" {
		cfg.Kind = database.KindEmbedded
	}
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "quietroom.db")
	}

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	return db
}

func newMigratedDB(t *testing.T) *database.DB {
	t.Helper()

	db := newEmbeddedDB(t, database.Config{})
	require.NoError(t, db.Migrate(context.Background()))
	return db
}
