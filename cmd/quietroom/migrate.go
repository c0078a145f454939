package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/quietroom/quietroom/config"
	"github.com/quietroom/quietroom/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Migrate brings the configured backend's schema to the latest known
version. Each step runs in its own transaction and is recorded in the
schema version table; a step that fails rolls back alone and stops the
run. Concurrent invocations across processes are serialized by a
cross-process lock, so running migrate from several instances at once is
safe.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	backendCfg, err := cfg.Database.Backend()
	if err != nil {
		return err
	}

	db, err := database.Connect(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = db.Close(ctx) }()

	migrator := database.NewMigrator(db, database.DefaultSteps())
	applied, err := migrator.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("schema up to date", "backend", db.Kind().String(), "version", applied)
	return nil
}
