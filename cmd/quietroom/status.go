package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quietroom/quietroom/config"
	"github.com/quietroom/quietroom/database"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend reachability and schema version",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
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

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	migrator := database.NewMigrator(db, database.DefaultSteps())
	current, err := migrator.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	latest := 0
	for _, step := range database.DefaultSteps() {
		latest = step.Version
	}

	fmt.Printf("backend:        %s\n", db.Kind())
	fmt.Printf("schema version: %d (latest %d)\n", current, latest)
	if current < latest {
		fmt.Println("run 'quietroom migrate' to apply pending steps")
		return nil
	}

	records, err := migrator.Records(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("  %3d  %-40s %s\n",
			rec.Version, rec.Description, rec.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
