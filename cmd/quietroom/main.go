package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quietroom/quietroom/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "quietroom",
	Short:   "Anonymous confession service operations",
	Long: `Quietroom is a message-driven confession service with moderated
submissions and threaded comments. This CLI manages its database: it
applies schema migrations, reports backend status, and writes an initial
configuration file.

The backend (embedded SQLite file or PostgreSQL server) is selected by
configuration and fixed for the lifetime of a process.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" {
			// init writes the config file; nothing to load yet.
			return nil
		}

		var configFiles []string
		if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
			configFiles = append(configFiles, configFile)
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg.Log)

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-path", "", "embedded database file path (env: USE_POSTGRESQL=false)")
	rootCmd.PersistentFlags().String("db-url", "", "postgres connection string (env: DATABASE_URL)")
	rootCmd.PersistentFlags().Bool("use-postgresql", false, "select the postgres backend (env: USE_POSTGRESQL)")
	rootCmd.PersistentFlags().Int("pool-size", 0, "connection pool size")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
