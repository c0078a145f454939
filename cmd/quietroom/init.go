package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jackc/pgx/v5/pgconn"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an initial config file interactively",
	Long: `Init prompts for a storage backend and its connection settings and
writes them to a config file (default: ./config.yaml).

You will be prompted for:
  - Backend: sqlite (embedded file) or postgres (client-server)
  - The database file path, or the postgres connection URL
  - Connection pool size`,
	RunE: runInit,
}

var initOutput string

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "config file to write")
}

type initFileConfig struct {
	Database struct {
		UsePostgres bool   `yaml:"use_postgresql"`
		URL         string `yaml:"url,omitempty"`
		Path        string `yaml:"path,omitempty"`
		PoolSize    int    `yaml:"pool_size"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func runInit(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(initOutput); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("%s already exists. Overwrite it", initOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	backendSelect := promptui.Select{
		Label: "Storage backend",
		Items: []string{"sqlite (embedded file)", "postgres (client-server)"},
	}
	backendIdx, _, err := backendSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}

	var cfg initFileConfig
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	if backendIdx == 0 {
		pathPrompt := promptui.Prompt{
			Label:   "Database file path",
			Default: "quietroom.db",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("path is required")
				}
				return nil
			},
		}
		path, err := pathPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}
		cfg.Database.Path = path
	} else {
		urlPrompt := promptui.Prompt{
			Label:   "Connection URL",
			Default: "postgres://localhost:5432/quietroom",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("connection URL is required")
				}
				if _, parseErr := pgconn.ParseConfig(input); parseErr != nil {
					return fmt.Errorf("invalid URL: %w", parseErr)
				}
				return nil
			},
		}
		url, err := urlPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}
		cfg.Database.UsePostgres = true
		cfg.Database.URL = url
	}

	poolPrompt := promptui.Prompt{
		Label:   "Connection pool size",
		Default: "5",
		Validate: func(input string) error {
			n, convErr := strconv.Atoi(input)
			if convErr != nil || n < 1 || n > 64 {
				return errors.New("pool size must be an integer between 1 and 64")
			}
			return nil
		},
	}
	poolStr, err := poolPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Database.PoolSize, _ = strconv.Atoi(poolStr)

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(initOutput, out, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", initOutput, err)
	}

	fmt.Printf("Wrote %s.\n", initOutput)
	fmt.Println("Run 'quietroom migrate' to initialize the schema.")
	return nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
