// Gray Logic Pre-heat - arrival-based heating automation
//
// This is the entry point for the pre-heat service. It watches the distance
// of tracked devices from home and raises the thermostats when someone is
// approaching, restoring the home preset on arrival.
//
// Commands:
//   - serve:        run the MQTT-driven runtime until interrupted
//   - state show:   print the persisted pre-heat state
//   - state reset:  clear the persisted pre-heat state
//   - history:      list recorded cycle starts, arrivals and timeouts
//   - evaluate:     dry-run one decision against a state file
//   - migrate up:   apply pending schema migrations
//   - migrate down: roll back the most recent schema migration
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "graylogic-preheat",
		Short:         "Arrival-based heating pre-heat for Gray Logic",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(opts.envFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", getConfigPath(),
		"configuration file (env GRAYLOGIC_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "",
		"dotenv file to load before reading configuration (default: ./.env if present)")

	cmd.AddCommand(
		newServeCmd(opts),
		newStateCmd(opts),
		newHistoryCmd(opts),
		newEvaluateCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadDotEnv loads path, or ./.env when path is empty and the file exists.
// Variables already set in the environment take precedence.
func loadDotEnv(path string) error {
	if path == "" {
		candidate := filepath.Join(".", ".env")
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		path = candidate
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadConfig loads and validates the configuration named by opts.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
