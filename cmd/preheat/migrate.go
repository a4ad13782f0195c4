package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the state database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRawDatabase(cmd.Context(), opts, func(ctx context.Context, db *database.DB) error {
					if err := db.Migrate(ctx); err != nil {
						return fmt.Errorf("running migrations: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRawDatabase(cmd.Context(), opts, func(ctx context.Context, db *database.DB) error {
					if err := db.MigrateDown(ctx); err != nil {
						return fmt.Errorf("rolling back migration: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "most recent migration rolled back")
					return nil
				})
			},
		},
	)
	return cmd
}

// withRawDatabase opens the state database without applying migrations.
func withRawDatabase(ctx context.Context, opts *rootOptions, fn func(context.Context, *database.DB) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Short-lived command

	return fn(ctx, db)
}
