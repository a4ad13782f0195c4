package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-preheat/internal/automation"
	"github.com/nerrad567/gray-logic-preheat/internal/statestore"
)

func newStateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset the persisted pre-heat state",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the persisted state as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStateRuntime(cmd.Context(), opts, func(ctx context.Context, s *stateSession) error {
					state, err := s.rt.State(ctx)
					if err != nil {
						return err
					}
					if err := writeJSON(cmd.OutOrStdout(), state); err != nil {
						return err
					}

					written, err := s.store.UpdatedAt(ctx, s.key)
					switch {
					case errors.Is(err, statestore.ErrNotFound):
						fmt.Fprintln(cmd.ErrOrStderr(), "state never written")
					case err != nil:
						return err
					default:
						fmt.Fprintf(cmd.ErrOrStderr(), "state last written %s\n", written.UTC().Format(time.RFC3339))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Replace the persisted state with the empty state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStateRuntime(cmd.Context(), opts, func(ctx context.Context, s *stateSession) error {
					if err := s.rt.Reset(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "pre-heat state reset")
					return nil
				})
			},
		},
	)
	return cmd
}

// stateSession is an offline runtime over the on-disk state store.
type stateSession struct {
	rt    *automation.Runtime
	store *statestore.SQLiteStore
	key   string
}

// withStateRuntime opens the state database and runs fn against an offline
// runtime. Nothing is published.
func withStateRuntime(ctx context.Context, opts *rootOptions, fn func(context.Context, *stateSession) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	rc, err := automation.RuntimeConfigFrom(cfg)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Read-mostly command

	store := statestore.NewSQLiteStore(db.DB)
	return fn(ctx, &stateSession{
		rt:    offlineRuntime(rc, store),
		store: store,
		key:   rc.StateKey,
	})
}

// offlineRuntime builds a runtime whose publisher discards everything.
func offlineRuntime(rc automation.RuntimeConfig, store statestore.Store) *automation.Runtime {
	return automation.NewRuntime(rc, store, discardPublisher{}, nil, nil)
}

type discardPublisher struct{}

func (discardPublisher) Publish(string, []byte, byte, bool) error { return nil }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
