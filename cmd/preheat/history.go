package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-preheat/internal/audit"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		filter audit.Filter
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pre-heat starts, arrivals and timeouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Read-only command

			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			res, err := audit.NewSQLiteRepository(db.DB).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&filter.Branch, "branch", "", "only this branch (preheat_start, arrival, timeout)")
	f.StringVar(&filter.DeviceID, "device", "", "only entries for this tracker")
	f.DurationVar(&since, "since", 0, "only entries newer than this, e.g. 24h")
	f.IntVar(&filter.Limit, "limit", 50, "maximum entries to return (max 200)")
	f.IntVar(&filter.Offset, "offset", 0, "entries to skip")

	return cmd
}
