package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wondersell/wildsearch-indexer/internal/debug"
)

func newCheckUnfinishedCmd() *cobra.Command {
	var olderThan int

	cmd := &cobra.Command{
		Use:   "check-unfinished",
		Short: "List dumps stuck below PROCESSED for longer than the staleness threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if olderThan <= 0 {
				olderThan = d.cfg.OlderThanMinutes
			}

			stale, err := d.repo.ListStale(ctx, olderThan)
			if err != nil {
				return err
			}

			for _, dm := range stale {
				debug.PrintlnNormal(fmt.Sprintf("%s\t%s\t%s", dm.Job, dm.State, dm.CreatedAt.Format("2006-01-02T15:04:05Z")))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThan, "older_than", 0, "staleness threshold in minutes (default from config)")
	return cmd
}
