package main

import (
	"github.com/spf13/cobra"

	"github.com/wondersell/wildsearch-indexer/internal/debug"
	"github.com/wondersell/wildsearch-indexer/internal/dump"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

func newClearUnfinishedCmd() *cobra.Command {
	var jobID string
	var olderThan int

	cmd := &cobra.Command{
		Use:   "clear-unfinished",
		Short: "Prune stuck dumps (fact rows, versions, then the dump itself)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var targets []*types.Dump

			if jobID != "" {
				dm, err := d.repo.Get(ctx, jobID)
				if err != nil {
					return err
				}
				targets = []*types.Dump{dm}
			} else {
				if olderThan <= 0 {
					olderThan = d.cfg.OlderThanMinutes
				}
				stale, err := d.repo.ListStale(ctx, olderThan)
				if err != nil {
					return err
				}
				targets = stale
			}

			if err := dump.Prune(ctx, d.st, targets); err != nil {
				return err
			}

			debug.PrintlnNormal("pruned", len(targets), "dumps")
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job_id", "", "prune a single job regardless of staleness")
	cmd.Flags().IntVar(&olderThan, "older_than", 0, "staleness threshold in minutes (default from config)")
	return cmd
}
