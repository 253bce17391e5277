package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wondersell/wildsearch-indexer/internal/config"
	"github.com/wondersell/wildsearch-indexer/internal/debug"
	"github.com/wondersell/wildsearch-indexer/internal/dump"
	"github.com/wondersell/wildsearch-indexer/internal/pipeline"
)

func newImportAllCmd() *cobra.Command {
	var tags string
	var state string
	var chunkSize, groupSize int

	cmd := &cobra.Command{
		Use:   "import-all",
		Short: "Prepare and import each job named in --tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if chunkSize <= 0 {
				chunkSize = d.cfg.GetChunkSize
			}
			if groupSize <= 0 {
				groupSize = d.cfg.GroupSize
			}

			jobs, err := listJobs(ctx, d, tags, state)
			if err != nil {
				return err
			}

			marketplaceID, err := ensureMarketplace(ctx, d.st, "wildberries", "Wildberries", "https://www.wildberries.ru")
			if err != nil {
				return err
			}

			for _, job := range jobs {
				dm, err := ensureDump(ctx, d.repo, d.source, "wildberries", job)
				if err != nil {
					return err
				}

				dm, err = dump.Prepare(ctx, d.repo, job)
				if err != nil {
					return err
				}

				dm, err = dump.Import(ctx, d.repo, job)
				if err != nil {
					return err
				}

				err = pipeline.ProcessBatch(ctx, pipeline.Batch{
					Store:         d.st,
					ItemSource:    d.source,
					Dump:          dm,
					MarketplaceID: marketplaceID,
					RangeStart:    0,
					RangeCount:    dm.ItemsCrawled,
					ChunkSize:     chunkSize,
					SaveVersions:  true,
					SaveChunkSize: d.cfg.SaveChunkSize,
					CopySafe:      config.CopySafeEntities,
				})
				if err != nil {
					return err
				}

				if _, err := dump.Wrap(ctx, d.repo, job); err != nil {
					return err
				}

				debug.PrintlnNormal("imported", job)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated list, each entry taken as a job id to import (nothing is imported when empty)")
	cmd.Flags().StringVar(&state, "state", "finished", "crawler job state filter; accepted but not applied")
	cmd.Flags().IntVar(&chunkSize, "chunk_size", 0, "item fetch chunk size (default from config)")
	cmd.Flags().IntVar(&groupSize, "group_size", 0, "accepted for CLI compatibility; each job is imported as a single window")

	return cmd
}

// listJobs is a seam over whatever job-listing surface the Item Source's
// backing crawler service exposes. It queries no service: it returns the
// comma-separated tags as job ids and ignores state, since spec.md treats
// the crawler service as an external collaborator.
func listJobs(_ context.Context, _ *deps, tags, state string) ([]string, error) {
	_ = state
	if tags == "" {
		return nil, nil
	}
	return strings.Split(tags, ","), nil
}
