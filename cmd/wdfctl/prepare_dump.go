package main

import (
	"github.com/spf13/cobra"

	"github.com/wondersell/wildsearch-indexer/internal/config"
	"github.com/wondersell/wildsearch-indexer/internal/debug"
	"github.com/wondersell/wildsearch-indexer/internal/dump"
	"github.com/wondersell/wildsearch-indexer/internal/pipeline"
)

func newPrepareDumpCmd() *cobra.Command {
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "prepare-dump <job>",
		Short: "Resolve dictionaries for a job without writing versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			job := args[0]

			d, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			dm, err := ensureDump(ctx, d.repo, d.source, "wildberries", job)
			if err != nil {
				return err
			}

			marketplaceID, err := ensureMarketplace(ctx, d.st, "wildberries", "Wildberries", "https://www.wildberries.ru")
			if err != nil {
				return err
			}

			dm, err = dump.Prepare(ctx, d.repo, job)
			if err != nil {
				return err
			}

			if chunkSize <= 0 {
				chunkSize = d.cfg.GetChunkSize
			}

			err = pipeline.ProcessBatch(ctx, pipeline.Batch{
				Store:         d.st,
				ItemSource:    d.source,
				Dump:          dm,
				MarketplaceID: marketplaceID,
				RangeStart:    0,
				RangeCount:    dm.ItemsCrawled,
				ChunkSize:     chunkSize,
				SaveVersions:  false,
				SaveChunkSize: d.cfg.SaveChunkSize,
				CopySafe:      config.CopySafeEntities,
			})
			if err != nil {
				return err
			}

			debug.PrintlnNormal("prepared", job)
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk_size", 0, "item fetch chunk size (default from config)")
	cmd.Flags().String("background", "no", "accepted for CLI compatibility; this binary always runs synchronously")

	return cmd
}
