package main

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"

	"github.com/wondersell/wildsearch-indexer/internal/config"
	"github.com/wondersell/wildsearch-indexer/internal/debug"
	"github.com/wondersell/wildsearch-indexer/internal/dump"
	"github.com/wondersell/wildsearch-indexer/internal/jobgraph"
	"github.com/wondersell/wildsearch-indexer/internal/pipeline"
)

func newImportDumpCmd() *cobra.Command {
	var chunkSize, groupSize, start, count int

	cmd := &cobra.Command{
		Use:   "import-dump <job>",
		Short: "Write version and fact rows for a window of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			job := args[0]

			d, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			dm, err := dump.Import(ctx, d.repo, job)
			if err != nil {
				return err
			}

			marketplaceID, err := ensureMarketplace(ctx, d.st, "wildberries", "Wildberries", "https://www.wildberries.ru")
			if err != nil {
				return err
			}

			if chunkSize <= 0 {
				chunkSize = d.cfg.GetChunkSize
			}
			if count <= 0 {
				count = dm.ItemsCrawled
			}
			if groupSize <= 0 {
				groupSize = count
			}

			// Fan out [start, start+count) as ceil(count/group_size) windows
			// and run them concurrently through Chord, with wrap_dump as the
			// barrier -- the in-process stand-in for the external
			// scheduler's chain(prepare, chord(import..., wrap)).
			var windows []func(context.Context) error
			for offset := start; offset < start+count; offset += groupSize {
				n := groupSize
				if remaining := start + count - offset; remaining < n {
					n = remaining
				}
				windowStart, windowCount := offset, n

				windows = append(windows, func(ctx context.Context) error {
					return pipeline.ProcessBatch(ctx, pipeline.Batch{
						Store:             d.st,
						ItemSource:        d.source,
						Dump:              dm,
						MarketplaceID:     marketplaceID,
						RangeStart:        windowStart,
						RangeCount:        windowCount,
						ChunkSize:         chunkSize,
						SaveVersions:      true,
						SaveChunkSize:     d.cfg.SaveChunkSize,
						CopySafe:          config.CopySafeEntities,
						RSSThresholdBytes: d.cfg.RSSThresholdBytes,
						SampleRSS:         sampleRSS,
					})
				})
			}

			err = jobgraph.Chord(ctx, windows, func(ctx context.Context) error {
				_, wrapErr := dump.Wrap(ctx, d.repo, job)
				return wrapErr
			})
			if err != nil {
				return err
			}

			debug.PrintlnNormal("imported", job, "[", start, count, "]")
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk_size", 0, "item fetch chunk size (default from config)")
	cmd.Flags().IntVar(&groupSize, "group_size", 0, "items per import window in the chord fan-out (default: one window for the whole range)")
	cmd.Flags().IntVar(&start, "start", 0, "window start offset")
	cmd.Flags().IntVar(&count, "count", 0, "window item count (default: whole job)")
	cmd.Flags().String("background", "no", "accepted for CLI compatibility; this binary always runs synchronously")

	return cmd
}

// sampleRSS reports this process's own resident set size via gopsutil,
// backing pipeline.Batch.SampleRSS.
func sampleRSS() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return mem.RSS, nil
}
