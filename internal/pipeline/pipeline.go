// Package pipeline implements the Chunked Pipeline (spec.md §4.5): the main
// driver that streams items from an Item Source in fetch-chunks, feeds the
// Dictionary Resolver, and — when requested — bulk-writes Version and fact
// rows for every item.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wondersell/wildsearch-indexer/internal/debug"
	"github.com/wondersell/wildsearch-indexer/internal/itemsource"
	"github.com/wondersell/wildsearch-indexer/internal/loader"
	"github.com/wondersell/wildsearch-indexer/internal/resolver"
	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

var pipelineMeter = otel.Meter("github.com/wondersell/wildsearch-indexer/pipeline")

var pipelineMetrics struct {
	itemsProcessed metric.Int64Counter
	chunkElapsed   metric.Float64Histogram
	rssBytes       metric.Int64Counter
}

func init() {
	pipelineMetrics.itemsProcessed, _ = pipelineMeter.Int64Counter("wdf.pipeline.items_processed",
		metric.WithDescription("items processed per chunk"),
		metric.WithUnit("{item}"),
	)
	pipelineMetrics.chunkElapsed, _ = pipelineMeter.Float64Histogram("wdf.pipeline.chunk_elapsed_seconds",
		metric.WithDescription("wall time spent processing one fetch chunk"),
		metric.WithUnit("s"),
	)
	pipelineMetrics.rssBytes, _ = pipelineMeter.Int64Counter("wdf.pipeline.rss_sampled_bytes",
		metric.WithDescription("resident set size sampled at chunk boundaries"),
		metric.WithUnit("By"),
	)
}

// RSSSampler reports the current process's resident set size. Production
// code backs it with gopsutil; tests can stub it.
type RSSSampler func() (uint64, error)

// Batch carries everything ProcessBatch needs for one invocation: spec.md
// §4.6 maps this 1:1 onto one prepare_dump or import_dump scheduler task.
type Batch struct {
	Store         store.Store
	ItemSource    itemsource.Source
	Dump          *types.Dump
	MarketplaceID types.ID

	RangeStart int
	RangeCount int
	ChunkSize  int

	SaveVersions  bool
	SaveChunkSize int
	CopySafe      map[string]bool

	RSSThresholdBytes int64
	SampleRSS         RSSSampler
}

// ProcessBatch runs spec.md §4.5's loop: for each fetch chunk, clear the
// resolver, collect and resolve dictionary keys, and — if SaveVersions —
// write a Version plus its facts for every item. When SaveVersions is true
// the whole call runs inside a single transaction (spec.md §5); prepare
// calls it with SaveVersions false and no transaction is opened.
func ProcessBatch(ctx context.Context, b Batch) error {
	var target loader.Target = b.Store
	var commit func(context.Context) error
	var rollback func(context.Context) error

	if b.SaveVersions {
		tx, err := b.Store.Begin(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: begin: %w", err)
		}
		target = tx
		commit = tx.Commit
		rollback = tx.Rollback
	}

	ld := loader.New(target, b.SaveChunkSize, b.CopySafe)
	res := resolver.New(b.Store, ld)

	chunks, errc := b.ItemSource.Fetch(ctx, b.Dump.Job, b.RangeStart, b.RangeCount, b.ChunkSize)

	for chunk := range chunks {
		if err := ctx.Err(); err != nil {
			if rollback != nil {
				_ = rollback(ctx)
			}
			return err
		}

		start := time.Now()
		if err := processChunk(ctx, res, ld, b, chunk); err != nil {
			if rollback != nil {
				_ = rollback(ctx)
			}
			return fmt.Errorf("pipeline: process chunk: %w", err)
		}
		rss := recordMetrics(ctx, b, len(chunk.Items), time.Since(start))
		if b.RSSThresholdBytes > 0 && rss > uint64(b.RSSThresholdBytes) {
			debug.Warnf("pipeline: rss %d exceeds threshold %d, clearing resolver caches early\n", rss, b.RSSThresholdBytes)
			res.Clear()
		}
	}

	if err := <-errc; err != nil {
		if rollback != nil {
			_ = rollback(ctx)
		}
		return err
	}

	if err := ld.Flush(ctx); err != nil {
		if rollback != nil {
			_ = rollback(ctx)
		}
		return fmt.Errorf("pipeline: final flush: %w", err)
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return fmt.Errorf("pipeline: commit: %w", err)
		}
	}

	return nil
}

func processChunk(ctx context.Context, res *resolver.Resolver, ld *loader.Loader, b Batch, chunk itemsource.Chunk) error {
	res.Clear()

	catalogIDs, brandIDs, sellerIDs, paramIDs, articles, err := resolveAll(ctx, res, b.MarketplaceID, chunk.Items)
	if err != nil {
		return err
	}

	skuPending := make(map[string]resolver.Pending, len(chunk.Items))
	for i, item := range chunk.Items {
		article := articles[i]
		if article == "" {
			continue // guessArticle failed; already surfaced as a row-level error upstream
		}
		item, article := item, article
		skuPending[article] = resolver.Pending{
			Key: article,
			Build: func(id types.ID) store.Row {
				return loader.SKURow{
					ID:            id,
					MarketplaceID: b.MarketplaceID,
					BrandID:       brandIDFor(item, brandIDs),
					Article:       article,
					Title:         truncateTitle(item.ProductName),
					URL:           item.ProductURL,
				}
			},
		}
	}

	skuIDs, err := res.Resolve(ctx, resolver.KindSKU, flatten(skuPending))
	if err != nil {
		return fmt.Errorf("resolve sku: %w", err)
	}

	if !b.SaveVersions {
		return nil
	}

	for i, item := range chunk.Items {
		article := articles[i]
		if article == "" {
			continue
		}
		if err := writeFacts(ctx, ld, b, item, skuIDs[article], catalogIDs, sellerIDs, paramIDs); err != nil {
			return err
		}
	}

	return nil
}

func brandIDFor(item types.Item, brandIDs map[string]types.ID) *types.ID {
	if item.BrandURL == nil {
		return nil
	}
	id, ok := brandIDs[*item.BrandURL]
	if !ok {
		return nil
	}
	return &id
}

func recordMetrics(ctx context.Context, b Batch, itemCount int, elapsed time.Duration) uint64 {
	attrs := metric.WithAttributes(attribute.String("job", b.Dump.Job))
	pipelineMetrics.itemsProcessed.Add(ctx, int64(itemCount), attrs)
	pipelineMetrics.chunkElapsed.Record(ctx, elapsed.Seconds(), attrs)

	if b.SampleRSS == nil {
		return 0
	}
	rss, err := b.SampleRSS()
	if err != nil {
		return 0
	}
	pipelineMetrics.rssBytes.Add(ctx, int64(rss), attrs)
	return rss
}
