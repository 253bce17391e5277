package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wondersell/wildsearch-indexer/internal/dump"
	"github.com/wondersell/wildsearch-indexer/internal/itemsource"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// ensureDump loads the Dump for job, creating it from the Item Source's job
// metadata on first touch (spec.md §4.4: "items_crawled and the two
// timestamps are filled once... the first time the dump is touched").
func ensureDump(ctx context.Context, repo *dump.PostgresRepository, source itemsource.Source, crawler, job string) (*types.Dump, error) {
	d, err := repo.Get(ctx, job)
	if err == nil {
		return d, nil
	}
	if !strings.Contains(err.Error(), "no such job") {
		return nil, err
	}

	meta, err := source.Metadata(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("ensure_dump: fetch metadata: %w", err)
	}

	d = &types.Dump{
		ID:             types.ID(uuid.New()),
		Crawler:        crawler,
		Job:            job,
		ItemsCrawled:   meta.ItemsCrawled,
		CrawlStartedAt: time.UnixMilli(meta.RunningTimeMS).UTC(),
		CrawlEndedAt:   time.UnixMilli(meta.FinishedTimeMS).UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	d.SetState(types.StateCreated)

	if err := repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("ensure_dump: save: %w", err)
	}
	return d, nil
}
