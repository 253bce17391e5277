package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wondersell/wildsearch-indexer/internal/config"
	"github.com/wondersell/wildsearch-indexer/internal/dump"
	"github.com/wondersell/wildsearch-indexer/internal/itemsource"
	"github.com/wondersell/wildsearch-indexer/internal/store"
)

// deps bundles everything a subcommand needs once config and the database
// pool are set up.
type deps struct {
	cfg    config.Config
	pool   *pgxpool.Pool
	st     store.Store
	repo   *dump.PostgresRepository
	source itemsource.Source
}

func bootstrap(ctx context.Context) (*deps, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.StoreDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect store: %w", err)
	}

	src := itemsource.NewHTTPItemSource(cfg.ItemSourceBaseURL, cfg.ItemSourceAPIKey, cfg.MaxNetworkRetries, cfg.RetryBaseDelay)

	d := &deps{
		cfg:    cfg,
		pool:   pool,
		st:     store.NewPostgresStore(pool),
		repo:   dump.NewPostgresRepository(pool),
		source: src,
	}

	return d, pool.Close, nil
}
