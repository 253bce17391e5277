package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// ensureMarketplace resolves slug to its dictionary id, inserting a new row
// on first sighting. It is the one dictionary lookup the CLI performs
// outside the per-chunk resolver cycle, since a job's marketplace is fixed
// for the whole invocation.
func ensureMarketplace(ctx context.Context, st store.Store, slug, name, url string) (types.ID, error) {
	found, err := st.Lookup(ctx, store.EntityMarketplace, "slug", []string{slug})
	if err != nil {
		return types.ID{}, fmt.Errorf("ensure_marketplace: lookup: %w", err)
	}
	if id, ok := found[slug]; ok {
		return types.ID(id), nil
	}

	id := types.ID(uuid.New())
	err = st.Exec(ctx,
		"INSERT INTO wdf_dict_marketplace (id, slug, name, url) VALUES ($1,$2,$3,$4) ON CONFLICT (slug) DO NOTHING",
		id, slug, name, url)
	if err != nil {
		return types.ID{}, fmt.Errorf("ensure_marketplace: insert: %w", err)
	}

	found, err = st.Lookup(ctx, store.EntityMarketplace, "slug", []string{slug})
	if err != nil {
		return types.ID{}, fmt.Errorf("ensure_marketplace: re-lookup: %w", err)
	}
	return types.ID(found[slug]), nil
}
