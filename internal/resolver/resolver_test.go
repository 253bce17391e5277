package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondersell/wildsearch-indexer/internal/loader"
	"github.com/wondersell/wildsearch-indexer/internal/resolver"
	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/storetest"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

func TestResolve_NewKeyInsertsAndCaches(t *testing.T) {
	fake := storetest.NewFake()
	ld := loader.New(fake, 100, map[string]bool{"brand": true})
	r := resolver.New(fake, ld)
	ctx := context.Background()

	ids, err := r.Resolve(ctx, resolver.KindBrand, []resolver.Pending{{
		Key: "https://example.test/brand/vita-famoso",
		Build: func(id types.ID) store.Row {
			return loader.BrandRow{ID: id, URL: "https://example.test/brand/vita-famoso", Name: "Vita Famoso"}
		},
	}})
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.False(t, ids["https://example.test/brand/vita-famoso"].IsZero())

	require.NoError(t, ld.Flush(ctx))

	// A second Resolve call for the same key must not enqueue a second
	// insert: the id came from the in-batch cache, not a fresh lookup.
	ids2, err := r.Resolve(ctx, resolver.KindBrand, []resolver.Pending{{
		Key: "https://example.test/brand/vita-famoso",
		Build: func(id types.ID) store.Row {
			t.Fatal("Build should not be called for an already-retrieved key")
			return nil
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, ids["https://example.test/brand/vita-famoso"], ids2["https://example.test/brand/vita-famoso"])
}

func TestResolve_PullsExistingRowFromStoreWithoutInserting(t *testing.T) {
	fake := storetest.NewFake()
	ld := loader.New(fake, 100, map[string]bool{"catalog": true})

	seedID := types.ID{1, 2, 3}
	require.NoError(t, fake.BulkLoad(context.Background(), store.EntityCatalog,
		[]store.Row{loader.CatalogRow{ID: seedID, URL: "https://example.test/catalog/kovriki"}},
		store.ModeFast))

	r := resolver.New(fake, ld)
	called := false
	ids, err := r.Resolve(context.Background(), resolver.KindCatalog, []resolver.Pending{{
		Key: "https://example.test/catalog/kovriki",
		Build: func(id types.ID) store.Row {
			called = true
			return loader.CatalogRow{ID: id, URL: "https://example.test/catalog/kovriki"}
		},
	}})
	require.NoError(t, err)
	assert.False(t, called, "existing row must come from lookup, not insert")
	assert.Equal(t, seedID, ids["https://example.test/catalog/kovriki"])
}

func TestResolve_EmptyPendingIsNoop(t *testing.T) {
	fake := storetest.NewFake()
	ld := loader.New(fake, 100, nil)
	r := resolver.New(fake, ld)

	ids, err := r.Resolve(context.Background(), resolver.KindParameter, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, fake.LoadCalls)
}

func TestMergeDuplicates_RejectsSameID(t *testing.T) {
	fake := storetest.NewFake()
	tx, err := fake.Begin(context.Background())
	require.NoError(t, err)

	id := types.ID{9}
	err = resolver.MergeDuplicates(context.Background(), tx, id, id)
	assert.Error(t, err)
}

func TestMergeDuplicates_RepointsEveryFactTable(t *testing.T) {
	fake := storetest.NewFake()
	tx, err := fake.Begin(context.Background())
	require.NoError(t, err)

	keeper := types.ID{1}
	loser := types.ID{2}
	require.NoError(t, resolver.MergeDuplicates(context.Background(), tx, keeper, loser))
	require.NoError(t, tx.Commit(context.Background()))

	tables := []string{"wdf_version", "wdf_price", "wdf_rating", "wdf_sales", "wdf_reviews", "wdf_position", "wdf_parameter", "wdf_seller"}
	require.Len(t, fake.ExecCalls, len(tables)+1)
	for i, table := range tables {
		assert.Contains(t, fake.ExecCalls[i].SQL, "UPDATE "+table+" SET sku_id")
		assert.Equal(t, []any{keeper, loser}, fake.ExecCalls[i].Args)
	}
	assert.Contains(t, fake.ExecCalls[len(tables)].SQL, "DELETE FROM wdf_sku")
}
