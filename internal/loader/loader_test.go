package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondersell/wildsearch-indexer/internal/loader"
	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/storetest"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

func TestLoader_FlushesOnChunkSize(t *testing.T) {
	fake := storetest.NewFake()
	ld := loader.New(fake, 2, map[string]bool{"brand": true})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, ld.Add(ctx, loader.BrandRow{ID: types.ID{byte(i)}, URL: "u", Name: "n"}))
	}

	require.Len(t, fake.LoadCalls, 1)
	assert.Equal(t, store.ModeFast, fake.LoadCalls[0].Mode)
	assert.Equal(t, 2, fake.LoadCalls[0].Rows)
}

func TestLoader_NonCopySafeEntityUsesRowPath(t *testing.T) {
	fake := storetest.NewFake()
	ld := loader.New(fake, 10, map[string]bool{}) // parameter_fact absent -> row path
	ctx := context.Background()

	require.NoError(t, ld.Add(ctx, loader.ParameterFactRow{ID: types.ID{1}, Value: "для кошек"}))
	require.NoError(t, ld.Flush(ctx))

	require.Len(t, fake.LoadCalls, 1)
	assert.Equal(t, store.ModeRow, fake.LoadCalls[0].Mode)
}

func TestLoader_EvictsSingleRejectedRowAndRetries(t *testing.T) {
	fake := storetest.NewFake()
	fake.RejectLine = map[store.EntityKind]int{store.EntityBrand: 2}
	ld := loader.New(fake, 10, map[string]bool{"brand": true})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, ld.Add(ctx, loader.BrandRow{ID: types.ID{byte(i + 1)}, URL: "u", Name: "n"}))
	}
	require.NoError(t, ld.Flush(ctx))

	// First call: 3 rows, row 2 rejected. Eviction inserts row 2 alone via
	// ModeRow, then retries the remaining 2 rows via the original fast path.
	require.Len(t, fake.LoadCalls, 3)
	assert.Equal(t, 3, fake.LoadCalls[0].Rows)
	assert.Equal(t, store.ModeRow, fake.LoadCalls[1].Mode)
	assert.Equal(t, 1, fake.LoadCalls[1].Rows)
	assert.Equal(t, store.ModeFast, fake.LoadCalls[2].Mode)
	assert.Equal(t, 2, fake.LoadCalls[2].Rows)
}

func TestLoader_FlushIsNoopOnEmptyQueue(t *testing.T) {
	fake := storetest.NewFake()
	ld := loader.New(fake, 10, nil)
	require.NoError(t, ld.Flush(context.Background()))
	assert.Empty(t, fake.LoadCalls)
}
