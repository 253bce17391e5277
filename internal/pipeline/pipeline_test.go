package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondersell/wildsearch-indexer/internal/itemsource"
	"github.com/wondersell/wildsearch-indexer/internal/pipeline"
	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/storetest"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// fakeSource streams one fixed set of chunks and never errors, standing in
// for the HTTP item source in pipeline tests.
type fakeSource struct {
	chunks []itemsource.Chunk
}

func (s *fakeSource) Fetch(_ context.Context, _ string, _, _, _ int) (<-chan itemsource.Chunk, <-chan error) {
	out := make(chan itemsource.Chunk, len(s.chunks))
	errc := make(chan error, 1)
	for _, c := range s.chunks {
		out <- c
	}
	close(out)
	close(errc)
	return out, errc
}

func (s *fakeSource) Metadata(_ context.Context, _ string) (types.JobMetadata, error) {
	return types.JobMetadata{ItemsCrawled: len(s.chunks)}, nil
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }
func f64p(f float64) *float64 { return &f }

// scenarioAItem is spec.md §8's Scenario A fixture: a single fully populated
// item for a marketplace with no prior dictionary rows.
func scenarioAItem() types.Item {
	parseDate, _ := time.Parse("2006-01-02 15:04:05.999999", "2020-08-10 18:12:07.478756")
	return types.Item{
		WBID:             "11743005",
		ProductURL:       "https://www.wildberries.ru/catalog/11743005/detail.aspx",
		ProductName:      "Коврик для лотков и туалетов",
		ParseDate:        &parseDate,
		CategoryURL:      strp("https://www.wildberries.ru/catalog/0/search.aspx?kovriki-dlya-lotkov"),
		CategoryName:     strp("Коврики для лотков"),
		CategoryPosition: intp(14),
		BrandURL:         strp("https://www.wildberries.ru/brands/vita-famoso"),
		BrandName:        strp("Vita Famoso"),
		Price:            f64p(499.0),
		Rating:           f64p(4.5),
		Sales:            intp(120),
		Reviews:          intp(7),
		Features:         map[string]string{"Вид животного": "для кошек; для собак"},
	}
}

func TestProcessBatch_ScenarioA_WritesSKUVersionAndFacts(t *testing.T) {
	fake := storetest.NewFake()
	marketplaceID := types.ID{1}
	dump := &types.Dump{Job: "job-a", ID: types.ID{2}, ItemsCrawled: 1}
	source := &fakeSource{chunks: []itemsource.Chunk{{Items: []types.Item{scenarioAItem()}}}}

	err := pipeline.ProcessBatch(context.Background(), pipeline.Batch{
		Store:         fake,
		ItemSource:    source,
		Dump:          dump,
		MarketplaceID: marketplaceID,
		ChunkSize:     100,
		RangeCount:    1,
		SaveVersions:  true,
		SaveChunkSize: 100,
		CopySafe:      map[string]bool{"brand": true, "catalog": true, "sku": true, "version": true, "price": true, "rating": true, "sales": true, "reviews": true, "position": true, "parameter_dict": true, "parameter_fact": true},
	})
	require.NoError(t, err)

	entityCounts := map[store.EntityKind]int{}
	for _, call := range fake.LoadCalls {
		entityCounts[call.Entity] += call.Rows
	}

	assert.Equal(t, 1, entityCounts[store.EntityBrand])
	assert.Equal(t, 1, entityCounts[store.EntityCatalog])
	assert.Equal(t, 1, entityCounts[store.EntitySKU])
	assert.Equal(t, 1, entityCounts[store.EntityVersion])
	assert.Equal(t, 1, entityCounts[store.EntityPrice])
	assert.Equal(t, 1, entityCounts[store.EntityRating])
	assert.Equal(t, 1, entityCounts[store.EntitySales])
	assert.Equal(t, 1, entityCounts[store.EntityReviews])
	assert.Equal(t, 1, entityCounts[store.EntityPosition])
	assert.Equal(t, 1, entityCounts[store.EntityParameter])
	assert.Equal(t, 1, entityCounts[store.EntityParamFact])

	skuIDs, err := fake.Lookup(context.Background(), store.EntitySKU, "article", []string{"11743005"})
	require.NoError(t, err)
	assert.NotEmpty(t, skuIDs, "article should be inferred straight from wb_id, it is short enough")
}

func TestProcessBatch_SecondChunkReusesDictionaryRows(t *testing.T) {
	fake := storetest.NewFake()
	marketplaceID := types.ID{1}
	dump := &types.Dump{Job: "job-b", ID: types.ID{3}, ItemsCrawled: 2}

	item1 := scenarioAItem()
	item2 := scenarioAItem()
	item2.WBID = "11743006"
	item2.ProductURL = "https://www.wildberries.ru/catalog/11743006/detail.aspx"

	source := &fakeSource{chunks: []itemsource.Chunk{
		{Items: []types.Item{item1}},
		{Items: []types.Item{item2}},
	}}

	err := pipeline.ProcessBatch(context.Background(), pipeline.Batch{
		Store:         fake,
		ItemSource:    source,
		Dump:          dump,
		MarketplaceID: marketplaceID,
		ChunkSize:     1,
		RangeCount:    2,
		SaveVersions:  true,
		SaveChunkSize: 100,
		CopySafe:      map[string]bool{"brand": true, "catalog": true, "sku": true, "version": true, "price": true, "rating": true, "sales": true, "reviews": true, "position": true, "parameter_dict": true, "parameter_fact": true},
	})
	require.NoError(t, err)

	entityCounts := map[store.EntityKind]int{}
	for _, call := range fake.LoadCalls {
		entityCounts[call.Entity] += call.Rows
	}

	// Brand/catalog/parameter are shared across both items; each resolves
	// to the same row exactly once even though processChunk runs twice and
	// clears its in-chunk cache between chunks.
	assert.Equal(t, 1, entityCounts[store.EntityBrand])
	assert.Equal(t, 1, entityCounts[store.EntityCatalog])
	assert.Equal(t, 1, entityCounts[store.EntityParameter])
	assert.Equal(t, 2, entityCounts[store.EntitySKU])
	assert.Equal(t, 2, entityCounts[store.EntityVersion])
}

func TestProcessBatch_PrepareOnlyPhaseSkipsFactsButResolvesDictionaries(t *testing.T) {
	fake := storetest.NewFake()
	marketplaceID := types.ID{1}
	dump := &types.Dump{Job: "job-c", ID: types.ID{4}}
	source := &fakeSource{chunks: []itemsource.Chunk{{Items: []types.Item{scenarioAItem()}}}}

	err := pipeline.ProcessBatch(context.Background(), pipeline.Batch{
		Store:         fake,
		ItemSource:    source,
		Dump:          dump,
		MarketplaceID: marketplaceID,
		ChunkSize:     100,
		RangeCount:    1,
		SaveVersions:  false,
		SaveChunkSize: 100,
		CopySafe:      map[string]bool{"brand": true, "catalog": true},
	})
	require.NoError(t, err)

	entityCounts := map[store.EntityKind]int{}
	for _, call := range fake.LoadCalls {
		entityCounts[call.Entity] += call.Rows
	}

	assert.Equal(t, 1, entityCounts[store.EntityBrand])
	assert.Equal(t, 1, entityCounts[store.EntityCatalog])
	assert.Equal(t, 1, entityCounts[store.EntitySKU], "prepare resolves SKU rows but never writes versions or facts")
	assert.Zero(t, entityCounts[store.EntityVersion])
}

func TestProcessBatch_SamplesRSSOncePerChunkWhenThresholdSet(t *testing.T) {
	fake := storetest.NewFake()
	marketplaceID := types.ID{1}
	dump := &types.Dump{Job: "job-d", ID: types.ID{5}, ItemsCrawled: 1}
	source := &fakeSource{chunks: []itemsource.Chunk{{Items: []types.Item{scenarioAItem()}}}}

	samples := 0
	err := pipeline.ProcessBatch(context.Background(), pipeline.Batch{
		Store:         fake,
		ItemSource:    source,
		Dump:          dump,
		MarketplaceID: marketplaceID,
		ChunkSize:     100,
		RangeCount:    1,
		SaveVersions:  true,
		SaveChunkSize: 100,
		CopySafe:      map[string]bool{"brand": true, "catalog": true, "sku": true, "version": true, "price": true, "rating": true, "sales": true, "reviews": true, "position": true, "parameter_dict": true, "parameter_fact": true},
		RSSThresholdBytes: 1,
		SampleRSS: func() (uint64, error) {
			samples++
			return 1024, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, samples, "RSS sampler must be invoked once per chunk")
}
