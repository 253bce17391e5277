package pipeline

import (
	"context"
	"fmt"

	"github.com/wondersell/wildsearch-indexer/internal/debug"
	"github.com/wondersell/wildsearch-indexer/internal/loader"
	"github.com/wondersell/wildsearch-indexer/internal/resolver"
	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// resolveAll runs steps 1-4 of spec.md §4.3 for every kind but SKU, in the
// order Catalog -> Brand -> Seller -> Parameter. SKU is resolved per-item
// in processChunk once brand ids are known. Returns each kind's
// key -> id map plus one guessed article per item (empty string marks an
// item whose article could not be inferred).
func resolveAll(ctx context.Context, res *resolver.Resolver, marketplaceID types.ID, items []types.Item) (
	catalogIDs, brandIDs, sellerIDs, paramIDs map[string]types.ID, articles []string, err error,
) {
	articles = make([]string, len(items))

	catalogPending := map[string]resolver.Pending{}
	brandPending := map[string]resolver.Pending{}
	sellerPending := map[string]resolver.Pending{}
	paramPending := map[string]resolver.Pending{}

	for i, item := range items {
		article, aerr := guessArticle(item)
		if aerr != nil {
			debug.Warnf("pipeline: %v, skipping item", aerr)
			articles[i] = ""
		} else {
			articles[i] = article
		}

		if item.CategoryURL != nil {
			url := *item.CategoryURL
			name := url
			if item.CategoryName != nil {
				name = *item.CategoryName
			}
			catalogPending[url] = resolver.Pending{
				Key: url,
				Build: func(id types.ID) store.Row {
					// original_source's collect_wb_catalogs() hardcodes
					// level: 1 for every catalog it ever observes; parent
					// is always left empty, there's no deeper nesting.
					return loader.CatalogRow{ID: id, MarketplaceID: marketplaceID, URL: url, Name: &name, Level: intp(1)}
				},
			}
		}

		if item.BrandURL != nil {
			url := *item.BrandURL
			name := ""
			if item.BrandName != nil {
				name = *item.BrandName
			}
			brandPending[url] = resolver.Pending{
				Key: url,
				Build: func(id types.ID) store.Row {
					return loader.BrandRow{ID: id, MarketplaceID: marketplaceID, URL: url, Name: name}
				},
			}
		}

		if item.SellerURL != nil {
			url := *item.SellerURL
			name := ""
			if item.SellerName != nil {
				name = *item.SellerName
			}
			sellerPending[url] = resolver.Pending{
				Key: url,
				Build: func(id types.ID) store.Row {
					return loader.SellerRow{ID: id, MarketplaceID: marketplaceID, URL: url, Name: name}
				},
			}
		}

		for name := range item.Features {
			name := name
			paramPending[name] = resolver.Pending{
				Key: name,
				Build: func(id types.ID) store.Row {
					return loader.ParameterDictRow{ID: id, MarketplaceID: marketplaceID, Name: name}
				},
			}
		}
	}

	catalogIDs, err = res.Resolve(ctx, resolver.KindCatalog, flatten(catalogPending))
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("resolve catalog: %w", err)
	}
	brandIDs, err = res.Resolve(ctx, resolver.KindBrand, flatten(brandPending))
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("resolve brand: %w", err)
	}
	sellerIDs, err = res.Resolve(ctx, resolver.KindSeller, flatten(sellerPending))
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("resolve seller: %w", err)
	}
	paramIDs, err = res.Resolve(ctx, resolver.KindParameter, flatten(paramPending))
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("resolve parameter: %w", err)
	}

	return catalogIDs, brandIDs, sellerIDs, paramIDs, articles, nil
}

func flatten(m map[string]resolver.Pending) []resolver.Pending {
	out := make([]resolver.Pending, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}

func intp(i int) *int { return &i }
