package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wondersell/wildsearch-indexer/internal/loader"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

func newID() types.ID { return types.ID(uuid.New()) }

// writeFacts enqueues one Version row and every present fact row for item,
// in the order versions -> price -> rating -> sales -> reviews -> position
// -> parameters -> seller, matching spec.md §5's "SKU writes precede
// Version writes which precede fact writes" within-chunk ordering.
func writeFacts(ctx context.Context, ld *loader.Loader, b Batch, item types.Item, skuID types.ID,
	catalogIDs, sellerIDs, paramIDs map[string]types.ID) error {

	versionID := newID()
	crawledAt := time.Now().UTC()
	if item.ParseDate != nil {
		crawledAt = item.ParseDate.UTC()
	}

	if err := ld.Add(ctx, loader.VersionRow{
		ID:        versionID,
		DumpID:    b.Dump.ID,
		SKUID:     skuID,
		CrawledAt: crawledAt,
	}); err != nil {
		return err
	}

	if item.Price != nil {
		if err := ld.Add(ctx, loader.PriceRow{
			ID: newID(), SKUID: skuID, VersionID: versionID, Price: *item.Price,
		}); err != nil {
			return err
		}
	}

	if item.Rating != nil {
		if err := ld.Add(ctx, loader.RatingRow{
			ID: newID(), SKUID: skuID, VersionID: versionID, Rating: *item.Rating,
		}); err != nil {
			return err
		}
	}

	if item.Sales != nil {
		if err := ld.Add(ctx, loader.SalesRow{
			ID: newID(), SKUID: skuID, VersionID: versionID, Sales: *item.Sales,
		}); err != nil {
			return err
		}
	}

	if item.Reviews != nil {
		// Empty-string reviews already normalize to 0 before reaching Item
		// (spec.md §4.5's reviews normalization rule); *item.Reviews is
		// always a concrete count here.
		if err := ld.Add(ctx, loader.ReviewsRow{
			ID: newID(), SKUID: skuID, VersionID: versionID, Reviews: *item.Reviews,
		}); err != nil {
			return err
		}
	}

	if item.CategoryURL != nil && item.CategoryPosition != nil {
		if catalogID, ok := catalogIDs[*item.CategoryURL]; ok {
			if err := ld.Add(ctx, loader.PositionRow{
				ID: newID(), SKUID: skuID, VersionID: versionID,
				CatalogID: catalogID, Absolute: *item.CategoryPosition,
			}); err != nil {
				return err
			}
		}
	}

	for name, value := range item.Features {
		paramID, ok := paramIDs[name]
		if !ok {
			continue
		}
		if err := ld.Add(ctx, loader.ParameterFactRow{
			ID: newID(), SKUID: skuID, VersionID: versionID, ParameterID: paramID, Value: value,
		}); err != nil {
			return err
		}
	}

	if item.SellerURL != nil {
		if sellerID, ok := sellerIDs[*item.SellerURL]; ok {
			if err := ld.Add(ctx, loader.SellerFactRow{
				ID: newID(), SKUID: skuID, SellerID: sellerID,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}
