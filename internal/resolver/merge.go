package resolver

import (
	"context"
	"fmt"

	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// MergeDuplicates re-points every fact row from loser onto keeper, then
// deletes the loser SKU, all inside tx. It is grounded on
// original_source/models.py's Sku.merge_duplicates(), which ran the
// equivalent four UPDATEs plus a DELETE as raw SQL inside one Django atomic
// block. SellerFact is re-pointed too, since Seller facts did not exist in
// the distilled spec but do in the original (SPEC_FULL.md §4.3).
func MergeDuplicates(ctx context.Context, tx store.Tx, keeper, loser types.ID) error {
	if keeper == loser {
		return fmt.Errorf("resolver: merge_duplicates: keeper and loser are the same sku %x", keeper)
	}

	repoint := []struct {
		table string
	}{
		{"wdf_version"},
		{"wdf_price"},
		{"wdf_rating"},
		{"wdf_sales"},
		{"wdf_reviews"},
		{"wdf_position"},
		{"wdf_parameter"},
		{"wdf_seller"},
	}

	for _, r := range repoint {
		sql := fmt.Sprintf("UPDATE %s SET sku_id = $1 WHERE sku_id = $2", r.table) // #nosec G201 -- r.table is an internal constant, never user input
		if err := tx.Exec(ctx, sql, keeper, loser); err != nil {
			return fmt.Errorf("resolver: merge_duplicates: repoint %s: %w", r.table, err)
		}
	}

	if err := tx.Exec(ctx, "DELETE FROM wdf_sku WHERE id = $1", loser); err != nil {
		return fmt.Errorf("resolver: merge_duplicates: delete loser sku: %w", err)
	}

	return nil
}
