package itemsource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// wireParseDateLayout matches the crawler export's parse_date format, e.g.
// "2020-08-10 18:12:07.478756" (no timezone: the original crawler always
// writes naive UTC timestamps).
const wireParseDateLayout = "2006-01-02 15:04:05.999999"

// wireCountOrBlank tolerates the crawler's habit of writing some count
// fields (reviews, in particular) as either a JSON number or an empty
// string when the page never surfaced a count at all.
type wireCountOrBlank struct {
	Value *int
}

func (w *wireCountOrBlank) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		w.Value = nil
		return nil
	}
	if len(trimmed) >= 2 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "" {
			zero := 0
			w.Value = &zero
			return nil
		}
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return fmt.Errorf("itemsource: count %q: %w", s, err)
		}
		w.Value = &n
		return nil
	}
	var n int
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	w.Value = &n
	return nil
}

// wireItem is the crawler export's on-the-wire field set, named exactly as
// original_source/src/wdf/indexer.py reads it off the scraped item. Go's
// encoding/json only matches field names case-insensitively, which cannot
// bridge wb_id -> WBID or wb_category_url -> CategoryURL on its own, so
// every field here carries an explicit json tag and translateItem does the
// rest of the mapping by hand.
type wireItem struct {
	WBID        string `json:"wb_id"`
	ProductURL  string `json:"product_url"`
	ProductName string `json:"product_name"`
	ParseDate   string `json:"parse_date"`

	CategoryURL      *string `json:"wb_category_url"`
	CategoryName     *string `json:"wb_category_name"`
	CategoryPosition *int    `json:"wb_category_position"`

	BrandURL  *string `json:"wb_brand_url"`
	BrandName *string `json:"wb_brand_name"`

	SellerURL  *string `json:"wb_seller_url"`
	SellerName *string `json:"wb_seller_name"`

	Price          *float64            `json:"wb_price"`
	Rating         *float64            `json:"wb_rating"`
	PurchasesCount *int                `json:"wb_purchases_count"`
	ReviewsCount   *wireCountOrBlank   `json:"wb_reviews_count"`
	Features       []map[string]string `json:"features"`
}

// translateItem maps one wireItem onto the domain Item, matching
// indexer.py's save_price/save_rating/save_sales/save_reviews/
// save_parameters: every counter is optional and absence means "no fact",
// features uses only the first element of the array.
func translateItem(w wireItem) types.Item {
	item := types.Item{
		WBID:             w.WBID,
		ProductURL:       w.ProductURL,
		ProductName:      w.ProductName,
		CategoryURL:      w.CategoryURL,
		CategoryName:     w.CategoryName,
		CategoryPosition: w.CategoryPosition,
		BrandURL:         w.BrandURL,
		BrandName:        w.BrandName,
		SellerURL:        w.SellerURL,
		SellerName:       w.SellerName,
		Price:            w.Price,
		Rating:           w.Rating,
		Sales:            w.PurchasesCount,
	}

	if w.ReviewsCount != nil {
		item.Reviews = w.ReviewsCount.Value
	}

	if w.ParseDate != "" {
		if t, err := time.Parse(wireParseDateLayout, w.ParseDate); err == nil {
			parsed := t.UTC()
			item.ParseDate = &parsed
		}
	}

	if len(w.Features) > 0 {
		item.Features = w.Features[0]
	}

	return item
}

func translateItems(wire []wireItem) []types.Item {
	out := make([]types.Item, len(wire))
	for i, w := range wire {
		out[i] = translateItem(w)
	}
	return out
}
