// Package loader implements the Bulk Loader (spec.md §4.2): a tagged-row
// queue keyed by entity kind, sliced and flushed through the Store
// Gateway's fast or row path, with single-row eviction on partial failure.
package loader

import (
	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// Each Row implementation below is a thin, ordered view over one entity's
// insert columns. Callers build each row already stamped with a fresh id
// (the resolver passes one to Pending.Build) so the id can be referenced
// (e.g. a brand id) before the row is actually flushed to the store.

type MarketplaceRow struct {
	ID   types.ID
	Slug string
	Name string
	URL  string
}

func (r MarketplaceRow) Entity() store.EntityKind { return store.EntityMarketplace }
func (r MarketplaceRow) Columns() []string        { return []string{"id", "slug", "name", "url"} }
func (r MarketplaceRow) Values() []any             { return []any{r.ID, r.Slug, r.Name, r.URL} }

type BrandRow struct {
	ID            types.ID
	MarketplaceID types.ID
	URL           string
	Name          string
}

func (r BrandRow) Entity() store.EntityKind { return store.EntityBrand }
func (r BrandRow) Columns() []string        { return []string{"id", "marketplace_id", "url", "name"} }
func (r BrandRow) Values() []any {
	return []any{r.ID, r.MarketplaceID, r.URL, r.Name}
}

type SellerRow struct {
	ID            types.ID
	MarketplaceID types.ID
	URL           string
	Name          string
}

func (r SellerRow) Entity() store.EntityKind { return store.EntitySeller }
func (r SellerRow) Columns() []string        { return []string{"id", "marketplace_id", "url", "name"} }
func (r SellerRow) Values() []any {
	return []any{r.ID, r.MarketplaceID, r.URL, r.Name}
}

type CatalogRow struct {
	ID            types.ID
	MarketplaceID types.ID
	ParentID      *types.ID
	Name          *string
	URL           string
	Level         *int
}

func (r CatalogRow) Entity() store.EntityKind { return store.EntityCatalog }
func (r CatalogRow) Columns() []string {
	return []string{"id", "marketplace_id", "parent_id", "name", "url", "level"}
}
func (r CatalogRow) Values() []any {
	return []any{r.ID, r.MarketplaceID, r.ParentID, r.Name, r.URL, r.Level}
}

type ParameterDictRow struct {
	ID            types.ID
	MarketplaceID types.ID
	Name          string
}

func (r ParameterDictRow) Entity() store.EntityKind { return store.EntityParameter }
func (r ParameterDictRow) Columns() []string        { return []string{"id", "marketplace_id", "name"} }
func (r ParameterDictRow) Values() []any            { return []any{r.ID, r.MarketplaceID, r.Name} }

type SKURow struct {
	ID            types.ID
	MarketplaceID types.ID
	BrandID       *types.ID
	Article       string
	Title         string
	URL           string
}

func (r SKURow) Entity() store.EntityKind { return store.EntitySKU }
func (r SKURow) Columns() []string {
	return []string{"id", "marketplace_id", "brand_id", "article", "title", "url"}
}
func (r SKURow) Values() []any {
	return []any{r.ID, r.MarketplaceID, r.BrandID, r.Article, r.Title, r.URL}
}

type VersionRow struct {
	ID           types.ID
	DumpID       types.ID
	SKUID        types.ID
	CatalogLevel *int
	CrawledAt    any // time.Time, any to avoid importing time here twice
}

func (r VersionRow) Entity() store.EntityKind { return store.EntityVersion }
func (r VersionRow) Columns() []string {
	return []string{"id", "dump_id", "sku_id", "catalog_level", "crawled_at"}
}
func (r VersionRow) Values() []any {
	return []any{r.ID, r.DumpID, r.SKUID, r.CatalogLevel, r.CrawledAt}
}

type PriceRow struct {
	ID         types.ID
	SKUID      types.ID
	VersionID  types.ID
	Price      float64
	PriceDirty *float64
	Discount   float64
}

func (r PriceRow) Entity() store.EntityKind { return store.EntityPrice }
func (r PriceRow) Columns() []string {
	return []string{"id", "sku_id", "version_id", "price", "price_dirty", "discount"}
}
func (r PriceRow) Values() []any {
	return []any{r.ID, r.SKUID, r.VersionID, r.Price, r.PriceDirty, r.Discount}
}

type RatingRow struct {
	ID        types.ID
	SKUID     types.ID
	VersionID types.ID
	Rating    float64
}

func (r RatingRow) Entity() store.EntityKind { return store.EntityRating }
func (r RatingRow) Columns() []string        { return []string{"id", "sku_id", "version_id", "rating"} }
func (r RatingRow) Values() []any            { return []any{r.ID, r.SKUID, r.VersionID, r.Rating} }

type SalesRow struct {
	ID        types.ID
	SKUID     types.ID
	VersionID types.ID
	Sales     int
}

func (r SalesRow) Entity() store.EntityKind { return store.EntitySales }
func (r SalesRow) Columns() []string        { return []string{"id", "sku_id", "version_id", "sales"} }
func (r SalesRow) Values() []any            { return []any{r.ID, r.SKUID, r.VersionID, r.Sales} }

type ReviewsRow struct {
	ID        types.ID
	SKUID     types.ID
	VersionID types.ID
	Reviews   int
}

func (r ReviewsRow) Entity() store.EntityKind { return store.EntityReviews }
func (r ReviewsRow) Columns() []string        { return []string{"id", "sku_id", "version_id", "reviews"} }
func (r ReviewsRow) Values() []any            { return []any{r.ID, r.SKUID, r.VersionID, r.Reviews} }

type PositionRow struct {
	ID         types.ID
	SKUID      types.ID
	VersionID  types.ID
	CatalogID  types.ID
	Absolute   int
	Percentile *float64
}

func (r PositionRow) Entity() store.EntityKind { return store.EntityPosition }
func (r PositionRow) Columns() []string {
	return []string{"id", "sku_id", "version_id", "catalog_id", "absolute", "percentile"}
}
func (r PositionRow) Values() []any {
	return []any{r.ID, r.SKUID, r.VersionID, r.CatalogID, r.Absolute, r.Percentile}
}

type SellerFactRow struct {
	ID       types.ID
	SKUID    types.ID
	SellerID types.ID
}

func (r SellerFactRow) Entity() store.EntityKind { return store.EntitySellerFact }
func (r SellerFactRow) Columns() []string        { return []string{"id", "sku_id", "seller_id"} }
func (r SellerFactRow) Values() []any            { return []any{r.ID, r.SKUID, r.SellerID} }

type ParameterFactRow struct {
	ID          types.ID
	SKUID       types.ID
	VersionID   types.ID
	ParameterID types.ID
	Value       string
}

func (r ParameterFactRow) Entity() store.EntityKind { return store.EntityParamFact }
func (r ParameterFactRow) Columns() []string {
	return []string{"id", "sku_id", "version_id", "parameter_id", "value"}
}
func (r ParameterFactRow) Values() []any {
	return []any{r.ID, r.SKUID, r.VersionID, r.ParameterID, r.Value}
}
