package types

import "time"

// ID is the opaque 128-bit identifier shared by every entity. Stores are
// free to back it with a UUID or any other 128-bit scheme; the core never
// inspects its structure.
type ID [16]byte

// IsZero reports whether the id was never assigned.
func (id ID) IsZero() bool {
	return id == ID{}
}

// Marketplace is the root dictionary entity: one row per crawler tag.
type Marketplace struct {
	ID   ID
	Slug string // unique natural key
	Name string
	URL  string
}

// Brand is keyed by URL, scoped to a marketplace. Duplicates are tolerated
// (see the Dictionary Resolver's lookup-then-insert race contract).
type Brand struct {
	ID            ID
	MarketplaceID ID
	URL           string // natural key
	Name          string
}

// Seller mirrors Brand: a marketplace-scoped dictionary keyed by URL.
// Supplemental entity restored from original_source/models.py (DictSeller),
// dropped by spec.md's distillation.
type Seller struct {
	ID            ID
	MarketplaceID ID
	URL           string // natural key
	Name          string
}

// Catalog is a self-referential tree, though the source never populates
// Parent today (see SPEC_FULL.md §9 / the catalog-parent open question).
type Catalog struct {
	ID            ID
	MarketplaceID ID
	ParentID      *ID
	Name          *string
	URL           string // natural key
	Level         *int
}

// Parameter is a dictionary entry for one named product feature, scoped to
// a marketplace (feature names are not globally unique across marketplaces).
type Parameter struct {
	ID            ID
	MarketplaceID ID
	Name          string // natural key, scoped per marketplace
}

// SKU is a product identity keyed by Article. Article uniqueness per
// marketplace is a documented invariant, not a DB constraint — see
// SPEC_FULL.md §9 and MergeDuplicates.
type SKU struct {
	ID            ID
	MarketplaceID ID
	BrandID       *ID
	Article       string // natural key, globally unique per marketplace
	Title         string // truncated to MaxTitleLength
	URL           string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MaxTitleLength is the schema's column width for SKU.Title.
const MaxTitleLength = 512

// StateCode is the Dump lifecycle's monotonic state. See spec.md §4.4.
type StateCode int

const (
	StateError      StateCode = -1
	StateCreated    StateCode = 0
	StatePreparing  StateCode = 5
	StatePrepared   StateCode = 10
	StateScheduling StateCode = 15
	StateScheduled  StateCode = 20
	StateProcessing StateCode = 25
	StateProcessed  StateCode = 30
)

// String renders the lowercase state name stored alongside the code.
func (c StateCode) String() string {
	switch c {
	case StateError:
		return "error"
	case StateCreated:
		return "created"
	case StatePreparing:
		return "preparing"
	case StatePrepared:
		return "prepared"
	case StateScheduling:
		return "scheduling"
	case StateScheduled:
		return "scheduled"
	case StateProcessing:
		return "processing"
	case StateProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// Dump is one crawler job's ingestion lifecycle record.
type Dump struct {
	ID              ID
	Crawler         string
	Job             string
	State           string
	StateCode       StateCode
	ItemsCrawled    int
	CrawlStartedAt  time.Time
	CrawlEndedAt    time.Time
	CreatedAt       time.Time
}

// SetState stamps both the numeric and string state fields together, the
// way the teacher's state-carrying records keep a human label in sync with
// a machine-checked code.
func (d *Dump) SetState(code StateCode) {
	d.StateCode = code
	d.State = code.String()
}

// Version is one point-in-time observation of one SKU within a Dump.
type Version struct {
	ID            ID
	DumpID        ID
	SKUID         ID
	CatalogLevel  *int
	CrawledAt     time.Time
	CreatedAt     time.Time
}

// Price is a per-version price fact. PriceDirty and Discount are
// supplemental fields restored from original_source/models.py.
type Price struct {
	ID         ID
	SKUID      ID
	VersionID  ID
	Price      float64
	PriceDirty *float64
	Discount   float64
}

// Rating is a per-version rating fact.
type Rating struct {
	ID        ID
	SKUID     ID
	VersionID ID
	Rating    float64
}

// Sales is a per-version sales-count fact.
type Sales struct {
	ID        ID
	SKUID     ID
	VersionID ID
	Sales     int
}

// Reviews is a per-version review-count fact. An empty source value
// normalizes to 0, never to a missing row.
type Reviews struct {
	ID        ID
	SKUID     ID
	VersionID ID
	Reviews   int
}

// Position is a per-version, per-catalog ranking fact.
type Position struct {
	ID         ID
	SKUID      ID
	VersionID  ID
	CatalogID  ID
	Absolute   int
	Percentile *float64
}

// ParameterFact is a per-version, per-parameter feature value.
type ParameterFact struct {
	ID          ID
	SKUID       ID
	VersionID   ID
	ParameterID ID
	Value       string
}

// SellerFact links a SKU to the dictionary Seller it was observed under.
// Supplemental fact table restored from original_source/models.py.
type SellerFact struct {
	ID       ID
	SKUID    ID
	SellerID ID
}
