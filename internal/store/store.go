// Package store abstracts the relational database the indexing pipeline
// persists into. It never caches — caching is strictly the Dictionary
// Resolver's job (spec.md §4.1) — and it never knows about dictionary kinds
// or fact kinds; it moves rows by entity name and column name only.
package store

import "context"

// EntityKind names one of the tables the pipeline writes to. It is a
// closed set so the loader and the gateway agree on table/column wiring
// without a string-keyed lookup at the call site.
type EntityKind string

const (
	EntityMarketplace EntityKind = "marketplace"
	EntityBrand       EntityKind = "brand"
	EntitySeller      EntityKind = "seller_dict"
	EntityCatalog     EntityKind = "catalog"
	EntityParameter   EntityKind = "parameter_dict"
	EntitySKU         EntityKind = "sku"
	EntityVersion     EntityKind = "version"
	EntityPrice       EntityKind = "price"
	EntityRating      EntityKind = "rating"
	EntitySales       EntityKind = "sales"
	EntityReviews     EntityKind = "reviews"
	EntityPosition    EntityKind = "position"
	EntitySellerFact  EntityKind = "seller_fact"
	EntityParamFact   EntityKind = "parameter_fact"
)

// LoadMode selects the Bulk Loader's load path for one slice of rows.
type LoadMode int

const (
	// ModeFast uses the store's binary/streaming bulk path.
	ModeFast LoadMode = iota
	// ModeRow inserts rows one at a time, tolerating individual failures
	// the way a single quarantined row would be retried on its own.
	ModeRow
)

// Row is one entity row destined for BulkLoad. Columns returns the column
// names in the exact order Values will present them, which lets the fast
// path and the row path share one row shape.
type Row interface {
	Entity() EntityKind
	Columns() []string
	Values() []any
}

// Store is the gateway contract: lookup, bulk load, arbitrary exec, and a
// transactional bracket. Implementations must not retain any row state
// between calls.
type Store interface {
	// Lookup resolves a natural-key column to ids for an existing row set.
	// Returns an empty map without issuing a query when keys is empty.
	Lookup(ctx context.Context, entity EntityKind, column string, keys []string) (map[string][16]byte, error)

	// BulkLoad writes rows of a single entity kind in the requested mode.
	// On a ModeFast row rejection it returns *types.StoreRowRejectedError
	// identifying the offending row's 1-based position within rows.
	BulkLoad(ctx context.Context, entity EntityKind, rows []Row, mode LoadMode) error

	// Exec runs an arbitrary parameterized statement, used by prune and
	// merge cascades.
	Exec(ctx context.Context, sql string, args ...any) error

	// Begin opens a transactional bracket. Only the import phase of one
	// pipeline invocation runs inside a single bracket (spec.md §5).
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transactional bracket over Store's write operations.
type Tx interface {
	BulkLoad(ctx context.Context, entity EntityKind, rows []Row, mode LoadMode) error
	Exec(ctx context.Context, sql string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
