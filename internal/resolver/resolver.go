// Package resolver implements the Dictionary Resolver (spec.md §4.3): it
// turns the natural keys carried on incoming items (urls, names) into the
// opaque ids the fact tables reference, inserting new dictionary rows as
// needed and caching everything it has seen so a chunk never looks the same
// key up twice.
//
// Dictionary kinds used to be routed through a single getattr-style cache
// keyed by a string name (see SPEC_FULL.md §9's REDESIGN FLAG). Kind is now
// a closed enum and every cache is its own typed field, so a typo in a kind
// name is a compile error instead of a silent empty cache at runtime.
package resolver

import (
	"context"
	"fmt"

	"github.com/wondersell/wildsearch-indexer/internal/loader"
	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// Kind names one of the five dictionaries the resolver maintains. Order of
// resolution matters: Catalog and Brand and Seller have no dependency on
// each other, but SKU references Brand, so SKU always resolves last.
type Kind int

const (
	KindCatalog Kind = iota
	KindBrand
	KindSeller
	KindParameter
	KindSKU
)

// Order lists every kind New builds a cache for, in the sequence the
// pipeline resolves them (SPEC_FULL.md §4.3):
// "Catalog -> Brand -> Seller -> Parameter -> SKU".
var Order = []Kind{KindCatalog, KindBrand, KindSeller, KindParameter, KindSKU}

func (k Kind) entity() store.EntityKind {
	switch k {
	case KindCatalog:
		return store.EntityCatalog
	case KindBrand:
		return store.EntityBrand
	case KindSeller:
		return store.EntitySeller
	case KindParameter:
		return store.EntityParameter
	case KindSKU:
		return store.EntitySKU
	default:
		panic(fmt.Sprintf("resolver: unknown kind %d", k))
	}
}

func (k Kind) naturalKeyColumn() string {
	switch k {
	case KindCatalog:
		return "url"
	case KindBrand:
		return "url"
	case KindSeller:
		return "url"
	case KindParameter:
		return "name"
	case KindSKU:
		return "article"
	default:
		panic(fmt.Sprintf("resolver: unknown kind %d", k))
	}
}

// Pending is one not-yet-resolved dictionary reference: a natural key plus
// whatever attributes are needed to build a row if the key turns out to be
// new.
type Pending struct {
	Key   string
	Build func(id types.ID) store.Row
}

// cacheEntry records both what was already known at batch start (cache) and
// what this batch discovered and inserted (retrieved), matching the
// teacher's two-map per-kind record.
type cacheEntry struct {
	cache     map[string]types.ID
	retrieved map[string]types.ID
}

// Resolver runs one batch's worth of dictionary resolution against a Store
// and a Loader sharing the same transaction.
type Resolver struct {
	st  store.Store
	ld  *loader.Loader
	byKind map[Kind]*cacheEntry
}

// New builds an empty Resolver. Call it once per pipeline batch; it is not
// safe to reuse across batches because its caches are only emptied by Clear.
func New(st store.Store, ld *loader.Loader) *Resolver {
	r := &Resolver{st: st, ld: ld, byKind: make(map[Kind]*cacheEntry)}
	for _, k := range Order {
		r.byKind[k] = &cacheEntry{cache: map[string]types.ID{}, retrieved: map[string]types.ID{}}
	}
	return r
}

// Resolve runs the four-step cycle from spec.md §4.3 for one kind: collect
// pending keys not already cached, pull existing rows from the store,
// insert rows for keys that turned out to be new, then fold the inserted
// ids back into the cache so a later Resolve call (or a later kind's Build
// closure) sees them.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, pending []Pending) (map[string]types.ID, error) {
	entry := r.byKind[kind]

	missing := make([]string, 0, len(pending))
	byKey := make(map[string]Pending, len(pending))
	for _, p := range pending {
		if _, ok := entry.cache[p.Key]; ok {
			continue
		}
		if _, ok := entry.retrieved[p.Key]; ok {
			continue
		}
		byKey[p.Key] = p
		missing = append(missing, p.Key)
	}

	if len(missing) > 0 {
		found, err := r.st.Lookup(ctx, kind.entity(), kind.naturalKeyColumn(), missing)
		if err != nil {
			return nil, fmt.Errorf("resolver: lookup %v: %w", kind.entity(), err)
		}
		for key, raw := range found {
			entry.cache[key] = types.ID(raw)
			delete(byKey, key)
		}
	}

	// Whatever is left in byKey is genuinely new: build and queue a row for
	// each, then record the id in retrieved immediately so duplicate keys
	// within the same batch collapse onto one row instead of two.
	inserted := make([]string, 0, len(byKey))
	for key, p := range byKey {
		id := entry.retrieved[key]
		if id.IsZero() {
			id = newID()
			entry.retrieved[key] = id
			inserted = append(inserted, key)
			if err := r.ld.Add(ctx, p.Build(id)); err != nil {
				return nil, fmt.Errorf("resolver: queue %v %q: %w", kind.entity(), key, err)
			}
		}
	}

	// A concurrent worker may have inserted one of these same natural keys
	// first; store/postgres.go's insertRows tolerates the resulting 23505 on
	// our side, so the locally-minted id above was never actually persisted.
	// Flush, then re-pull from the store the same way
	// cmd/wdfctl/marketplace.go's ensureMarketplace does after its own
	// ON CONFLICT DO NOTHING insert, and adopt whichever id actually won.
	if len(inserted) > 0 {
		if err := r.ld.Flush(ctx); err != nil {
			return nil, fmt.Errorf("resolver: flush %v: %w", kind.entity(), err)
		}

		found, err := r.st.Lookup(ctx, kind.entity(), kind.naturalKeyColumn(), inserted)
		if err != nil {
			return nil, fmt.Errorf("resolver: re-lookup %v: %w", kind.entity(), err)
		}
		for _, key := range inserted {
			if raw, ok := found[key]; ok {
				entry.cache[key] = types.ID(raw)
				delete(entry.retrieved, key)
			}
		}
	}

	out := make(map[string]types.ID, len(pending))
	for _, p := range pending {
		if id, ok := entry.cache[p.Key]; ok {
			out[p.Key] = id
			continue
		}
		out[p.Key] = entry.retrieved[p.Key]
	}
	return out, nil
}

// Clear drops every cached and retrieved entry for every kind. The pipeline
// calls this at the start of every chunk, and again after a chunk when RSS
// crosses the configured threshold (spec.md §4.5), since the caches are the
// dominant long-lived allocation within a batch.
func (r *Resolver) Clear() {
	for _, entry := range r.byKind {
		entry.cache = map[string]types.ID{}
		entry.retrieved = map[string]types.ID{}
	}
}
