// Package storetest provides an in-memory store.Store fake shared by the
// resolver, loader and pipeline test suites, so each package doesn't grow
// its own ad-hoc mock of the gateway contract.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// Fake is a minimal, non-persistent Store: rows are kept in memory, keyed
// by entity and natural-key column. It tolerates repeated inserts of the
// same natural key without error, like the Postgres implementation, but
// here the last writer wins (Postgres' ON CONFLICT DO NOTHING keeps the
// first row).
type Fake struct {
	mu       sync.Mutex
	rows     map[store.EntityKind]map[string]map[string]any // entity -> key_column -> key -> row values (by column)
	byID     map[store.EntityKind]map[types.ID]map[string]any
	LoadCalls []FakeLoadCall
	ExecCalls []FakeExecCall
	RejectLine map[store.EntityKind]int // if set, BulkLoad rejects this 1-based row once per entity
}

type FakeExecCall struct {
	SQL  string
	Args []any
}

type FakeLoadCall struct {
	Entity store.EntityKind
	Mode   store.LoadMode
	Rows   int
}

// naturalKeyColumns mirrors resolver.Kind.naturalKeyColumn() for every
// entity the fake is asked to store, so seeded/inserted rows are indexed by
// the same key Lookup is queried with.
var naturalKeyColumns = map[store.EntityKind]string{
	store.EntityMarketplace: "slug",
	store.EntityBrand:       "url",
	store.EntitySeller:      "url",
	store.EntityCatalog:     "url",
	store.EntityParameter:   "name",
	store.EntitySKU:         "article",
}

func NewFake() *Fake {
	return &Fake{
		rows: make(map[store.EntityKind]map[string]map[string]any),
		byID: make(map[store.EntityKind]map[types.ID]map[string]any),
	}
}

func (f *Fake) Lookup(_ context.Context, entity store.EntityKind, column string, keys []string) (map[string][16]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string][16]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	byKey, ok := f.rows[entity]
	if !ok {
		return out, nil
	}
	for _, k := range keys {
		row, ok := byKey[k]
		if !ok {
			continue
		}
		if val, ok := row[column]; ok {
			if s, ok := val.(string); !ok || s != k {
				continue
			}
		}
		if id, ok := row["id"].(types.ID); ok {
			out[k] = [16]byte(id)
		}
	}
	return out, nil
}

func (f *Fake) BulkLoad(ctx context.Context, entity store.EntityKind, rows []store.Row, mode store.LoadMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.LoadCalls = append(f.LoadCalls, FakeLoadCall{Entity: entity, Mode: mode, Rows: len(rows)})

	if rejectAt, ok := f.RejectLine[entity]; ok && rejectAt >= 1 && rejectAt <= len(rows) {
		delete(f.RejectLine, entity)
		return &types.StoreRowRejectedError{Line: rejectAt, Cause: fmt.Errorf("fake: forced rejection")}
	}

	if f.rows[entity] == nil {
		f.rows[entity] = make(map[string]map[string]any)
	}
	if f.byID[entity] == nil {
		f.byID[entity] = make(map[types.ID]map[string]any)
	}

	for _, r := range rows {
		cols := r.Columns()
		vals := r.Values()
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			rec[c] = vals[i]
		}

		if col, ok := naturalKeyColumns[entity]; ok {
			if v, ok := rec[col]; ok {
				if s, ok := v.(string); ok {
					f.rows[entity][s] = rec
				}
			}
		}
		if id, ok := rec["id"].(types.ID); ok {
			f.byID[entity][id] = rec
		}
	}
	return nil
}

func (f *Fake) Exec(_ context.Context, sql string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExecCalls = append(f.ExecCalls, FakeExecCall{SQL: sql, Args: args})
	return nil
}

func (f *Fake) Begin(_ context.Context) (store.Tx, error) {
	return &fakeTx{f: f}, nil
}

type fakeTx struct {
	f *Fake
}

func (t *fakeTx) BulkLoad(ctx context.Context, entity store.EntityKind, rows []store.Row, mode store.LoadMode) error {
	return t.f.BulkLoad(ctx, entity, rows, mode)
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) error {
	return t.f.Exec(ctx, sql, args...)
}

func (t *fakeTx) Commit(_ context.Context) error   { return nil }
func (t *fakeTx) Rollback(_ context.Context) error { return nil }

var _ store.Store = (*Fake)(nil)
