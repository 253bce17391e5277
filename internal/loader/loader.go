package loader

import (
	"context"
	"errors"

	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// Target is the write surface a Loader flushes into. Both store.Store and
// store.Tx satisfy it, so the same Loader code serves prepare (no
// transaction needed, dictionary rows only) and import (one transaction per
// invocation, spec.md §5).
type Target interface {
	BulkLoad(ctx context.Context, entity store.EntityKind, rows []store.Row, mode store.LoadMode) error
}

// Loader queues Rows by entity kind and flushes them through a Target in
// bounded slices. It is the Go shape of bulk_create_manager.py's
// BulkCreateManager: one instance per pipeline batch, never reused across
// batches.
type Loader struct {
	target        Target
	saveChunkSize int
	copySafe      map[string]bool

	queue map[store.EntityKind][]store.Row
}

// New builds a Loader bound to target. saveChunkSize caps how many rows
// accumulate per entity before Add flushes that entity's queue; copySafe
// names the entities allowed to use the fast COPY path.
func New(target Target, saveChunkSize int, copySafe map[string]bool) *Loader {
	return &Loader{
		target:        target,
		saveChunkSize: saveChunkSize,
		copySafe:      copySafe,
		queue:         make(map[store.EntityKind][]store.Row),
	}
}

// Add appends one row to its entity's queue, flushing that entity's queue
// immediately once it reaches saveChunkSize.
func (l *Loader) Add(ctx context.Context, row store.Row) error {
	kind := row.Entity()
	l.queue[kind] = append(l.queue[kind], row)

	if len(l.queue[kind]) >= l.saveChunkSize {
		return l.flushEntity(ctx, kind)
	}
	return nil
}

// Flush writes every remaining queued row, entity by entity. Call once at
// the end of a batch to drain partial slices Add never reached chunk size
// for.
func (l *Loader) Flush(ctx context.Context) error {
	for kind := range l.queue {
		if err := l.flushEntity(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) flushEntity(ctx context.Context, kind store.EntityKind) error {
	rows := l.queue[kind]
	if len(rows) == 0 {
		return nil
	}
	l.queue[kind] = nil

	mode := store.ModeFast
	if !l.copySafe[string(kind)] {
		mode = store.ModeRow
	}

	return l.loadSlice(ctx, kind, rows, mode)
}

// loadSlice writes one slice via the requested mode, falling back to a
// single-row eviction-and-retry loop when the fast path rejects exactly one
// row (spec.md §4.2's REDESIGN FLAG: an explicit loop, never recursion).
func (l *Loader) loadSlice(ctx context.Context, kind store.EntityKind, rows []store.Row, mode store.LoadMode) error {
	remaining := rows

	for {
		err := l.target.BulkLoad(ctx, kind, remaining, mode)
		if err == nil {
			return nil
		}

		var rejected *types.StoreRowRejectedError
		if !errors.As(err, &rejected) {
			return err
		}

		// Evict the offending row into its own row-path insert, then retry
		// the rest of the slice in the original mode.
		idx := rejected.Line - 1
		if idx < 0 || idx >= len(remaining) {
			return err
		}

		bad := remaining[idx]
		if insErr := l.target.BulkLoad(ctx, kind, []store.Row{bad}, store.ModeRow); insErr != nil {
			var stillRejected *types.StoreRowRejectedError
			if !errors.As(insErr, &stillRejected) {
				return insErr
			}
			// Even the row path refused it outright; drop it and move on,
			// the row-path insert already tolerates duplicate-key races.
		}

		remaining = append(append([]store.Row{}, remaining[:idx]...), remaining[idx+1:]...)
		if len(remaining) == 0 {
			return nil
		}
	}
}
