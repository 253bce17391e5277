// Package dump implements the Dump State Machine (spec.md §4.4): the
// monotonic lifecycle a crawler job's ingestion record moves through, and
// the guards that keep prepare/import/wrap from running out of order.
package dump

import (
	"context"
	"fmt"
	"time"

	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// Repository is the narrow slice of persistence the state machine needs:
// loading and saving one Dump row by job id. It is satisfied by a thin
// wrapper over store.Store in production and by a fake in tests.
type Repository interface {
	Get(ctx context.Context, job string) (*types.Dump, error)
	Save(ctx context.Context, d *types.Dump) error
	CountVersions(ctx context.Context, dumpID types.ID) (int, error)
}

// Prepare moves a Dump from Created to Prepared, stamping CrawlStartedAt if
// it is still zero. It refuses a Dump already past Created — that is a
// TooLate error, never a silent no-op.
func Prepare(ctx context.Context, repo Repository, job string) (*types.Dump, error) {
	d, err := repo.Get(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("dump: prepare: %w", err)
	}

	if d.StateCode > types.StateCreated {
		return nil, types.NewTooLateError(job, d.StateCode, types.StateCreated)
	}

	d.SetState(types.StatePreparing)
	if d.CrawlStartedAt.IsZero() {
		d.CrawlStartedAt = d.CreatedAt
	}
	if err := repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("dump: prepare: save preparing: %w", err)
	}

	d.SetState(types.StatePrepared)
	if err := repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("dump: prepare: save prepared: %w", err)
	}

	return d, nil
}

// Import guards one batch of the import phase: the Dump must not yet be
// past Processing, otherwise it is a TooLate error. It stamps Processing on
// the first call and leaves it there for subsequent calls within the same
// job's fan-out.
func Import(ctx context.Context, repo Repository, job string) (*types.Dump, error) {
	d, err := repo.Get(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("dump: import: %w", err)
	}

	if d.StateCode > types.StateProcessing {
		return nil, types.NewTooLateError(job, d.StateCode, types.StateProcessing)
	}

	if d.StateCode != types.StateProcessing {
		d.SetState(types.StateProcessing)
		if err := repo.Save(ctx, d); err != nil {
			return nil, fmt.Errorf("dump: import: save processing: %w", err)
		}
	}

	return d, nil
}

// Wrap runs the chord barrier (spec.md §4.4/§4.6): once every import chunk
// has completed, it checks that the number of Version rows written for this
// Dump matches ItemsCrawled, then stamps Processed and, if still unset,
// CrawlEndedAt. A mismatch is a DumpCorruptedError, not silently tolerated.
func Wrap(ctx context.Context, repo Repository, job string) (*types.Dump, error) {
	d, err := repo.Get(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("dump: wrap: %w", err)
	}

	if d.StateCode < types.StateProcessing {
		return nil, types.NewTooEarlyError(job, d.StateCode, types.StateProcessing)
	}
	if d.StateCode == types.StateProcessed {
		return d, nil
	}

	count, err := repo.CountVersions(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("dump: wrap: count versions: %w", err)
	}
	if count != d.ItemsCrawled {
		d.SetState(types.StateError)
		_ = repo.Save(ctx, d)
		return nil, &types.DumpCorruptedError{Job: job, Expected: d.ItemsCrawled, Actual: count}
	}

	d.SetState(types.StateProcessed)
	d.CrawlEndedAt = nowOrStamped(d.CrawlEndedAt)
	if err := repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("dump: wrap: save processed: %w", err)
	}

	return d, nil
}

// Prune deletes every fact and version row, then the Dump itself, for each
// dump in stuck, one transaction per dump. It does not check state or age
// itself; callers choose which dumps to pass. It is the Go shape of
// original_source/management/commands's raw-SQL cascade delete for
// abandoned crawls.
func Prune(ctx context.Context, st store.Store, stuck []*types.Dump) error {
	for _, d := range stuck {
		tx, err := st.Begin(ctx)
		if err != nil {
			return fmt.Errorf("dump: prune %s: begin: %w", d.Job, err)
		}

		cascade := []string{
			"DELETE FROM wdf_parameter WHERE version_id IN (SELECT id FROM wdf_version WHERE dump_id = $1)",
			"DELETE FROM wdf_seller WHERE sku_id IN (SELECT sku_id FROM wdf_version WHERE dump_id = $1)",
			"DELETE FROM wdf_position WHERE version_id IN (SELECT id FROM wdf_version WHERE dump_id = $1)",
			"DELETE FROM wdf_reviews WHERE version_id IN (SELECT id FROM wdf_version WHERE dump_id = $1)",
			"DELETE FROM wdf_sales WHERE version_id IN (SELECT id FROM wdf_version WHERE dump_id = $1)",
			"DELETE FROM wdf_rating WHERE version_id IN (SELECT id FROM wdf_version WHERE dump_id = $1)",
			"DELETE FROM wdf_price WHERE version_id IN (SELECT id FROM wdf_version WHERE dump_id = $1)",
			"DELETE FROM wdf_version WHERE dump_id = $1",
			"DELETE FROM wdf_dump WHERE id = $1",
		}
		for _, sql := range cascade {
			if err := tx.Exec(ctx, sql, d.ID); err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("dump: prune %s: %w", d.Job, err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("dump: prune %s: commit: %w", d.Job, err)
		}
	}
	return nil
}

// IsStale reports whether d was created before the staleness cutoff and
// never reached Processed — the same condition PostgresRepository.ListStale
// applies in SQL for check_unfinished (spec.md §4.4).
func IsStale(d *types.Dump, olderThan time.Duration, now time.Time) bool {
	return d.StateCode != types.StateProcessed && now.Sub(d.CreatedAt) > olderThan
}

func nowOrStamped(t time.Time) time.Time {
	if !t.IsZero() {
		return t
	}
	return time.Now()
}
