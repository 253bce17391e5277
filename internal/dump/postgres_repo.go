package dump

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// PostgresRepository persists Dump rows directly; Dump is not an entity
// the Bulk Loader or Dictionary Resolver ever touch, so it gets its own
// narrow repository instead of going through store.Store's entity model.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, job string) (*types.Dump, error) {
	var d types.Dump
	var stateCode int
	row := r.pool.QueryRow(ctx,
		`SELECT id, crawler, job, state, state_code, items_crawled, crawl_started_at, crawl_ended_at, created_at
		 FROM wdf_dump WHERE job = $1`, job)

	err := row.Scan(&d.ID, &d.Crawler, &d.Job, &d.State, &stateCode, &d.ItemsCrawled,
		&d.CrawlStartedAt, &d.CrawlEndedAt, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("dump: no such job %q", job)
	}
	if err != nil {
		return nil, fmt.Errorf("dump: get %q: %w", job, err)
	}
	d.StateCode = types.StateCode(stateCode)
	return &d, nil
}

func (r *PostgresRepository) Save(ctx context.Context, d *types.Dump) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wdf_dump (id, crawler, job, state, state_code, items_crawled, crawl_started_at, crawl_ended_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (job) DO UPDATE SET
		   state = EXCLUDED.state,
		   state_code = EXCLUDED.state_code,
		   items_crawled = EXCLUDED.items_crawled,
		   crawl_started_at = EXCLUDED.crawl_started_at,
		   crawl_ended_at = EXCLUDED.crawl_ended_at`,
		d.ID, d.Crawler, d.Job, d.State, int(d.StateCode), d.ItemsCrawled, d.CrawlStartedAt, d.CrawlEndedAt, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("dump: save %q: %w", d.Job, err)
	}
	return nil
}

func (r *PostgresRepository) CountVersions(ctx context.Context, dumpID types.ID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM wdf_version WHERE dump_id = $1`, dumpID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("dump: count_versions: %w", err)
	}
	return count, nil
}

// ListStale returns every Dump not yet Processed whose created_at is older
// than olderThanMinutes, for check_unfinished/clear_unfinished.
func (r *PostgresRepository) ListStale(ctx context.Context, olderThanMinutes int) ([]*types.Dump, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, crawler, job, state, state_code, items_crawled, crawl_started_at, crawl_ended_at, created_at
		 FROM wdf_dump
		 WHERE state_code <> $1 AND created_at < now() - make_interval(mins => $2)`,
		int(types.StateProcessed), olderThanMinutes)
	if err != nil {
		return nil, fmt.Errorf("dump: list_stale: %w", err)
	}
	defer rows.Close()

	var out []*types.Dump
	for rows.Next() {
		var d types.Dump
		var stateCode int
		if err := rows.Scan(&d.ID, &d.Crawler, &d.Job, &d.State, &stateCode, &d.ItemsCrawled,
			&d.CrawlStartedAt, &d.CrawlEndedAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("dump: list_stale scan: %w", err)
		}
		d.StateCode = types.StateCode(stateCode)
		out = append(out, &d)
	}
	return out, rows.Err()
}
