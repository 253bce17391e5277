package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// tableFor maps an EntityKind to its physical table name. An unregistered
// entity maps to the empty string.
func tableFor(entity EntityKind) string {
	switch entity {
	case EntityMarketplace:
		return "wdf_dict_marketplace"
	case EntityBrand:
		return "wdf_dict_brand"
	case EntitySeller:
		return "wdf_dict_seller"
	case EntityCatalog:
		return "wdf_dict_catalog"
	case EntityParameter:
		return "wdf_dict_parameter"
	case EntitySKU:
		return "wdf_sku"
	case EntityVersion:
		return "wdf_version"
	case EntityPrice:
		return "wdf_price"
	case EntityRating:
		return "wdf_rating"
	case EntitySales:
		return "wdf_sales"
	case EntityReviews:
		return "wdf_reviews"
	case EntityPosition:
		return "wdf_position"
	case EntitySellerFact:
		return "wdf_seller"
	case EntityParamFact:
		return "wdf_parameter"
	default:
		return ""
	}
}

var pgTracer = otel.Tracer("github.com/wondersell/wildsearch-indexer/store")

var pgMetrics struct {
	retryCount metric.Int64Counter
	rowsLoaded metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/wondersell/wildsearch-indexer/store")
	pgMetrics.retryCount, _ = m.Int64Counter("wdf.store.retry_count",
		metric.WithDescription("store operations retried due to a transient connection error"),
		metric.WithUnit("{retry}"),
	)
	pgMetrics.rowsLoaded, _ = m.Int64Counter("wdf.store.rows_loaded",
		metric.WithDescription("rows written via BulkLoad, by entity and path"),
		metric.WithUnit("{row}"),
	)
}

// PostgresStore is the production Store implementation: a pgx connection
// pool speaking the binary COPY protocol for the Bulk Loader's fast path.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-configured pool. Opening/closing the
// pool is the caller's responsibility (cmd/wdfctl does it once at startup).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Lookup(ctx context.Context, entity EntityKind, column string, keys []string) (map[string][16]byte, error) {
	result := make(map[string][16]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	ctx, span := pgTracer.Start(ctx, "store.lookup", trace.WithAttributes(
		attribute.String("db.entity", string(entity)),
		attribute.Int("db.key_count", len(keys)),
	))
	defer span.End()

	table := tableFor(entity)
	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE %s = ANY($1)", column, table, column) // #nosec G201 -- column/table are internal enum-derived constants, never user input

	rows, err := s.withRetryRows(ctx, query, keys)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &types.StoreFatalError{Op: "lookup", Cause: err}
	}
	defer rows.Close()

	for rows.Next() {
		var id [16]byte
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, &types.StoreFatalError{Op: "lookup.scan", Cause: err}
		}
		result[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreFatalError{Op: "lookup.rows", Cause: err}
	}

	return result, nil
}

func (s *PostgresStore) withRetryRows(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	var rows pgx.Rows
	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		attempts++
		var execErr error
		rows, execErr = s.pool.Query(ctx, query, args...)
		if execErr != nil && isRetryable(execErr) {
			return execErr
		}
		if execErr != nil {
			return backoff.Permanent(execErr)
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 5), ctx))

	if attempts > 1 {
		pgMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return rows, err
}

// isRetryable reports whether a Postgres error is a transient connection
// failure (SQLSTATE class 08) rather than a data problem a retry can't fix.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08"
	}
	return errors.Is(err, context.DeadlineExceeded)
}

var copyLineRe = regexp.MustCompile(`line (\d+)`)

// BulkLoad writes rows via COPY (ModeFast) or one-row-at-a-time INSERT
// (ModeRow). A COPY rejection is translated into StoreRowRejectedError
// carrying the offending row's line number, mirroring
// bulk_create_manager.py's re.findall(r'line (\d+)', str(error)).
func (s *PostgresStore) BulkLoad(ctx context.Context, entity EntityKind, rows []Row, mode LoadMode) error {
	return bulkLoad(ctx, s.pool, entity, rows, mode)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

func bulkLoad(ctx context.Context, q querier, entity EntityKind, rows []Row, mode LoadMode) error {
	if len(rows) == 0 {
		return nil
	}

	table := tableFor(entity)
	columns := rows[0].Columns()

	ctx, span := pgTracer.Start(ctx, "store.bulk_load", trace.WithAttributes(
		attribute.String("db.entity", string(entity)),
		attribute.Int("db.row_count", len(rows)),
		attribute.Bool("db.fast_path", mode == ModeFast),
	))
	defer span.End()

	var err error
	if mode == ModeFast {
		err = copyRows(ctx, q, table, columns, rows)
	} else {
		err = insertRows(ctx, q, table, columns, rows)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	pgMetrics.rowsLoaded.Add(ctx, int64(len(rows)), metric.WithAttributes(
		attribute.String("entity", string(entity)),
		attribute.Bool("fast_path", mode == ModeFast),
	))
	return nil
}

func copyRows(ctx context.Context, q querier, table string, columns []string, rows []Row) error {
	source := &rowCopySource{rows: rows, idx: -1}

	_, err := q.CopyFrom(ctx, pgx.Identifier{table}, columns, source)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if m := copyLineRe.FindStringSubmatch(pgErr.Where); m != nil {
			line, convErr := strconv.Atoi(m[1])
			if convErr == nil {
				return &types.StoreRowRejectedError{Line: line, Cause: err}
			}
		}
	}
	return &types.StoreFatalError{Op: "bulk_load.copy", Cause: err}
}

func insertRows(ctx context.Context, q querier, table string, columns []string, rows []Row) error {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		table, joinColumns(columns), joinColumns(placeholders),
	)

	for i, row := range rows {
		if _, err := q.Exec(ctx, query, row.Values()...); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				continue // duplicate key tolerated, see spec.md §5
			}
			return &types.StoreRowRejectedError{Line: i + 1, Cause: err}
		}
	}
	return nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

// rowCopySource adapts []Row to pgx.CopyFromSource.
type rowCopySource struct {
	rows []Row
	idx  int
}

func (s *rowCopySource) Next() bool {
	s.idx++
	return s.idx < len(s.rows)
}

func (s *rowCopySource) Values() ([]any, error) {
	return s.rows[s.idx].Values(), nil
}

func (s *rowCopySource) Err() error { return nil }

func (s *PostgresStore) Exec(ctx context.Context, sql string, args ...any) error {
	ctx, span := pgTracer.Start(ctx, "store.exec")
	defer span.End()

	_, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &types.StoreFatalError{Op: "exec", Cause: err}
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &types.StoreFatalError{Op: "begin", Cause: err}
	}
	return &postgresTx{tx: tx}, nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) BulkLoad(ctx context.Context, entity EntityKind, rows []Row, mode LoadMode) error {
	return bulkLoad(ctx, t.tx, entity, rows, mode)
}

func (t *postgresTx) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return &types.StoreFatalError{Op: "tx.exec", Cause: err}
	}
	return nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return &types.StoreFatalError{Op: "tx.commit", Cause: err}
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &types.StoreFatalError{Op: "tx.rollback", Cause: err}
	}
	return nil
}
