package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/wondersell/wildsearch-indexer/internal/loader"
	"github.com/wondersell/wildsearch-indexer/internal/store"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// TestPostgresStore_BulkLoadAndLookup runs the fast COPY path and the
// row-level lookup-by-natural-key path against a real Postgres instance.
// Skipped under -short, the way the teacher reserves its
// testcontainers-backed suite for a non-default test run.
func TestPostgresStore_BulkLoadAndLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers-backed integration test in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("wdf_test"),
		postgres.WithUsername("wdf"),
		postgres.WithPassword("wdf"),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE wdf_dict_brand (
			id bytea PRIMARY KEY,
			marketplace_id bytea NOT NULL,
			url text NOT NULL,
			name text NOT NULL
		)
	`)
	require.NoError(t, err)

	st := store.NewPostgresStore(pool)

	marketplaceID := types.ID{1}
	brandID := types.ID{2}
	row := loader.BrandRow{ID: brandID, MarketplaceID: marketplaceID, URL: "https://example.test/brand/vita-famoso", Name: "Vita Famoso"}

	require.NoError(t, st.BulkLoad(ctx, store.EntityBrand, []store.Row{row}, store.ModeFast))

	ids, err := st.Lookup(ctx, store.EntityBrand, "url", []string{"https://example.test/brand/vita-famoso"})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.Equal(t, [16]byte(brandID), ids["https://example.test/brand/vita-famoso"])
}
