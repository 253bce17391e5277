package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wondersell/wildsearch-indexer/internal/debug"
	"github.com/wondersell/wildsearch-indexer/internal/resolver"
	"github.com/wondersell/wildsearch-indexer/internal/types"
)

func newMergeDuplicatesCmd() *cobra.Command {
	var chunkSize int
	var processAll bool

	cmd := &cobra.Command{
		Use:   "merge-duplicates [article]",
		Short: "Re-point fact rows from duplicate SKUs onto the oldest row sharing an article",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if chunkSize <= 0 {
				chunkSize = d.cfg.SaveChunkSize
			}

			var articles []string
			switch {
			case len(args) == 1:
				articles = []string{args[0]}
			case processAll:
				articles, err = listDuplicateArticles(ctx, d, chunkSize)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("merge-duplicates: pass an article or --process_all")
			}

			for _, article := range articles {
				if err := mergeOneArticle(ctx, d, article); err != nil {
					return err
				}
				debug.PrintlnNormal("merged duplicates for", article)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk_size", 0, "maximum number of duplicated articles swept when --process_all is set (each merged in its own transaction)")
	cmd.Flags().BoolVar(&processAll, "process_all", false, "sweep every article with more than one SKU row")

	return cmd
}

func mergeOneArticle(ctx context.Context, d *deps, article string) error {
	skuIDs, err := duplicateSKUIDs(ctx, d, article)
	if err != nil {
		return err
	}
	if len(skuIDs) < 2 {
		return nil
	}

	tx, err := d.st.Begin(ctx)
	if err != nil {
		return fmt.Errorf("merge_duplicates: begin: %w", err)
	}

	keeper := skuIDs[0]
	for _, loser := range skuIDs[1:] {
		if err := resolver.MergeDuplicates(ctx, tx, keeper, loser); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	return tx.Commit(ctx)
}

// duplicateSKUIDs returns every SKU id sharing article, oldest first. Kept
// as a raw query against the pool rather than store.Store.Lookup, since
// Lookup's contract returns at most one id per key.
func duplicateSKUIDs(ctx context.Context, d *deps, article string) ([]types.ID, error) {
	rows, err := d.pool.Query(ctx, "SELECT id FROM wdf_sku WHERE article = $1 ORDER BY created_at ASC", article)
	if err != nil {
		return nil, fmt.Errorf("merge_duplicates: duplicate scan: %w", err)
	}
	defer rows.Close()

	var out []types.ID
	for rows.Next() {
		var id types.ID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("merge_duplicates: scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// listDuplicateArticles finds every article with more than one SKU row.
func listDuplicateArticles(ctx context.Context, d *deps, limit int) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT article FROM wdf_sku GROUP BY article HAVING count(*) > 1 LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("merge_duplicates: list duplicates: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var article string
		if err := rows.Scan(&article); err != nil {
			return nil, fmt.Errorf("merge_duplicates: scan article: %w", err)
		}
		out = append(out, article)
	}
	return out, rows.Err()
}
