// Package jobgraph models the external scheduler's composition of the core
// (spec.md §4.6): chain(prepare, chord([import...], wrap)). The core never
// schedules itself in production — a Celery-equivalent broker does — but
// Chain and Chord give a single process (the CLI's --background=no path,
// and tests) a way to run the same graph shape synchronously.
package jobgraph

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Chain runs steps in order, stopping at the first error.
func Chain(ctx context.Context, steps ...func(context.Context) error) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Chord runs group concurrently, then — only if every member succeeded —
// runs barrier. A failure in any group member cancels the rest and skips
// barrier entirely, matching Celery chord's error semantics.
func Chord(ctx context.Context, group []func(context.Context) error, barrier func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range group {
		task := task
		g.Go(func() error {
			return task(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return barrier(ctx)
}
