// Package itemsource abstracts the upstream crawler export the pipeline
// pulls items from (spec.md §6's "Item Source contract"). The core never
// talks HTTP directly; it only sees Source.
package itemsource

import (
	"context"

	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// Chunk is one fetch-sized slice of items, in source order.
type Chunk struct {
	Items []types.Item
}

// Source streams a job's items in fetch-chunks and reports job metadata.
// fetch(job_id, start, count, chunk_size) from spec.md §6 is split here into
// Fetch (the streaming call) and Metadata (the one-shot job summary).
type Source interface {
	// Fetch streams chunks of at most chunkSize items, covering the window
	// [start, start+count) of the job. The returned channel is closed when
	// the window is exhausted or ctx is canceled; a send on errc ends the
	// stream.
	Fetch(ctx context.Context, job string, start, count, chunkSize int) (<-chan Chunk, <-chan error)

	// Metadata returns the job's running/finished time and total crawled
	// item count, used to initialize a new Dump exactly once.
	Metadata(ctx context.Context, job string) (types.JobMetadata, error)
}
