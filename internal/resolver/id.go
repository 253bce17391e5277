package resolver

import (
	"github.com/google/uuid"

	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// newID mints a fresh random id for a row the resolver is about to insert.
func newID() types.ID {
	return types.ID(uuid.New())
}
