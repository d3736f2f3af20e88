package memberrepo

import (
	"context"

	"github.com/Overland-East-Bay/family-health/internal/domain"
)

// Repository persists the member collection as a whole.
//
// There are no partial writes: SaveAll always replaces the stored collection with
// the given snapshot, in the given order.
type Repository interface {
	// Load returns the stored collection in insertion order. A missing or
	// unreadable snapshot yields an empty collection.
	Load(ctx context.Context) ([]domain.Member, error)
	SaveAll(ctx context.Context, ms []domain.Member) error
}
