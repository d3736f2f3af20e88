package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/Overland-East-Bay/family-health/internal/domain"
	"github.com/Overland-East-Bay/family-health/internal/platform/logger"
	"github.com/Overland-East-Bay/family-health/internal/ports/out/kvstore"
)

// StorageKey is the single key the collection is stored under.
const StorageKey = "familyHealth_members_v1"

// Repo is a memberrepo.Repository that keeps the whole collection as one JSON
// blob in a key-value store.
type Repo struct {
	store kvstore.Store
	key   string
}

func NewRepo(store kvstore.Store) *Repo {
	return &Repo{store: store, key: StorageKey}
}

// Load returns an empty collection when nothing is stored or the stored blob
// cannot be parsed. Store errors are returned.
func (r *Repo) Load(ctx context.Context) ([]domain.Member, error) {
	if r.store == nil {
		return nil, errors.New("nil kv store")
	}
	raw, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []domain.Member{}, nil
	}
	ms, err := Decode(raw)
	if err != nil {
		logger.Warn("discarding unreadable member snapshot", "key", r.key, "bytes", len(raw), "err", err)
		return []domain.Member{}, nil
	}
	return ms, nil
}

// SaveAll overwrites the stored blob with ms.
func (r *Repo) SaveAll(ctx context.Context, ms []domain.Member) error {
	if r.store == nil {
		return errors.New("nil kv store")
	}
	raw, err := Encode(ms)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	if err := r.store.Put(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save members: %w", err)
	}
	return nil
}
