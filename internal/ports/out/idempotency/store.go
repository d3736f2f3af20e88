package idempotency

import (
	"context"
	"time"
)

// Key is the submission token embedded in a rendered form.
type Key string

// Record is what a completed submission redirected to, replayed for duplicates.
type Record struct {
	Location  string
	CreatedAt time.Time
}

// Store remembers completed form submissions so a resubmitted form is not applied twice.
type Store interface {
	Get(ctx context.Context, key Key) (Record, bool, error)
	Put(ctx context.Context, key Key, rec Record) error
}
