package kvstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by adapters used after Close.
var ErrClosed = errors.New("kv store closed")

// Store is a persistent key-value slot store. Values are opaque bytes and every
// Put replaces the whole value for its key.
type Store interface {
	// Get returns the value for key; ok is false when the key has never been written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}
