package kvstore

import (
	"context"
	"sync"
)

// Store is an in-memory implementation of kvstore.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewStore() *Store {
	return &Store{m: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = cloneBytes(value)
	return nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
