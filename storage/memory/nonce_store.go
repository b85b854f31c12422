package memorystore

import (
	"context"
	"sync"
)

// NonceStore is an in-memory nonce store for single-node deployments and tests.
// Expired entries stay until consumed, alarmed, or swept.
type NonceStore struct {
	mu   sync.Mutex
	data map[string]int64
}

func NewNonceStore() *NonceStore {
	return &NonceStore{data: make(map[string]int64)}
}

func (s *NonceStore) Put(ctx context.Context, id string, expiresAt int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = expiresAt
	return nil
}

func (s *NonceStore) Get(ctx context.Context, id string) (int64, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[id]
	return v, ok, nil
}

func (s *NonceStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// DeleteExpired removes every entry with expiresAt <= now.
func (s *NonceStore) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, exp := range s.data {
		if exp <= now {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

// Len reports how many nonces currently have state.
func (s *NonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
