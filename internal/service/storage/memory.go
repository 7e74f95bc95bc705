package storage

import (
	"context"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory.
// Entries never expire on their own: token expiry is tracked by the cache layer.
type MemoryStore struct {
	items  *cache.Cache
	closed atomic.Bool
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: cache.New(cache.NoExpiration, 0),
	}
}

// Get returns the value for key
func (s *MemoryStore) Get(key string) (string, error) {
	if s.closed.Load() {
		return "", ErrStoreClosed
	}
	v, ok := s.items.Get(key)
	if !ok {
		return "", nil
	}
	str, _ := v.(string)
	return str, nil
}

// Set stores value under key
func (s *MemoryStore) Set(key, value string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	s.items.Set(key, value, cache.NoExpiration)
	return nil
}

// Len returns the number of stored keys
func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}

// Close drops all entries
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.items.Flush()
	return nil
}

// Ping reports ErrStoreClosed once the store is closed
func (s *MemoryStore) Ping(_ context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

// Name returns the store type name
func (s *MemoryStore) Name() string {
	return "memory"
}
