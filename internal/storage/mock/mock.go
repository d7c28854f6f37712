// Package mock provides an in-memory StorageLoader/StorageWriter for tests
// that don't need real mmap'd files.
package mock

import (
	"context"
	"sync"

	"github.com/ccheney/reflex/internal/capability"
	"github.com/ccheney/reflex/internal/mmapstore"
)

// Store is a map-backed, concurrency-safe capability.StorageLoader and
// capability.StorageWriter. It holds encoded entry bytes, matching the
// shape of a real mmapstore.Store, so the same Encode/Access codec path
// runs in tests as in production.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// New returns an empty mock store.
func New() *Store {
	return &Store{entries: make(map[string][]byte)}
}

// Write stores a copy of data under key.
func (s *Store) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), data...)
	return nil
}

// Load decodes and returns the entry at key if it exists and belongs to
// tenant.
func (s *Store) Load(_ context.Context, key string, tenant uint64) (*capability.CacheEntry, error) {
	s.mu.RLock()
	buf, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	archived, err := mmapstore.Access(buf)
	if err != nil {
		return nil, nil
	}
	if archived.TenantID() != tenant {
		return nil, nil
	}

	owned := archived.ToCacheEntry()
	return &capability.CacheEntry{
		TenantID:    owned.TenantID,
		ContextHash: owned.ContextHash,
		Timestamp:   owned.Timestamp,
		Embedding:   owned.Embedding,
		Payload:     owned.Payload,
	}, nil
}

// Len reports how many entries the mock currently holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
