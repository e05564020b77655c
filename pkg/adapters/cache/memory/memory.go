package memory

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

// Store implements ports.CacheStore with a bounded in-process LRU. Suitable
// for single-instance deployments and tests; the LRU bound keeps repeated
// runs over large registries from growing without limit.
type Store struct {
	entries *lru.Cache[string, *domain.CacheEntry]
}

// NewStore creates an in-memory store holding at most maxSize entries.
func NewStore(maxSize int) (*Store, error) {
	if maxSize <= 0 {
		maxSize = 1024
	}
	entries, err := lru.New[string, *domain.CacheEntry](maxSize)
	if err != nil {
		return nil, err
	}
	return &Store{entries: entries}, nil
}

// Get retrieves an entry by key.
func (s *Store) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return entry, nil
}

// Put stores an entry under its key.
func (s *Store) Put(ctx context.Context, entry *domain.CacheEntry) error {
	s.entries.Add(entry.Key, entry)
	return nil
}

// Delete removes an entry by key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}

// Invalidate removes every entry the predicate matches.
func (s *Store) Invalidate(ctx context.Context, pred func(*domain.CacheEntry) bool) (int, error) {
	removed := 0
	for _, key := range s.entries.Keys() {
		entry, ok := s.entries.Peek(key)
		if !ok {
			continue
		}
		if pred(entry) {
			s.entries.Remove(key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	return s.entries.Len()
}
