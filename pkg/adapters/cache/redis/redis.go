package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

const keyPrefix = "docforge:cache:"

// Store implements ports.CacheStore using Redis, so cached artifacts
// survive restarts and are shared across instances.
type Store struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStore creates a Redis-backed cache store. Entries expire after ttl.
func NewStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Get retrieves an entry by key.
func (s *Store) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	data, err := s.client.Get(ctx, entryKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

// Put stores an entry under its key with the configured TTL.
func (s *Store) Put(ctx context.Context, entry *domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := s.client.Set(ctx, entryKey(entry.Key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}

	s.logger.Debug("cache entry stored",
		zap.String("key", entry.Key),
		zap.String("processor", entry.ProcessorKey))

	return nil
}

// Delete removes an entry by key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, entryKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Invalidate scans the cache keyspace and removes every entry the
// predicate matches.
func (s *Store) Invalidate(ctx context.Context, pred func(*domain.CacheEntry) bool) (int, error) {
	var cursor uint64
	removed := 0

	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan cache keys: %w", err)
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var entry domain.CacheEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				continue
			}
			if pred(&entry) {
				if err := s.client.Del(ctx, key).Err(); err != nil {
					s.logger.Warn("failed to delete cache entry during invalidation",
						zap.String("key", key),
						zap.Error(err))
					continue
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}

// entryKey returns the Redis key for a cache entry.
func entryKey(key string) string {
	return keyPrefix + key
}
