package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

// Key derives the cache key for a bound task. It hashes everything that
// affects output determinism: processor identity, the canonical form of
// the context slice actually sent, the backend identity, and the registry
// version. Fields are separated by a unit separator so no concatenation of
// different inputs can collide.
func Key(processorKey, canonicalContext, backendID, version string) string {
	h := sha256.New()
	for _, part := range []string{processorKey, canonicalContext, backendID, version} {
		h.Write([]byte(part))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache memoizes processor outputs behind a store adapter. A hit is only
// valid when the entry's registry version matches the current one; stale
// entries are treated as misses and evicted on sight.
type Cache struct {
	store   ports.CacheStore
	version string
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// New creates a cache bound to the current registry version.
func New(store ports.CacheStore, version string, metrics ports.MetricsCollector, logger *zap.Logger) *Cache {
	return &Cache{
		store:   store,
		version: version,
		metrics: metrics,
		logger:  logger,
	}
}

// Get looks up an entry. Returns (nil, false) on miss or stale version.
// Store failures degrade to a miss: a broken cache must never fail a run.
func (c *Cache) Get(ctx context.Context, key string) (*domain.CacheEntry, bool) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			c.logger.Warn("cache get failed, treating as miss",
				zap.String("key", key),
				zap.Error(err))
		}
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	if entry.Version != c.version {
		c.logger.Debug("evicting stale cache entry",
			zap.String("key", key),
			zap.String("entry_version", entry.Version),
			zap.String("current_version", c.version))
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("failed to evict stale entry", zap.Error(err))
		}
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	c.metrics.RecordCacheHit()
	return entry, true
}

// Put stores a generated artifact under its key.
func (c *Cache) Put(ctx context.Context, key, processorKey, backendID, artifact string, tokensUsed int) error {
	entry := &domain.CacheEntry{
		Key:          key,
		ProcessorKey: processorKey,
		BackendID:    backendID,
		Version:      c.version,
		Artifact:     artifact,
		TokensUsed:   tokensUsed,
		CreatedAt:    time.Now(),
	}
	return c.store.Put(ctx, entry)
}

// Invalidate removes every entry matching the predicate.
func (c *Cache) Invalidate(ctx context.Context, pred func(*domain.CacheEntry) bool) (int, error) {
	return c.store.Invalidate(ctx, pred)
}

// InvalidateProcessor drops all entries for one processor key.
func (c *Cache) InvalidateProcessor(ctx context.Context, processorKey string) (int, error) {
	return c.store.Invalidate(ctx, func(e *domain.CacheEntry) bool {
		return e.ProcessorKey == processorKey
	})
}

// Version returns the registry version the cache validates against.
func (c *Cache) Version() string {
	return c.version
}
