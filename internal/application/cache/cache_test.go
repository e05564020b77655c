package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	memorycache "github.com/aescanero/docforge/pkg/adapters/cache/memory"
	"github.com/aescanero/docforge/pkg/adapters/metrics"
	"github.com/aescanero/docforge/pkg/domain"
)

func newTestCache(t *testing.T, version string) *Cache {
	t.Helper()
	store, err := memorycache.NewStore(64)
	require.NoError(t, err)
	return New(store, version, metrics.NewNoop(), zap.NewNop())
}

func TestKey(t *testing.T) {
	t.Run("Should be deterministic", func(t *testing.T) {
		a := Key("proc", "ctx", "backend", "1")
		b := Key("proc", "ctx", "backend", "1")
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("Should change when any component changes", func(t *testing.T) {
		base := Key("proc", "ctx", "backend", "1")
		assert.NotEqual(t, base, Key("proc2", "ctx", "backend", "1"))
		assert.NotEqual(t, base, Key("proc", "ctx2", "backend", "1"))
		assert.NotEqual(t, base, Key("proc", "ctx", "backend2", "1"))
		assert.NotEqual(t, base, Key("proc", "ctx", "backend", "2"))
	})

	t.Run("Should not collide when boundaries shift", func(t *testing.T) {
		// "ab"+"c" vs "a"+"bc" across the field separator.
		assert.NotEqual(t, Key("ab", "c", "x", "1"), Key("a", "bc", "x", "1"))
	})
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return stored entries on matching version", func(t *testing.T) {
		c := newTestCache(t, "1")
		key := Key("proc", "ctx", "backend", c.Version())

		require.NoError(t, c.Put(ctx, key, "proc", "backend", "artifact text", 42))

		entry, ok := c.Get(ctx, key)
		require.True(t, ok)
		assert.Equal(t, "artifact text", entry.Artifact)
		assert.Equal(t, 42, entry.TokensUsed)
		assert.Equal(t, "1", entry.Version)
	})

	t.Run("Should miss on unknown keys", func(t *testing.T) {
		c := newTestCache(t, "1")
		_, ok := c.Get(ctx, "missing")
		assert.False(t, ok)
	})

	t.Run("Should evict entries from a previous version", func(t *testing.T) {
		store, err := memorycache.NewStore(64)
		require.NoError(t, err)

		old := New(store, "1", metrics.NewNoop(), zap.NewNop())
		key := Key("proc", "ctx", "backend", "1")
		require.NoError(t, old.Put(ctx, key, "proc", "backend", "stale", 1))

		current := New(store, "2", metrics.NewNoop(), zap.NewNop())
		_, ok := current.Get(ctx, key)
		assert.False(t, ok)

		// The stale entry is gone from the store, not just masked.
		_, err = store.Get(ctx, key)
		require.Error(t, err)
	})
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Should remove entries for one processor only", func(t *testing.T) {
		c := newTestCache(t, "1")
		keyA := Key("a", "ctx", "backend", "1")
		keyB := Key("b", "ctx", "backend", "1")
		require.NoError(t, c.Put(ctx, keyA, "a", "backend", "one", 1))
		require.NoError(t, c.Put(ctx, keyB, "b", "backend", "two", 1))

		removed, err := c.InvalidateProcessor(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, ok := c.Get(ctx, keyA)
		assert.False(t, ok)
		_, ok = c.Get(ctx, keyB)
		assert.True(t, ok)
	})
}

// failingStore simulates a broken cache backend.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (*domain.CacheEntry, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Put(context.Context, *domain.CacheEntry) error { return errors.New("down") }
func (failingStore) Delete(context.Context, string) error          { return errors.New("down") }
func (failingStore) Invalidate(context.Context, func(*domain.CacheEntry) bool) (int, error) {
	return 0, errors.New("down")
}

func TestDegradedStore(t *testing.T) {
	t.Run("Should treat store failures as misses", func(t *testing.T) {
		c := New(failingStore{}, "1", metrics.NewNoop(), zap.NewNop())
		_, ok := c.Get(context.Background(), "any")
		assert.False(t, ok)
	})
}
