package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

func entry(key, processorKey string) *domain.CacheEntry {
	return &domain.CacheEntry{Key: key, ProcessorKey: processorKey, Artifact: "text"}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should round-trip entries", func(t *testing.T) {
		s, err := NewStore(8)
		require.NoError(t, err)

		require.NoError(t, s.Put(ctx, entry("k1", "p1")))

		got, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "p1", got.ProcessorKey)
	})

	t.Run("Should return ErrCacheMiss for unknown keys", func(t *testing.T) {
		s, err := NewStore(8)
		require.NoError(t, err)

		_, err = s.Get(ctx, "ghost")
		assert.ErrorIs(t, err, ports.ErrCacheMiss)
	})

	t.Run("Should delete entries", func(t *testing.T) {
		s, err := NewStore(8)
		require.NoError(t, err)

		require.NoError(t, s.Put(ctx, entry("k1", "p1")))
		require.NoError(t, s.Delete(ctx, "k1"))

		_, err = s.Get(ctx, "k1")
		assert.ErrorIs(t, err, ports.ErrCacheMiss)
	})

	t.Run("Should invalidate by predicate", func(t *testing.T) {
		s, err := NewStore(8)
		require.NoError(t, err)

		require.NoError(t, s.Put(ctx, entry("k1", "keep")))
		require.NoError(t, s.Put(ctx, entry("k2", "drop")))
		require.NoError(t, s.Put(ctx, entry("k3", "drop")))

		removed, err := s.Invalidate(ctx, func(e *domain.CacheEntry) bool {
			return e.ProcessorKey == "drop"
		})
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("Should evict the oldest entry past capacity", func(t *testing.T) {
		s, err := NewStore(2)
		require.NoError(t, err)

		require.NoError(t, s.Put(ctx, entry("k1", "p")))
		require.NoError(t, s.Put(ctx, entry("k2", "p")))
		require.NoError(t, s.Put(ctx, entry("k3", "p")))

		assert.Equal(t, 2, s.Len())
		_, err = s.Get(ctx, "k1")
		assert.ErrorIs(t, err, ports.ErrCacheMiss)
	})
}
