package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/docforge/pkg/adapters/metrics"
	"github.com/aescanero/docforge/pkg/domain"
)

func newTestManager(t *testing.T, fail func(key string, attempt int) error) (*Manager, *fixture) {
	t.Helper()
	f := newFixture(t, chainDoc, fail)
	return NewManager(f.engine, metrics.NewNoop(), zap.NewNop(), time.Minute), f
}

func waitTerminal(t *testing.T, m *Manager, id string) *RunState {
	t.Helper()
	var state *RunState
	require.Eventually(t, func() bool {
		s, err := m.Get(id)
		if err != nil {
			return false
		}
		state = s
		return s.Status != RunStatusRunning
	}, 5*time.Second, 10*time.Millisecond)
	return state
}

func TestManagerSubmit(t *testing.T) {
	t.Run("Should track a run to completion", func(t *testing.T) {
		m, _ := newTestManager(t, nil)

		id, err := m.Submit(context.Background(), testContext())
		require.NoError(t, err)
		require.NotEmpty(t, id)

		state := waitTerminal(t, m, id)
		assert.Equal(t, RunStatusCompleted, state.Status)
		require.NotNil(t, state.Report)
		assert.Equal(t, 3, state.Report.Succeeded)
		require.NotNil(t, state.CompletedAt)
	})

	t.Run("Should mark a run failed when any task fails", func(t *testing.T) {
		m, _ := newTestManager(t, func(key string, _ int) error {
			if key == "c" {
				return domain.ErrPermanent
			}
			return nil
		})

		id, err := m.Submit(context.Background(), testContext())
		require.NoError(t, err)

		state := waitTerminal(t, m, id)
		assert.Equal(t, RunStatusFailed, state.Status)
		require.NotNil(t, state.Report)
		assert.Equal(t, 1, state.Report.Failed)
	})

	t.Run("Should run without a timeout and still be cancellable", func(t *testing.T) {
		f := newFixture(t, chainDoc, nil)
		m := NewManager(f.engine, metrics.NewNoop(), zap.NewNop(), 0)

		id, err := m.Submit(context.Background(), testContext())
		require.NoError(t, err)

		state := waitTerminal(t, m, id)
		assert.Equal(t, RunStatusCompleted, state.Status)

		// A finished run refuses cancellation but its context was released.
		require.Error(t, m.Cancel(id))
	})

	t.Run("Should reject a nil context", func(t *testing.T) {
		m, _ := newTestManager(t, nil)
		_, err := m.Submit(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("Should list submitted runs", func(t *testing.T) {
		m, _ := newTestManager(t, nil)

		first, err := m.Submit(context.Background(), testContext())
		require.NoError(t, err)
		second, err := m.Submit(context.Background(), testContext())
		require.NoError(t, err)

		waitTerminal(t, m, first)
		waitTerminal(t, m, second)

		ids := make(map[string]bool)
		for _, s := range m.List() {
			ids[s.ID] = true
		}
		assert.True(t, ids[first])
		assert.True(t, ids[second])
	})
}

func TestManagerCancel(t *testing.T) {
	t.Run("Should error on unknown runs", func(t *testing.T) {
		m, _ := newTestManager(t, nil)
		require.Error(t, m.Cancel("nope"))
	})

	t.Run("Should refuse to cancel a finished run", func(t *testing.T) {
		m, _ := newTestManager(t, nil)

		id, err := m.Submit(context.Background(), testContext())
		require.NoError(t, err)
		waitTerminal(t, m, id)

		require.Error(t, m.Cancel(id))
	})
}

func TestManagerOrder(t *testing.T) {
	t.Run("Should expose the resolved execution order", func(t *testing.T) {
		m, _ := newTestManager(t, nil)
		assert.Equal(t, []string{"a", "b", "c"}, m.Order())
	})
}
