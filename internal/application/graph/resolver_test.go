package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/docforge/internal/application/registry"
	"github.com/aescanero/docforge/pkg/domain"
)

func mustLoad(t *testing.T, doc string) *registry.Registry {
	t.Helper()
	reg, err := registry.Load([]byte(doc))
	require.NoError(t, err)
	return reg
}

func TestTopoOrder(t *testing.T) {
	t.Run("Should order dependencies before dependents", func(t *testing.T) {
		reg := mustLoad(t, `
version: "1"
processors:
  - key: guide
    dependencies: [overview]
  - key: overview
  - key: reference
    dependencies: [guide]
`)
		g, err := Build(reg)
		require.NoError(t, err)

		order, err := g.TopoOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"overview", "guide", "reference"}, order)
	})

	t.Run("Should break ties by ascending key", func(t *testing.T) {
		reg := mustLoad(t, `
version: "1"
processors:
  - key: zeta
  - key: alpha
  - key: mid
`)
		g, err := Build(reg)
		require.NoError(t, err)

		order, err := g.TopoOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "mid", "zeta"}, order)
	})

	t.Run("Should be deterministic across invocations", func(t *testing.T) {
		reg := mustLoad(t, `
version: "1"
processors:
  - key: d
    dependencies: [b, c]
  - key: c
    dependencies: [a]
  - key: b
    dependencies: [a]
  - key: a
`)
		g, err := Build(reg)
		require.NoError(t, err)

		first, err := g.TopoOrder()
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := g.TopoOrder()
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
		assert.Equal(t, []string{"a", "b", "c", "d"}, first)
	})

	t.Run("Should report cycle members", func(t *testing.T) {
		reg := mustLoad(t, `
version: "1"
processors:
  - key: a
    dependencies: [b]
  - key: b
    dependencies: [a]
  - key: standalone
`)
		g, err := Build(reg)
		require.NoError(t, err)

		_, err = g.TopoOrder()
		var cycleErr *domain.CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Members)
	})

	t.Run("Should exclude downstream nodes from the reported cycle", func(t *testing.T) {
		reg := mustLoad(t, `
version: "1"
processors:
  - key: a
    dependencies: [b]
  - key: b
    dependencies: [a]
  - key: victim
    dependencies: [a]
`)
		g, err := Build(reg)
		require.NoError(t, err)

		_, err = g.TopoOrder()
		var cycleErr *domain.CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.NotContains(t, cycleErr.Members, "victim")
		assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Members)
	})
}

func TestDependents(t *testing.T) {
	t.Run("Should list direct dependents sorted", func(t *testing.T) {
		reg := mustLoad(t, `
version: "1"
processors:
  - key: base
  - key: z-doc
    dependencies: [base]
  - key: a-doc
    dependencies: [base]
`)
		g, err := Build(reg)
		require.NoError(t, err)

		assert.Equal(t, []string{"a-doc", "z-doc"}, g.Dependents("base"))
		assert.Empty(t, g.Dependents("a-doc"))
		assert.Equal(t, 3, g.Len())
	})
}
