package graph

import (
	"fmt"
	"sort"

	"github.com/aescanero/docforge/internal/application/registry"
	"github.com/aescanero/docforge/pkg/domain"
)

// Graph is the dependency graph built from a registry. Edges point from a
// dependency to its dependents. Read-only after Build.
type Graph struct {
	nodes      map[string]*domain.ProcessorDescriptor
	dependents map[string][]string
	indegree   map[string]int
}

// Build constructs the graph from a validated registry. Dangling references
// are already rejected at load time; Build re-checks to keep the invariant
// local.
func Build(reg *registry.Registry) (*Graph, error) {
	g := &Graph{
		nodes:      make(map[string]*domain.ProcessorDescriptor, reg.Len()),
		dependents: make(map[string][]string, reg.Len()),
		indegree:   make(map[string]int, reg.Len()),
	}

	for _, key := range reg.Keys() {
		g.nodes[key] = reg.Get(key)
		g.indegree[key] = 0
	}

	for _, key := range reg.Keys() {
		for _, dep := range reg.Get(key).Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				return nil, fmt.Errorf("processor %q depends on unknown %q", key, dep)
			}
			g.dependents[dep] = append(g.dependents[dep], key)
			g.indegree[key]++
		}
	}

	for dep := range g.dependents {
		sort.Strings(g.dependents[dep])
	}

	return g, nil
}

// Dependents returns the direct dependents of a key, in ascending order.
func (g *Graph) Dependents(key string) []string {
	return g.dependents[key]
}

// Dependencies returns the declared dependencies of a key.
func (g *Graph) Dependencies(key string) []string {
	if n, ok := g.nodes[key]; ok {
		return n.Dependencies
	}
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// TopoOrder computes a deterministic topological order using Kahn's
// algorithm. Ties among ready nodes are broken by ascending key, so the
// same registry always yields the same order. On a cycle it returns a
// *domain.CycleError naming the members of one minimal cycle.
func (g *Graph) TopoOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.indegree))
	for k, v := range g.indegree {
		indegree[k] = v
	}

	// Ready set kept sorted; extraction always takes the smallest key.
	ready := make([]string, 0, len(g.nodes))
	for key, d := range indegree {
		if d == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)

		for _, next := range g.dependents[key] {
			indegree[next]--
			if indegree[next] == 0 {
				i := sort.SearchStrings(ready, next)
				ready = append(ready, "")
				copy(ready[i+1:], ready[i:])
				ready[i] = next
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, &domain.CycleError{Members: g.findCycle(indegree)}
	}

	return order, nil
}

// findCycle extracts one cycle from the nodes left with positive indegree
// after Kahn's algorithm stalls. Every such node lies on or downstream of a
// cycle, so walking dependency edges inside that set must revisit a node.
func (g *Graph) findCycle(indegree map[string]int) []string {
	remaining := make(map[string]bool)
	var starts []string
	for key, d := range indegree {
		if d > 0 {
			remaining[key] = true
			starts = append(starts, key)
		}
	}
	sort.Strings(starts)
	if len(starts) == 0 {
		return nil
	}

	// Walk dependency edges from the smallest remaining key until a node
	// repeats; the slice between the two occurrences is the cycle.
	var path []string
	index := make(map[string]int)
	cur := starts[0]
	for {
		if at, seen := index[cur]; seen {
			return path[at:]
		}
		index[cur] = len(path)
		path = append(path, cur)

		next := ""
		for _, dep := range g.Dependencies(cur) {
			if remaining[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			// Dead end inside the remaining set; should not happen, but
			// report the walked path rather than looping forever.
			return path
		}
		cur = next
	}
}
