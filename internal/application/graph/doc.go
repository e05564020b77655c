// Package graph builds the processor dependency graph and resolves a
// deterministic topological execution order.
//
// The resolver uses Kahn's algorithm (iterative, bounded stack depth) with
// ties among independent processors broken by ascending key, so runs over
// the same registry are reproducible. Cycles are reported with the keys
// forming the loop rather than a generic failure.
package graph
