// Package registry loads and validates the processor registry document.
//
// The registry is the static description of every available processor:
//   - identity (unique key) and category
//   - declared dependencies on other processors
//   - estimated token cost and complexity level
//
// Validation is batch-wide: every invalid entry is reported in one
// aggregated error rather than failing on the first problem.
package registry
