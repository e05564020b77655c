// Package engine implements the execution engine for document generation
// runs.
//
// The engine walks the resolved topological order and drives each task
// through its state machine:
//   - budget validation against the active backend's context window
//   - fallback degradation when the payload does not fit
//   - cache lookup keyed on the actual payload
//   - backend invocation with per-call deadline and bounded retry
//   - telemetry and metrics capture, aggregated into the run report
//
// Tasks with no dependency relationship execute concurrently on a bounded
// worker pool; a failed dependency skips all transitive dependents without
// consuming a worker slot.
package engine
