// Package events provides telemetry sink implementations.
//
// Implementations:
//   - memory: in-process fan-out to subscriber channels (API streaming, tests)
//   - redis: Redis Streams, for tailing run events across processes
//   - multi: composes several sinks into one
package events
