// Package metrics provides metrics collector implementations.
//
// Implementations:
//   - prometheus: production collector exposed on /metrics
//   - Noop: discards everything, for tests and metric-less deployments
package metrics

// Noop implements ports.MetricsCollector by discarding every observation.
type Noop struct{}

// NewNoop creates a no-op metrics collector.
func NewNoop() *Noop { return &Noop{} }

func (Noop) RecordRunSubmitted(string) {}

func (Noop) RecordRunCompleted(string, int64) {}

func (Noop) RecordTaskExecuted(string, int64) {}

func (Noop) RecordCacheHit() {}

func (Noop) RecordCacheMiss() {}

func (Noop) RecordFallback(string, bool) {}

func (Noop) RecordBackendCall(string, int64, bool) {}

func (Noop) RecordBackendTokens(string, int) {}
