package events

import (
	"context"

	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

// Multi composes several telemetry sinks into one.
type Multi struct {
	sinks []ports.TelemetrySink
}

// NewMulti creates a composite sink. Nil sinks are dropped.
func NewMulti(sinks ...ports.TelemetrySink) *Multi {
	out := make([]ports.TelemetrySink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Multi{sinks: out}
}

// Emit forwards the event to every composed sink.
func (m *Multi) Emit(ctx context.Context, event domain.Event) {
	for _, s := range m.sinks {
		s.Emit(ctx, event)
	}
}
