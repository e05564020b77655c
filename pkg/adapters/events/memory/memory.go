package memory

import (
	"context"
	"sync"

	"github.com/aescanero/docforge/pkg/domain"
)

const subscriberBuffer = 64

// FanOut implements ports.TelemetrySink by fanning events out to
// subscriber channels. Slow subscribers drop events rather than blocking
// the engine.
type FanOut struct {
	mu          sync.RWMutex
	subscribers map[int]chan domain.Event
	nextID      int
	closed      bool
}

// NewFanOut creates an empty fan-out sink.
func NewFanOut() *FanOut {
	return &FanOut{
		subscribers: make(map[int]chan domain.Event),
	}
}

// Emit delivers the event to every subscriber. Non-blocking: a full
// subscriber buffer loses the event for that subscriber only.
func (f *FanOut) Emit(ctx context.Context, event domain.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}

	for _, ch := range f.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe or Close.
func (f *FanOut) Subscribe() (<-chan domain.Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++

	ch := make(chan domain.Event, subscriberBuffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subscribers[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subscribers[id]; ok {
			delete(f.subscribers, id)
			close(sub)
		}
	}
}

// Close closes all subscriber channels and stops accepting events.
func (f *FanOut) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	for id, ch := range f.subscribers {
		delete(f.subscribers, id)
		close(ch)
	}
	return nil
}
