package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/docforge/pkg/domain"
)

func TestFanOut(t *testing.T) {
	ctx := context.Background()

	t.Run("Should deliver events to every subscriber", func(t *testing.T) {
		f := NewFanOut()
		defer f.Close()

		ch1, cancel1 := f.Subscribe()
		defer cancel1()
		ch2, cancel2 := f.Subscribe()
		defer cancel2()

		f.Emit(ctx, domain.Event{ID: "e1", Type: domain.EventTypeRunStarted, RunID: "r1"})

		for _, ch := range []<-chan domain.Event{ch1, ch2} {
			select {
			case ev := <-ch:
				assert.Equal(t, "e1", ev.ID)
			case <-time.After(time.Second):
				t.Fatal("event not delivered")
			}
		}
	})

	t.Run("Should stop delivering after unsubscribe", func(t *testing.T) {
		f := NewFanOut()
		defer f.Close()

		ch, cancel := f.Subscribe()
		cancel()

		// Channel is closed on unsubscribe.
		_, ok := <-ch
		assert.False(t, ok)

		// Emitting afterwards must not panic.
		f.Emit(ctx, domain.Event{ID: "e2"})
	})

	t.Run("Should drop events for a full subscriber instead of blocking", func(t *testing.T) {
		f := NewFanOut()
		defer f.Close()

		_, cancel := f.Subscribe()
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < subscriberBuffer*2; i++ {
				f.Emit(ctx, domain.Event{ID: "flood"})
			}
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Emit blocked on a slow subscriber")
		}
	})

	t.Run("Should close subscriber channels on Close", func(t *testing.T) {
		f := NewFanOut()
		ch, _ := f.Subscribe()

		require.NoError(t, f.Close())
		_, ok := <-ch
		assert.False(t, ok)

		// Close is idempotent and Subscribe after Close yields a closed channel.
		require.NoError(t, f.Close())
		late, _ := f.Subscribe()
		_, ok = <-late
		assert.False(t, ok)
	})
}
