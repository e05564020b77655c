package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/docforge/pkg/domain"
)

const (
	streamKey = "docforge:events"
	maxLen    = 10000
)

// StreamsSink implements ports.TelemetrySink by appending run events to a
// capped Redis Stream, so operators can tail them from other processes.
type StreamsSink struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStreamsSink creates a Redis Streams telemetry sink.
func NewStreamsSink(client *redis.Client, logger *zap.Logger) *StreamsSink {
	return &StreamsSink{
		client: client,
		logger: logger,
	}
}

// Emit appends the event to the stream. Failures are logged, never
// surfaced: telemetry loss must not affect a run.
func (s *StreamsSink) Emit(ctx context.Context, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	args := &redis.XAddArgs{
		Stream: streamKey,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}

	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		s.logger.Error("failed to append event to stream",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
		return
	}

	s.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("run_id", event.RunID))
}
