package ports

import (
	"context"

	"github.com/aescanero/docforge/pkg/domain"
)

// GenerationRequest is the payload handed to a generation backend.
type GenerationRequest struct {
	TaskKey   string
	Prompt    string
	MaxTokens int
}

// GenerationResult is what a backend returns for one request.
type GenerationResult struct {
	Text       string
	TokensUsed int
}

// Generator is the injected generation capability. Implementations must
// honor the context deadline and wrap failures with domain.ErrTransient or
// domain.ErrPermanent so the engine can apply its retry policy.
type Generator interface {
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

// CacheStore is the key/value contract behind the result cache. A file,
// in-memory, or Redis implementation all satisfy it.
type CacheStore interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Put(ctx context.Context, entry *domain.CacheEntry) error
	Delete(ctx context.Context, key string) error

	// Invalidate removes every entry the predicate matches and returns
	// how many were dropped.
	Invalidate(ctx context.Context, pred func(*domain.CacheEntry) bool) (int, error)
}

// ErrCacheMiss is returned by CacheStore.Get when no entry exists.
// Defined here so stores and the cache agree without importing each other.
type cacheMissError struct{}

func (cacheMissError) Error() string { return "cache miss" }

// ErrCacheMiss is the sentinel miss error shared by all store adapters.
var ErrCacheMiss error = cacheMissError{}

// TelemetrySink receives structured run events. Emit must not block the
// engine; slow consumers buffer or drop on their side of the interface.
type TelemetrySink interface {
	Emit(ctx context.Context, event domain.Event)
}

// MetricsCollector abstracts the metrics backend.
type MetricsCollector interface {
	RecordRunSubmitted(status string)
	RecordRunCompleted(status string, durationMs int64)
	RecordTaskExecuted(status string, durationMs int64)
	RecordCacheHit()
	RecordCacheMiss()
	RecordFallback(strategy string, success bool)
	RecordBackendCall(backendID string, durationMs int64, failed bool)
	RecordBackendTokens(backendID string, tokens int)
}
