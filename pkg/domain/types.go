package domain

import (
	"sync/atomic"
	"time"
)

// Complexity classifies how demanding a processor's document is to generate.
// It drives the preferred response budget reserved for the backend.
type Complexity string

const (
	ComplexityLow      Complexity = "low"
	ComplexityMedium   Complexity = "medium"
	ComplexityHigh     Complexity = "high"
	ComplexityVeryHigh Complexity = "very_high"
)

// ValidComplexity reports whether c is one of the known complexity levels.
func ValidComplexity(c Complexity) bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh, ComplexityVeryHigh:
		return true
	}
	return false
}

// ProcessorDescriptor is the static description of one document processor.
// Descriptors are immutable once the registry has loaded them.
type ProcessorDescriptor struct {
	Key             string     `yaml:"key" json:"key"`
	Category        string     `yaml:"category" json:"category"`
	Dependencies    []string   `yaml:"dependencies" json:"dependencies"`
	EstimatedTokens int        `yaml:"estimated_tokens" json:"estimated_tokens"`
	Complexity      Complexity `yaml:"complexity" json:"complexity"`
}

// TaskStatus is the lifecycle state of a generation task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusValidating TaskStatus = "validating"
	TaskStatusDegrading  TaskStatus = "degrading"
	TaskStatusCached     TaskStatus = "cached"
	TaskStatusRunning    TaskStatus = "running"
	TaskStatusSucceeded  TaskStatus = "succeeded"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusSkipped    TaskStatus = "skipped"
)

// Terminal reports whether the status is one the engine never leaves.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed || s == TaskStatusSkipped
}

// BackendProfile describes one generation backend's capacity and priority.
// Availability is flipped concurrently by health tracking, so it is an
// atomic flag rather than a plain field.
type BackendProfile struct {
	ID                  string  `json:"id"`
	ContextWindowTokens int     `json:"context_window_tokens"`
	CostWeight          float64 `json:"cost_weight"`

	available atomic.Bool
}

// NewBackendProfile creates a profile that starts out available.
func NewBackendProfile(id string, contextWindowTokens int, costWeight float64) *BackendProfile {
	p := &BackendProfile{
		ID:                  id,
		ContextWindowTokens: contextWindowTokens,
		CostWeight:          costWeight,
	}
	p.available.Store(true)
	return p
}

// Available reports whether the backend is currently usable.
func (p *BackendProfile) Available() bool {
	return p.available.Load()
}

// SetAvailable updates the backend availability flag.
func (p *BackendProfile) SetAvailable(v bool) {
	p.available.Store(v)
}

// Verdict is the result of validating a task against a backend's context
// window. Produced fresh per task, never persisted beyond the run report.
type Verdict struct {
	Fits            bool     `json:"fits"`
	EstimatedTokens int      `json:"estimated_tokens"`
	AvailableTokens int      `json:"available_tokens"`
	UtilizationPct  float64  `json:"utilization_pct"`
	Warnings        []string `json:"warnings,omitempty"`
}

// FallbackStrategy identifies a content-reduction or backend-substitution
// technique applied when a task does not fit its budget.
type FallbackStrategy string

const (
	FallbackNone           FallbackStrategy = "none"
	FallbackBackendSwitch  FallbackStrategy = "backend_switch"
	FallbackPrioritization FallbackStrategy = "prioritization"
	FallbackSummarization  FallbackStrategy = "summarization"
	FallbackChunking       FallbackStrategy = "chunking"
)

// FallbackOutcome records which strategy (if any) made a task fit and how
// much content was lost doing so.
type FallbackOutcome struct {
	StrategyUsed FallbackStrategy `json:"strategy_used"`
	FinalTokens  int              `json:"final_tokens"`
	ReductionPct float64          `json:"reduction_pct"`
	Success      bool             `json:"success"`
}

// CacheEntry is one memoized processor result.
type CacheEntry struct {
	Key          string    `json:"key"`
	ProcessorKey string    `json:"processor_key"`
	BackendID    string    `json:"backend_id"`
	Version      string    `json:"version"`
	Artifact     string    `json:"artifact"`
	TokensUsed   int       `json:"tokens_used"`
	CreatedAt    time.Time `json:"created_at"`
}
