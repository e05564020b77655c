package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

// RunStatus is the lifecycle of one submitted run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunState is the externally visible state of a run tracked by the manager.
type RunState struct {
	ID          string            `json:"id"`
	Status      RunStatus         `json:"status"`
	SubmittedAt time.Time         `json:"submitted_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Report      *domain.RunReport `json:"report,omitempty"`
}

// runHandle holds the mutable state for a single tracked run.
type runHandle struct {
	state      RunState
	cancelFunc context.CancelFunc
	mu         sync.RWMutex
}

// Manager coordinates run submission, tracking, and cancellation on top of
// the execution engine.
type Manager struct {
	engine  *Engine
	metrics ports.MetricsCollector
	logger  *zap.Logger

	runTimeout time.Duration

	// Track submitted runs
	runs sync.Map // map[string]*runHandle
}

// NewManager creates a new run manager.
func NewManager(engine *Engine, metrics ports.MetricsCollector, logger *zap.Logger, runTimeout time.Duration) *Manager {
	return &Manager{
		engine:     engine,
		metrics:    metrics,
		logger:     logger,
		runTimeout: runTimeout,
	}
}

// Submit starts a run over the given project context in the background and
// returns its tracking ID.
func (m *Manager) Submit(ctx context.Context, pc *domain.ProjectContext) (string, error) {
	if pc == nil {
		return "", fmt.Errorf("project context is required")
	}

	trackID := uuid.New().String()

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if m.runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), m.runTimeout)
	} else {
		runCtx, cancel = context.WithCancel(context.Background())
	}

	handle := &runHandle{
		state: RunState{
			ID:          trackID,
			Status:      RunStatusRunning,
			SubmittedAt: time.Now(),
		},
		cancelFunc: cancel,
	}
	m.runs.Store(trackID, handle)
	m.metrics.RecordRunSubmitted(string(RunStatusRunning))

	m.logger.Info("run submitted",
		zap.String("track_id", trackID),
		zap.Int("sections", len(pc.Sections)))

	go m.execute(runCtx, handle, pc)

	return trackID, nil
}

// execute drives a run to completion and records its final state.
func (m *Manager) execute(ctx context.Context, handle *runHandle, pc *domain.ProjectContext) {
	defer handle.cancelFunc()

	report, err := m.engine.Run(ctx, pc)

	handle.mu.Lock()
	defer handle.mu.Unlock()

	now := time.Now()
	handle.state.CompletedAt = &now
	handle.state.Report = report

	switch {
	case err != nil:
		handle.state.Status = RunStatusFailed
		m.logger.Error("run execution error",
			zap.String("track_id", handle.state.ID),
			zap.Error(err))
	case ctx.Err() != nil:
		handle.state.Status = RunStatusCancelled
	case report.Success():
		handle.state.Status = RunStatusCompleted
	default:
		handle.state.Status = RunStatusFailed
	}
}

// Get returns a snapshot of a run's state.
func (m *Manager) Get(id string) (*RunState, error) {
	val, ok := m.runs.Load(id)
	if !ok {
		return nil, fmt.Errorf("run not found: %s", id)
	}

	handle := val.(*runHandle)
	handle.mu.RLock()
	defer handle.mu.RUnlock()

	state := handle.state
	return &state, nil
}

// List returns snapshots of all tracked runs.
func (m *Manager) List() []*RunState {
	var out []*RunState
	m.runs.Range(func(_, value interface{}) bool {
		handle := value.(*runHandle)
		handle.mu.RLock()
		state := handle.state
		handle.mu.RUnlock()
		out = append(out, &state)
		return true
	})
	return out
}

// Cancel stops a running run. In-flight tasks finish under their own
// deadlines; no new tasks are dispatched.
func (m *Manager) Cancel(id string) error {
	val, ok := m.runs.Load(id)
	if !ok {
		return fmt.Errorf("run not found: %s", id)
	}

	handle := val.(*runHandle)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.state.Status != RunStatusRunning {
		return fmt.Errorf("run already in terminal state: %s", handle.state.Status)
	}

	handle.cancelFunc()
	handle.state.Status = RunStatusCancelled

	m.logger.Info("run cancelled", zap.String("track_id", id))
	return nil
}

// Order exposes the engine's resolved execution order.
func (m *Manager) Order() []string {
	return m.engine.Order()
}

// Shutdown cancels all active runs.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down run manager")

	m.runs.Range(func(_, value interface{}) bool {
		handle := value.(*runHandle)
		handle.cancelFunc()
		return true
	})

	m.logger.Info("run manager shut down complete")
	return nil
}
