package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/aescanero/docforge/internal/application/budget"
	"github.com/aescanero/docforge/internal/application/cache"
	"github.com/aescanero/docforge/internal/application/fallback"
	"github.com/aescanero/docforge/internal/application/graph"
	"github.com/aescanero/docforge/internal/application/registry"
	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

// Consecutive transport failures before a backend profile is marked
// unavailable for the rest of the run.
const backendFailureThreshold = 3

// Config holds execution engine tuning knobs.
type Config struct {
	MaxConcurrency int
	SlowThreshold  time.Duration
	SlowestN       int

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	CallTimeout    time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MaxConcurrency <= 0 {
		out.MaxConcurrency = 1
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	}
	if out.RetryBaseDelay <= 0 {
		out.RetryBaseDelay = time.Second
	}
	if out.RetryMaxDelay <= 0 {
		out.RetryMaxDelay = 30 * time.Second
	}
	if out.CallTimeout <= 0 {
		out.CallTimeout = 2 * time.Minute
	}
	return out
}

// Engine walks the resolved topological order and executes each task:
// budget validation, fallback, cache lookup, backend invocation with retry,
// and telemetry capture. Tasks with no dependency relationship run
// concurrently, bounded by the configured worker pool size.
type Engine struct {
	reg       *registry.Registry
	graph     *graph.Graph
	order     []string
	validator *budget.Validator
	chain     *fallback.Chain
	cache     *cache.Cache
	profiles  []*domain.BackendProfile
	backends  map[string]ports.Generator
	sink      ports.TelemetrySink
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	cfg       Config

	failureMu sync.Mutex
	failures  map[string]int
}

// New builds an engine. The topological order is computed here, once, so
// configuration-time errors (cycles) surface before any run starts.
func New(
	reg *registry.Registry,
	validator *budget.Validator,
	chain *fallback.Chain,
	resultCache *cache.Cache,
	profiles []*domain.BackendProfile,
	backends map[string]ports.Generator,
	sink ports.TelemetrySink,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	cfg Config,
) (*Engine, error) {
	g, err := graph.Build(reg)
	if err != nil {
		return nil, err
	}
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		if _, ok := backends[p.ID]; !ok {
			return nil, fmt.Errorf("no generator registered for backend profile %q", p.ID)
		}
	}

	return &Engine{
		reg:       reg,
		graph:     g,
		order:     order,
		validator: validator,
		chain:     chain,
		cache:     resultCache,
		profiles:  profiles,
		backends:  backends,
		sink:      sink,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		failures:  make(map[string]int),
	}, nil
}

// Order returns the resolved topological execution order.
func (e *Engine) Order() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Run executes every task against the given project context and returns
// the aggregated report. One task's failure never aborts independent
// tasks; only its transitive dependents are skipped. Cancelling ctx stops
// dispatching new tasks and lets in-flight calls finish under their own
// deadlines.
func (e *Engine) Run(ctx context.Context, pc *domain.ProjectContext) (*domain.RunReport, error) {
	runID := uuid.New().String()
	builder := newReportBuilder(runID, e.cfg.SlowThreshold, e.cfg.SlowestN)

	e.logger.Info("run started",
		zap.String("run_id", runID),
		zap.Int("tasks", len(e.order)),
		zap.Int("max_concurrency", e.cfg.MaxConcurrency))
	e.emit(ctx, runID, "", domain.EventTypeRunStarted, map[string]interface{}{
		"tasks": len(e.order),
	})

	tasks := make(map[string]*task, len(e.order))
	for i, key := range e.order {
		proc := e.reg.Get(key)
		tasks[key] = &task{
			proc:    proc,
			slice:   pc.SliceFor(proc.Category),
			status:  domain.TaskStatusPending,
			order:   i,
			waiting: len(proc.Dependencies),
		}
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed = make(chan domain.TaskOutcome, len(e.order))
		sem       = make(chan struct{}, e.cfg.MaxConcurrency)
		remaining = len(e.order)
	)

	// dispatch starts every ready pending task. Caller holds mu.
	dispatch := func() {
		if ctx.Err() != nil {
			return
		}
		for _, key := range e.order {
			t := tasks[key]
			if t.status != domain.TaskStatusPending || t.waiting > 0 {
				continue
			}
			t.status = domain.TaskStatusValidating
			wg.Add(1)
			go func(key string, t *task) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				completed <- e.runTask(ctx, runID, key, t)
			}(key, t)
		}
	}

	// skipDependents cascades a failure to all transitive dependents
	// without consuming worker slots. Caller holds mu.
	var skipDependents func(key, cause string)
	skipDependents = func(key, cause string) {
		for _, dep := range e.graph.Dependents(key) {
			t := tasks[dep]
			if t.status != domain.TaskStatusPending {
				continue
			}
			t.status = domain.TaskStatusSkipped
			remaining--
			outcome := domain.TaskOutcome{
				Key:    dep,
				Status: domain.TaskStatusSkipped,
				Order:  t.order,
				Error:  fmt.Sprintf("dependency %s failed", cause),
			}
			builder.record(outcome)
			e.metrics.RecordTaskExecuted(string(domain.TaskStatusSkipped), 0)
			e.emit(ctx, runID, dep, domain.EventTypeTaskSkipped, map[string]interface{}{
				"cause": cause,
			})
			e.logger.Warn("task skipped",
				zap.String("run_id", runID),
				zap.String("task_key", dep),
				zap.String("failed_dependency", cause))
			skipDependents(dep, cause)
		}
	}

	mu.Lock()
	dispatch()
	mu.Unlock()

	for remaining > 0 {
		// All runnable work may already be exhausted: nothing in flight
		// and nothing ready (cancelled run, or leftovers behind skips).
		mu.Lock()
		inFlight := false
		for _, t := range tasks {
			// Dispatched tasks stay in validating from the scheduler's
			// point of view until their outcome arrives.
			if t.status == domain.TaskStatusValidating {
				inFlight = true
				break
			}
		}
		if !inFlight {
			stalled := true
			for _, t := range tasks {
				if t.status == domain.TaskStatusPending && t.waiting == 0 && ctx.Err() == nil {
					stalled = false
					break
				}
			}
			if stalled {
				mu.Unlock()
				break
			}
		}
		mu.Unlock()

		outcome := <-completed

		mu.Lock()
		t := tasks[outcome.Key]
		t.status = outcome.Status
		remaining--
		builder.record(outcome)

		if outcome.Status == domain.TaskStatusSucceeded {
			for _, dep := range e.graph.Dependents(outcome.Key) {
				tasks[dep].waiting--
			}
			dispatch()
		} else {
			skipDependents(outcome.Key, outcome.Key)
		}
		mu.Unlock()
	}

	wg.Wait()

	// Tasks never dispatched because the run was cancelled.
	mu.Lock()
	for key, t := range tasks {
		if t.status == domain.TaskStatusPending {
			t.status = domain.TaskStatusSkipped
			builder.record(domain.TaskOutcome{
				Key:    key,
				Status: domain.TaskStatusSkipped,
				Order:  t.order,
				Error:  "run cancelled before dispatch",
			})
		}
	}
	mu.Unlock()

	report := builder.finalize()

	status := "completed"
	if !report.Success() {
		status = "failed"
	}
	e.metrics.RecordRunCompleted(status, report.TotalDurationMs)
	e.emit(ctx, runID, "", domain.EventTypeRunSummary, map[string]interface{}{
		"succeeded":   report.Succeeded,
		"failed":      report.Failed,
		"skipped":     report.Skipped,
		"warned":      report.Warned,
		"degraded":    report.Degraded,
		"cache_hits":  report.CacheHits,
		"duration_ms": report.TotalDurationMs,
	})
	e.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int64("duration_ms", report.TotalDurationMs))

	return report, nil
}

// runTask drives one task through the state machine:
// validating -> (degrading)? -> (cached | running) -> (succeeded | failed).
func (e *Engine) runTask(ctx context.Context, runID, key string, t *task) domain.TaskOutcome {
	start := time.Now()
	outcome := domain.TaskOutcome{
		Key:   key,
		Order: t.order,
	}

	e.emit(ctx, runID, key, domain.EventTypeTaskStarted, nil)
	e.logger.Debug("task started",
		zap.String("run_id", runID),
		zap.String("task_key", key))

	profile := e.activeProfile()
	if profile == nil {
		return e.fail(ctx, runID, &outcome, start,
			fmt.Errorf("no backend available: %w", domain.ErrPermanent))
	}

	slice := t.slice
	verdict := e.validator.Validate(t.proc, slice, profile)
	outcome.Verdict = verdict
	outcome.Fallback = domain.FallbackOutcome{StrategyUsed: domain.FallbackNone}

	if e.validator.NeedsFallback(verdict) {
		res, err := e.chain.Apply(t.proc, slice, profile, verdict)
		outcome.Fallback = res.Outcome
		e.metrics.RecordFallback(string(res.Outcome.StrategyUsed), res.Outcome.Success)
		e.emit(ctx, runID, key, domain.EventTypeTaskDegraded, map[string]interface{}{
			"strategy":      string(res.Outcome.StrategyUsed),
			"success":       res.Outcome.Success,
			"reduction_pct": res.Outcome.ReductionPct,
		})
		if err != nil {
			return e.fail(ctx, runID, &outcome, start, err)
		}
		profile = res.Profile
		slice = res.Slice
		outcome.Verdict = res.Verdict
	}

	outcome.BackendID = profile.ID

	// Cache lookup happens after validation and fallback so the key
	// reflects the payload that would actually be sent.
	cacheKey := cache.Key(t.proc.Key, slice.Canonical(), profile.ID, e.cache.Version())
	if entry, ok := e.cache.Get(ctx, cacheKey); ok {
		outcome.Status = domain.TaskStatusSucceeded
		outcome.CacheHit = true
		outcome.DurationMs = time.Since(start).Milliseconds()
		e.metrics.RecordTaskExecuted(string(domain.TaskStatusSucceeded), outcome.DurationMs)
		e.emit(ctx, runID, key, domain.EventTypeTaskCompleted, map[string]interface{}{
			"duration_ms": outcome.DurationMs,
			"cache_hit":   true,
			"tokens_used": entry.TokensUsed,
		})
		e.logger.Info("task served from cache",
			zap.String("run_id", runID),
			zap.String("task_key", key),
			zap.String("backend", profile.ID))
		return outcome
	}

	result, attempts, err := e.invoke(ctx, profile, &ports.GenerationRequest{
		TaskKey:   key,
		Prompt:    buildPrompt(t.proc, slice),
		MaxTokens: budget.ResponseBudget(t.proc.Complexity),
	})
	outcome.Attempts = attempts
	if err != nil {
		return e.fail(ctx, runID, &outcome, start, err)
	}

	if err := e.cache.Put(ctx, cacheKey, t.proc.Key, profile.ID, result.Text, result.TokensUsed); err != nil {
		// A broken cache must not fail the task.
		e.logger.Warn("failed to store cache entry",
			zap.String("task_key", key),
			zap.Error(err))
	}
	e.metrics.RecordBackendTokens(profile.ID, result.TokensUsed)

	outcome.Status = domain.TaskStatusSucceeded
	outcome.DurationMs = time.Since(start).Milliseconds()
	e.metrics.RecordTaskExecuted(string(domain.TaskStatusSucceeded), outcome.DurationMs)
	e.emit(ctx, runID, key, domain.EventTypeTaskCompleted, map[string]interface{}{
		"duration_ms": outcome.DurationMs,
		"cache_hit":   false,
		"tokens_used": result.TokensUsed,
		"attempts":    attempts,
	})
	e.logger.Info("task completed",
		zap.String("run_id", runID),
		zap.String("task_key", key),
		zap.String("backend", profile.ID),
		zap.Int64("duration_ms", outcome.DurationMs))

	return outcome
}

// invoke calls the backend with the per-call deadline and the retry policy
// for transient failures: exponential backoff with jitter, bounded
// attempts. A transient error that survives the retry budget becomes
// permanent.
func (e *Engine) invoke(ctx context.Context, profile *domain.BackendProfile, req *ports.GenerationRequest) (*ports.GenerationResult, int, error) {
	gen := e.backends[profile.ID]

	backoff := retry.NewExponential(e.cfg.RetryBaseDelay)
	backoff = retry.WithMaxDuration(e.cfg.RetryMaxDelay, backoff)
	backoff = retry.WithJitter(100*time.Millisecond, backoff)
	backoff = retry.WithMaxRetries(uint64(e.cfg.MaxRetries), backoff)

	var result *ports.GenerationResult
	attempts := 0

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()

		callStart := time.Now()
		res, callErr := gen.Generate(callCtx, req)
		e.metrics.RecordBackendCall(profile.ID, time.Since(callStart).Milliseconds(), callErr != nil)

		if callErr != nil {
			e.recordBackendFailure(profile)
			// A deadline on the call (not the run) counts as transient.
			if errors.Is(callErr, domain.ErrTransient) ||
				(errors.Is(callErr, context.DeadlineExceeded) && ctx.Err() == nil) {
				return retry.RetryableError(callErr)
			}
			return callErr
		}

		e.resetBackendFailures(profile)
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("retry budget exhausted after %d attempt(s): %v: %w",
				attempts, err, domain.ErrPermanent)
		}
		return nil, attempts, err
	}

	return result, attempts, nil
}

func (e *Engine) fail(ctx context.Context, runID string, outcome *domain.TaskOutcome, start time.Time, err error) domain.TaskOutcome {
	outcome.Status = domain.TaskStatusFailed
	outcome.Error = err.Error()
	outcome.ErrorKind = domain.ErrorKind(err)
	outcome.DurationMs = time.Since(start).Milliseconds()

	e.metrics.RecordTaskExecuted(string(domain.TaskStatusFailed), outcome.DurationMs)
	e.emit(ctx, runID, outcome.Key, domain.EventTypeTaskFailed, map[string]interface{}{
		"reason": outcome.ErrorKind,
		"error":  outcome.Error,
	})
	e.logger.Error("task failed",
		zap.String("run_id", runID),
		zap.String("task_key", outcome.Key),
		zap.String("error_kind", outcome.ErrorKind),
		zap.Error(err))

	return *outcome
}

// activeProfile returns the first available profile in roster order, which
// is the operator's preference order.
func (e *Engine) activeProfile() *domain.BackendProfile {
	for _, p := range e.profiles {
		if p.Available() {
			return p
		}
	}
	return nil
}

func (e *Engine) recordBackendFailure(p *domain.BackendProfile) {
	e.failureMu.Lock()
	defer e.failureMu.Unlock()
	e.failures[p.ID]++
	if e.failures[p.ID] >= backendFailureThreshold && p.Available() {
		p.SetAvailable(false)
		e.logger.Warn("backend marked unavailable",
			zap.String("backend", p.ID),
			zap.Int("consecutive_failures", e.failures[p.ID]))
	}
}

func (e *Engine) resetBackendFailures(p *domain.BackendProfile) {
	e.failureMu.Lock()
	defer e.failureMu.Unlock()
	e.failures[p.ID] = 0
}

func (e *Engine) emit(ctx context.Context, runID, taskKey string, eventType domain.EventType, data map[string]interface{}) {
	e.sink.Emit(ctx, domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RunID:     runID,
		TaskKey:   taskKey,
		Timestamp: time.Now(),
		Data:      data,
	})
}
