package domain

import "time"

// TaskOutcome is the terminal record of one generation task.
type TaskOutcome struct {
	Key       string     `json:"key"`
	Status    TaskStatus `json:"status"`
	BackendID string     `json:"backend_id,omitempty"`
	CacheHit  bool       `json:"cache_hit"`

	Verdict  Verdict         `json:"verdict"`
	Fallback FallbackOutcome `json:"fallback"`

	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`

	// Order is the task's position in the topological order. Reports are
	// sorted by it so output is reproducible across worker-pool sizes.
	Order int `json:"order"`
}

// Degraded reports whether the task succeeded with reduced fidelity.
func (o *TaskOutcome) Degraded() bool {
	return o.Status == TaskStatusSucceeded &&
		o.Fallback.Success &&
		o.Fallback.StrategyUsed != FallbackNone &&
		o.Fallback.StrategyUsed != FallbackBackendSwitch
}

// RunReport aggregates the outcomes of one orchestration run. It is the
// single source of truth handed back to callers.
type RunReport struct {
	RunID    string        `json:"run_id"`
	Outcomes []TaskOutcome `json:"outcomes"`

	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Warned    int `json:"warned"`
	Degraded  int `json:"degraded"`
	CacheHits int `json:"cache_hits"`

	// SlowTasks lists the slowest task keys, worst first, capped by the
	// engine's slowest-N setting.
	SlowTasks []string `json:"slow_tasks,omitempty"`

	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	TotalDurationMs int64     `json:"total_duration_ms"`
}

// Success reports whether no task ended in a hard failure. Skipped tasks do
// not count as failures; their root cause is already counted.
func (r *RunReport) Success() bool {
	return r.Failed == 0
}
