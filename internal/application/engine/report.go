package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/aescanero/docforge/pkg/domain"
)

// reportBuilder accumulates task outcomes during a run and produces the
// final RunReport. Outcomes are sorted by topological order at finalize
// time, so reports are reproducible across worker-pool sizes.
type reportBuilder struct {
	mu sync.Mutex

	runID         string
	slowThreshold time.Duration
	slowestN      int
	startedAt     time.Time
	outcomes      []domain.TaskOutcome
}

func newReportBuilder(runID string, slowThreshold time.Duration, slowestN int) *reportBuilder {
	if slowestN <= 0 {
		slowestN = 5
	}
	return &reportBuilder{
		runID:         runID,
		slowThreshold: slowThreshold,
		slowestN:      slowestN,
		startedAt:     time.Now(),
	}
}

func (b *reportBuilder) record(outcome domain.TaskOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outcomes = append(b.outcomes, outcome)
}

func (b *reportBuilder) finalize() *domain.RunReport {
	b.mu.Lock()
	defer b.mu.Unlock()

	completedAt := time.Now()
	report := &domain.RunReport{
		RunID:           b.runID,
		Outcomes:        make([]domain.TaskOutcome, len(b.outcomes)),
		StartedAt:       b.startedAt,
		CompletedAt:     completedAt,
		TotalDurationMs: completedAt.Sub(b.startedAt).Milliseconds(),
	}
	copy(report.Outcomes, b.outcomes)

	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Order < report.Outcomes[j].Order
	})

	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		switch o.Status {
		case domain.TaskStatusSucceeded:
			report.Succeeded++
		case domain.TaskStatusFailed:
			report.Failed++
		case domain.TaskStatusSkipped:
			report.Skipped++
		}
		if len(o.Verdict.Warnings) > 0 {
			report.Warned++
		}
		if o.Degraded() {
			report.Degraded++
		}
		if o.CacheHit {
			report.CacheHits++
		}
	}

	// Slowest tasks above the threshold, worst first, capped at slowestN.
	slow := make([]domain.TaskOutcome, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		if b.slowThreshold > 0 && time.Duration(o.DurationMs)*time.Millisecond >= b.slowThreshold {
			slow = append(slow, o)
		}
	}
	sort.Slice(slow, func(i, j int) bool {
		if slow[i].DurationMs != slow[j].DurationMs {
			return slow[i].DurationMs > slow[j].DurationMs
		}
		return slow[i].Key < slow[j].Key
	})
	if len(slow) > b.slowestN {
		slow = slow[:b.slowestN]
	}
	for _, o := range slow {
		report.SlowTasks = append(report.SlowTasks, o.Key)
	}

	return report
}
