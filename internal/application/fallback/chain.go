package fallback

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/aescanero/docforge/internal/application/budget"
	"github.com/aescanero/docforge/pkg/domain"
)

// Result carries the task state after the chain ran: the (possibly
// rebound) backend profile, the (possibly reduced) context slice, the
// verdict for that final state, and the audited outcome.
type Result struct {
	Outcome domain.FallbackOutcome
	Profile *domain.BackendProfile
	Slice   *domain.ProjectContext
	Verdict domain.Verdict
}

// Chain applies degradation strategies in a fixed priority order until the
// task fits its budget or every option is exhausted. Strategy effects are
// cumulative: a reduction survives into the next strategy's attempt.
type Chain struct {
	validator *budget.Validator
	profiles  []*domain.BackendProfile
	logger    *zap.Logger
}

// NewChain creates a fallback chain over the given backend roster.
func NewChain(validator *budget.Validator, profiles []*domain.BackendProfile, logger *zap.Logger) *Chain {
	return &Chain{
		validator: validator,
		profiles:  profiles,
		logger:    logger,
	}
}

// Apply runs the strategy sequence for a task that failed validation.
// Order is fixed: backend switch, prioritization, summarization, chunking.
// Each strategy runs only if the previous one did not bring the estimate
// under budget. On exhaustion the returned error wraps
// domain.ErrBudgetExceeded and the outcome still records what was tried.
func (c *Chain) Apply(
	proc *domain.ProcessorDescriptor,
	slice *domain.ProjectContext,
	profile *domain.BackendProfile,
	verdict domain.Verdict,
) (*Result, error) {
	originalTokens := verdict.EstimatedTokens

	res := &Result{
		Profile: profile,
		Slice:   slice,
		Verdict: verdict,
		Outcome: domain.FallbackOutcome{StrategyUsed: domain.FallbackNone},
	}

	type strategy struct {
		name  domain.FallbackStrategy
		apply func(*Result) bool
	}

	strategies := []strategy{
		{domain.FallbackBackendSwitch, c.switchBackend(proc)},
		{domain.FallbackPrioritization, c.prioritize(proc)},
		{domain.FallbackSummarization, c.summarize(proc)},
		{domain.FallbackChunking, c.chunk(proc)},
	}

	lastAttempted := domain.FallbackNone
	for _, s := range strategies {
		if !s.apply(res) {
			continue
		}
		lastAttempted = s.name

		res.Verdict = c.validator.Validate(proc, res.Slice, res.Profile)
		c.logger.Debug("fallback strategy applied",
			zap.String("processor", proc.Key),
			zap.String("strategy", string(s.name)),
			zap.Int("estimated_tokens", res.Verdict.EstimatedTokens),
			zap.Bool("fits", res.Verdict.Fits))

		if res.Verdict.Fits {
			res.Outcome = domain.FallbackOutcome{
				StrategyUsed: s.name,
				FinalTokens:  res.Verdict.EstimatedTokens,
				ReductionPct: reductionPct(originalTokens, res.Verdict.EstimatedTokens),
				Success:      true,
			}
			return res, nil
		}
	}

	// An escalation-band entry verdict (fits, utilization above the
	// threshold) that no strategy could improve is still within budget;
	// the task proceeds as-is.
	if res.Verdict.Fits {
		res.Outcome = domain.FallbackOutcome{
			StrategyUsed: domain.FallbackNone,
			FinalTokens:  res.Verdict.EstimatedTokens,
			Success:      true,
		}
		return res, nil
	}

	res.Outcome = domain.FallbackOutcome{
		StrategyUsed: lastAttempted,
		FinalTokens:  res.Verdict.EstimatedTokens,
		ReductionPct: reductionPct(originalTokens, res.Verdict.EstimatedTokens),
		Success:      false,
	}

	return res, fmt.Errorf("processor %q: %d tokens after all strategies, budget %d: %w",
		proc.Key, res.Verdict.EstimatedTokens, res.Verdict.AvailableTokens, domain.ErrBudgetExceeded)
}

// switchBackend rebinds the task to an available profile with a larger
// window. Candidates are ordered by ascending cost weight, then descending
// window, then ID, so the choice is deterministic. No content is modified.
func (c *Chain) switchBackend(proc *domain.ProcessorDescriptor) func(*Result) bool {
	return func(res *Result) bool {
		var candidates []*domain.BackendProfile
		for _, p := range c.profiles {
			if p.ID == res.Profile.ID || !p.Available() {
				continue
			}
			if p.ContextWindowTokens > res.Profile.ContextWindowTokens {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) == 0 {
			return false
		}

		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].CostWeight != candidates[j].CostWeight {
				return candidates[i].CostWeight < candidates[j].CostWeight
			}
			if candidates[i].ContextWindowTokens != candidates[j].ContextWindowTokens {
				return candidates[i].ContextWindowTokens > candidates[j].ContextWindowTokens
			}
			return candidates[i].ID < candidates[j].ID
		})

		for _, p := range candidates {
			if c.validator.Validate(proc, res.Slice, p).Fits {
				res.Profile = p
				return true
			}
		}

		// No candidate fits outright; rebind to the largest window anyway
		// so the content strategies get the most room to work with.
		largest := candidates[0]
		for _, p := range candidates[1:] {
			if p.ContextWindowTokens > largest.ContextWindowTokens {
				largest = p
			}
		}
		res.Profile = largest
		return true
	}
}

// prioritize discards sections tagged low priority. Deterministic rule:
// tagged low goes, everything else stays.
func (c *Chain) prioritize(_ *domain.ProcessorDescriptor) func(*Result) bool {
	return func(res *Result) bool {
		reduced := res.Slice.Clone()
		kept := reduced.Sections[:0]
		dropped := 0
		for _, s := range reduced.Sections {
			if s.Priority == domain.PriorityLow {
				dropped++
				continue
			}
			kept = append(kept, s)
		}
		if dropped == 0 {
			return false
		}
		reduced.Sections = kept
		res.Slice = reduced
		return true
	}
}

// summarize condenses large section bodies while keeping titles and key
// terms, trading fidelity for tokens.
func (c *Chain) summarize(_ *domain.ProcessorDescriptor) func(*Result) bool {
	return func(res *Result) bool {
		reduced := res.Slice.Clone()
		changed := false
		for i := range reduced.Sections {
			if condensed, ok := condenseSection(&reduced.Sections[i]); ok {
				reduced.Sections[i] = condensed
				changed = true
			}
		}
		if !changed {
			return false
		}
		res.Slice = reduced
		return true
	}
}

// chunk treats each section as an ordered chunk and keeps the subset most
// relevant to the processor's category, preserving order. Required
// sections are never dropped.
func (c *Chain) chunk(proc *domain.ProcessorDescriptor) func(*Result) bool {
	return func(res *Result) bool {
		reduced := res.Slice.Clone()
		changed := false

		for !c.validator.Validate(proc, reduced, res.Profile).Fits {
			idx := leastRelevantIndex(reduced.Sections, proc.Category)
			if idx < 0 {
				break
			}
			reduced.Sections = append(reduced.Sections[:idx], reduced.Sections[idx+1:]...)
			changed = true
		}

		if !changed {
			return false
		}
		res.Slice = reduced
		return true
	}
}

// leastRelevantIndex returns the index of the last section with the lowest
// relevance to the category, or -1 when only required sections remain.
// Relevance: explicit category match > untagged > other; required sections
// are exempt.
func leastRelevantIndex(sections []domain.Section, category string) int {
	best := -1
	bestScore := 3
	for i, s := range sections {
		if s.Priority == domain.PriorityRequired {
			continue
		}
		score := 1
		if len(s.Categories) > 0 {
			score = 0
			for _, c := range s.Categories {
				if c == category {
					score = 2
					break
				}
			}
		}
		if score <= bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

func reductionPct(original, final int) float64 {
	if original <= 0 || final >= original {
		return 0
	}
	return float64(original-final) / float64(original) * 100
}
