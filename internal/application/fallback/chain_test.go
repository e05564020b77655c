package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/docforge/internal/application/budget"
	"github.com/aescanero/docforge/pkg/domain"
)

// Heuristic estimator at 4 chars per token keeps these scenarios exact.
func newChain(profiles ...*domain.BackendProfile) (*Chain, *budget.Validator) {
	v := budget.NewValidator(budget.NewHeuristicEstimator(4), 0.9)
	return NewChain(v, profiles, zap.NewNop()), v
}

func body(tokens int) string {
	return strings.Repeat("x", tokens*4)
}

func TestApplyBackendSwitch(t *testing.T) {
	t.Run("Should rebind to a larger window without touching content", func(t *testing.T) {
		small := domain.NewBackendProfile("small", 10000, 1.0)
		large := domain.NewBackendProfile("large", 40000, 3.0)
		chain, v := newChain(small, large)

		proc := &domain.ProcessorDescriptor{Key: "p", EstimatedTokens: 9500}
		slice := &domain.ProjectContext{Sections: []domain.Section{
			{Title: "a", Body: body(10), Priority: domain.PriorityNormal},
		}}

		verdict := v.Validate(proc, slice, small)
		require.False(t, verdict.Fits)

		res, err := chain.Apply(proc, slice, small, verdict)
		require.NoError(t, err)

		assert.Equal(t, "large", res.Profile.ID)
		assert.Equal(t, domain.FallbackBackendSwitch, res.Outcome.StrategyUsed)
		assert.True(t, res.Outcome.Success)
		assert.True(t, res.Verdict.Fits)
		// Content untouched: same sections, same bodies.
		assert.Equal(t, slice.Sections, res.Slice.Sections)
		// Switching backends loses no content.
		assert.Zero(t, res.Outcome.ReductionPct)
	})

	t.Run("Should prefer the cheaper candidate that fits", func(t *testing.T) {
		small := domain.NewBackendProfile("small", 10000, 1.0)
		cheap := domain.NewBackendProfile("cheap", 20000, 2.0)
		pricey := domain.NewBackendProfile("pricey", 40000, 5.0)
		chain, v := newChain(small, pricey, cheap)

		proc := &domain.ProcessorDescriptor{Key: "p", EstimatedTokens: 12000}
		slice := &domain.ProjectContext{Sections: []domain.Section{
			{Title: "a", Body: body(10), Priority: domain.PriorityNormal},
		}}

		res, err := chain.Apply(proc, slice, small, v.Validate(proc, slice, small))
		require.NoError(t, err)
		assert.Equal(t, "cheap", res.Profile.ID)
	})

	t.Run("Should skip unavailable backends", func(t *testing.T) {
		small := domain.NewBackendProfile("small", 10000, 1.0)
		down := domain.NewBackendProfile("down", 40000, 1.0)
		down.SetAvailable(false)
		chain, v := newChain(small, down)

		proc := &domain.ProcessorDescriptor{Key: "p", EstimatedTokens: 9500}
		slice := &domain.ProjectContext{Sections: []domain.Section{
			{Title: "a", Body: body(10), Priority: domain.PriorityNormal},
		}}

		_, err := chain.Apply(proc, slice, small, v.Validate(proc, slice, small))
		require.ErrorIs(t, err, domain.ErrBudgetExceeded)
	})
}

func TestApplyPrioritization(t *testing.T) {
	t.Run("Should drop low-priority sections when no larger backend exists", func(t *testing.T) {
		small := domain.NewBackendProfile("small", 10000, 1.0)
		chain, v := newChain(small)

		// Measured: ~6000 required + ~4000 low; only required fits the
		// 9000-token budget.
		slice := &domain.ProjectContext{Sections: []domain.Section{
			{Title: "core", Body: body(6000), Priority: domain.PriorityRequired},
			{Title: "trivia", Body: body(4000), Priority: domain.PriorityLow},
		}}
		proc := &domain.ProcessorDescriptor{Key: "p"}

		verdict := v.Validate(proc, slice, small)
		require.False(t, verdict.Fits)

		res, err := chain.Apply(proc, slice, small, verdict)
		require.NoError(t, err)

		assert.Equal(t, domain.FallbackPrioritization, res.Outcome.StrategyUsed)
		assert.True(t, res.Outcome.Success)
		require.Len(t, res.Slice.Sections, 1)
		assert.Equal(t, "core", res.Slice.Sections[0].Title)
		assert.Greater(t, res.Outcome.ReductionPct, 0.0)
		// The input slice must not be mutated.
		assert.Len(t, slice.Sections, 2)
	})
}

func TestApplyChunking(t *testing.T) {
	t.Run("Should drop least relevant sections but never required ones", func(t *testing.T) {
		small := domain.NewBackendProfile("small", 300, 1.0)
		chain, v := newChain(small)

		// Bodies stay under the summarization threshold so the chain must
		// reach chunking to make the slice fit.
		slice := &domain.ProjectContext{Sections: []domain.Section{
			{Title: "core", Body: strings.Repeat("x", 350), Priority: domain.PriorityRequired},
			{Title: "other-domain", Body: strings.Repeat("x", 350), Priority: domain.PriorityNormal, Categories: []string{"ops"}},
			{Title: "on-topic", Body: strings.Repeat("x", 350), Priority: domain.PriorityNormal, Categories: []string{"docs"}},
		}}
		proc := &domain.ProcessorDescriptor{Key: "p", Category: "docs"}

		verdict := v.Validate(proc, slice, small)
		require.False(t, verdict.Fits)

		res, err := chain.Apply(proc, slice, small, verdict)
		require.NoError(t, err)

		assert.Equal(t, domain.FallbackChunking, res.Outcome.StrategyUsed)
		titles := make([]string, 0, len(res.Slice.Sections))
		for _, s := range res.Slice.Sections {
			titles = append(titles, s.Title)
		}
		assert.Contains(t, titles, "core")
		assert.NotContains(t, titles, "other-domain")
		assert.True(t, res.Verdict.Fits)
	})
}

func TestApplyEscalationBand(t *testing.T) {
	t.Run("Should pass a fitting verdict through when no strategy applies", func(t *testing.T) {
		small := domain.NewBackendProfile("small", 10000, 1.0)
		chain, v := newChain(small)

		// 8500 of a 9000-token budget: fits, but above the escalation
		// threshold. No alternate backend, no low-priority sections,
		// nothing to summarize or chunk.
		proc := &domain.ProcessorDescriptor{Key: "p", EstimatedTokens: 8500}
		slice := &domain.ProjectContext{Sections: []domain.Section{
			{Title: "core", Body: "short body", Priority: domain.PriorityRequired},
		}}

		verdict := v.Validate(proc, slice, small)
		require.True(t, verdict.Fits)
		require.True(t, v.NeedsFallback(verdict))

		res, err := chain.Apply(proc, slice, small, verdict)
		require.NoError(t, err)

		assert.Equal(t, domain.FallbackNone, res.Outcome.StrategyUsed)
		assert.True(t, res.Outcome.Success)
		assert.Equal(t, 8500, res.Outcome.FinalTokens)
		assert.Equal(t, "small", res.Profile.ID)
		assert.Equal(t, slice.Sections, res.Slice.Sections)
		assert.True(t, res.Verdict.Fits)
	})
}

func TestApplyExhaustion(t *testing.T) {
	t.Run("Should wrap ErrBudgetExceeded and still record the outcome", func(t *testing.T) {
		tiny := domain.NewBackendProfile("tiny", 1000, 1.0)
		chain, v := newChain(tiny)

		slice := &domain.ProjectContext{Sections: []domain.Section{
			{Title: "core", Body: body(5000), Priority: domain.PriorityRequired},
		}}
		proc := &domain.ProcessorDescriptor{Key: "p"}

		verdict := v.Validate(proc, slice, tiny)
		require.False(t, verdict.Fits)

		res, err := chain.Apply(proc, slice, tiny, verdict)
		require.ErrorIs(t, err, domain.ErrBudgetExceeded)
		assert.Equal(t, "budget_exceeded", domain.ErrorKind(err))

		assert.False(t, res.Outcome.Success)
		// Summarization is the last strategy that touched the slice;
		// chunking cannot drop a lone required section.
		assert.Equal(t, domain.FallbackSummarization, res.Outcome.StrategyUsed)
		assert.False(t, res.Verdict.Fits)
	})

	t.Run("Should record none when no strategy was applicable", func(t *testing.T) {
		tiny := domain.NewBackendProfile("tiny", 1000, 1.0)
		chain, v := newChain(tiny)

		// Declared estimate blows the budget, but the slice itself offers
		// the chain nothing to work with: one short required section.
		slice := &domain.ProjectContext{Sections: []domain.Section{
			{Title: "core", Body: "short body", Priority: domain.PriorityRequired},
		}}
		proc := &domain.ProcessorDescriptor{Key: "p", EstimatedTokens: 5000}

		verdict := v.Validate(proc, slice, tiny)
		require.False(t, verdict.Fits)

		res, err := chain.Apply(proc, slice, tiny, verdict)
		require.ErrorIs(t, err, domain.ErrBudgetExceeded)

		assert.False(t, res.Outcome.Success)
		assert.Equal(t, domain.FallbackNone, res.Outcome.StrategyUsed)
		assert.Zero(t, res.Outcome.ReductionPct)
	})
}

func TestCondenseSection(t *testing.T) {
	t.Run("Should leave short bodies alone", func(t *testing.T) {
		s := domain.Section{Title: "t", Body: "short body"}
		_, ok := condenseSection(&s)
		assert.False(t, ok)
	})

	t.Run("Should shrink long bodies and keep the title", func(t *testing.T) {
		s := domain.Section{
			Title: "architecture",
			Body:  "The system is built around a dependency graph. " + strings.Repeat("Filler sentence about internals. ", 50),
		}
		condensed, ok := condenseSection(&s)
		require.True(t, ok)
		assert.Equal(t, "architecture", condensed.Title)
		assert.Less(t, len(condensed.Body), len(s.Body))
		assert.NotEmpty(t, condensed.Body)
	})
}
