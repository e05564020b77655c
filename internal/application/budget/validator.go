package budget

import (
	"fmt"
	"math"

	"github.com/aescanero/docforge/pkg/domain"
)

// Utilization thresholds. Below warnThreshold the verdict is silent;
// between warnThreshold and escalateThreshold it carries a soft warning;
// above escalateThreshold the engine escalates to the fallback chain even
// when the payload technically fits.
const (
	warnThreshold     = 70.0
	escalateThreshold = 90.0
)

// Validator checks a processor's expected input against a backend's
// context window. It is pure and stateless: the same inputs always produce
// the same verdict.
type Validator struct {
	estimator    *Estimator
	safetyMargin float64
}

// NewValidator creates a validator. safetyMargin reserves headroom for the
// backend's own response tokens; values outside (0, 1] fall back to 0.9.
func NewValidator(estimator *Estimator, safetyMargin float64) *Validator {
	if safetyMargin <= 0 || safetyMargin > 1 {
		safetyMargin = 0.9
	}
	return &Validator{estimator: estimator, safetyMargin: safetyMargin}
}

// Estimate returns the token demand for a processor bound to a context
// slice: the declared heuristic cost or the measured size of the slice,
// whichever is larger. Measuring at validation time captures context that
// has grown since the registry was authored.
func (v *Validator) Estimate(proc *domain.ProcessorDescriptor, slice *domain.ProjectContext) int {
	measured := v.estimator.Measure(slice.Canonical())
	if proc.EstimatedTokens > measured {
		return proc.EstimatedTokens
	}
	return measured
}

// Validate produces a verdict for a processor bound to a context slice and
// a backend profile.
func (v *Validator) Validate(
	proc *domain.ProcessorDescriptor,
	slice *domain.ProjectContext,
	profile *domain.BackendProfile,
) domain.Verdict {
	estimated := v.Estimate(proc, slice)
	available := int(math.Floor(float64(profile.ContextWindowTokens) * v.safetyMargin))

	verdict := domain.Verdict{
		EstimatedTokens: estimated,
		AvailableTokens: available,
		Fits:            estimated <= available,
	}
	if available > 0 {
		verdict.UtilizationPct = float64(estimated) / float64(available) * 100
	}

	switch {
	case !verdict.Fits:
		verdict.Warnings = append(verdict.Warnings, fmt.Sprintf(
			"estimated %d tokens exceeds budget of %d on backend %s",
			estimated, available, profile.ID))
	case verdict.UtilizationPct > escalateThreshold:
		verdict.Warnings = append(verdict.Warnings, fmt.Sprintf(
			"utilization %.1f%% above %.0f%%, escalating to fallback",
			verdict.UtilizationPct, escalateThreshold))
	case verdict.UtilizationPct >= warnThreshold:
		verdict.Warnings = append(verdict.Warnings, fmt.Sprintf(
			"utilization %.1f%%, consider a larger-window backend",
			verdict.UtilizationPct))
	}

	return verdict
}

// NeedsFallback reports whether a verdict requires the fallback chain:
// either the payload does not fit, or utilization is above the escalation
// threshold.
func (v *Validator) NeedsFallback(verdict domain.Verdict) bool {
	return !verdict.Fits || verdict.UtilizationPct > escalateThreshold
}

// SafetyMargin returns the configured headroom factor.
func (v *Validator) SafetyMargin() float64 {
	return v.safetyMargin
}

// ResponseBudget returns the preferred max response tokens for a
// complexity level. This is the budget handed to the backend for its own
// output, separate from the input window.
func ResponseBudget(c domain.Complexity) int {
	switch c {
	case domain.ComplexityLow:
		return 1024
	case domain.ComplexityMedium:
		return 2048
	case domain.ComplexityHigh:
		return 4096
	case domain.ComplexityVeryHigh:
		return 8192
	default:
		return 2048
	}
}
