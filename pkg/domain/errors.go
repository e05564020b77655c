package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for task-level failures. Backend adapters wrap transport
// errors with ErrTransient or ErrPermanent so the engine can pick a retry
// policy without knowing the provider.
var (
	// ErrBudgetExceeded marks a task whose content did not fit any
	// backend's context window after exhausting the fallback chain.
	ErrBudgetExceeded = errors.New("context budget exceeded")

	// ErrTransient marks a failure worth retrying (timeouts, 5xx, 429).
	ErrTransient = errors.New("transient backend error")

	// ErrPermanent marks a failure that retrying cannot fix.
	ErrPermanent = errors.New("permanent backend error")
)

// ErrorKind classifies a task failure for reporting.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrPermanent):
		return "permanent"
	default:
		return "unknown"
	}
}

// ConfigError aggregates every problem found in a registry document so a
// maintainer can fix the whole batch in one pass.
type ConfigError struct {
	Issues []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid registry: %d issue(s): %s",
		len(e.Issues), strings.Join(e.Issues, "; "))
}

// CycleError reports the members of a dependency cycle, in walk order.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Members, " -> "))
}
