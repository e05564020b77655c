package engine

import (
	"strings"

	"github.com/aescanero/docforge/pkg/domain"
)

// task is scheduler-side state for one processor bound to a context
// snapshot. Status transitions happen only under the engine's scheduler
// lock; workers receive the task before dispatch and never mutate it.
type task struct {
	proc  *domain.ProcessorDescriptor
	slice *domain.ProjectContext

	status domain.TaskStatus

	// order is the task's index in the topological order; outcomes are
	// reported in this order regardless of completion timing.
	order int

	// waiting counts unfinished dependencies. The task is ready when it
	// reaches zero with all dependencies succeeded.
	waiting int
}

// buildPrompt renders the deterministic prompt sent to the backend for a
// processor and its context slice. The canonical context form is used so
// the prompt matches what the cache key was derived from.
func buildPrompt(proc *domain.ProcessorDescriptor, slice *domain.ProjectContext) string {
	var b strings.Builder
	b.WriteString("Generate the \"")
	b.WriteString(proc.Key)
	b.WriteString("\" document (category: ")
	b.WriteString(proc.Category)
	b.WriteString(") for the project described below.\n\n")
	b.WriteString(slice.Canonical())
	return b.String()
}
