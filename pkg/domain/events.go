package domain

import "time"

// EventType identifies a structured run event.
type EventType string

const (
	EventTypeRunStarted    EventType = "run.started"
	EventTypeRunSummary    EventType = "run.summary"
	EventTypeTaskStarted   EventType = "task.started"
	EventTypeTaskDegraded  EventType = "task.degraded"
	EventTypeTaskCompleted EventType = "task.completed"
	EventTypeTaskFailed    EventType = "task.failed"
	EventTypeTaskSkipped   EventType = "task.skipped"
)

// Event is a structured notification emitted by the execution engine. The
// engine performs no formatting; sinks decide how events are surfaced.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	RunID     string                 `json:"run_id"`
	TaskKey   string                 `json:"task_key,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
