package models

import "time"

// EventType names something that happened to the queue or was observed by an
// operator.
type EventType string

const (
	EventTaskAdd      EventType = "task-add"
	EventTaskUpdate   EventType = "task-update"
	EventTaskComplete EventType = "task-complete"
	EventTaskClear    EventType = "task-clear"
	EventTestFailure  EventType = "test-failure"
	EventFeedbackRun  EventType = "feedback-run"
)

// TaskPayload describes the task touched by a task-add, task-update or
// task-complete event.
type TaskPayload struct {
	TaskID   string     `yaml:"task_id" json:"task_id"`
	Title    string     `yaml:"title" json:"title"`
	Status   TaskStatus `yaml:"status" json:"status"`
	Priority Priority   `yaml:"priority,omitempty" json:"priority,omitempty"`
	Fields   []string   `yaml:"fields,omitempty" json:"fields,omitempty"`
	Notes    string     `yaml:"notes,omitempty" json:"notes,omitempty"`
	Source   string     `yaml:"source,omitempty" json:"source,omitempty"`
}

// ClearPayload records how many tasks a task-clear removed.
type ClearPayload struct {
	RemovedTasks int `yaml:"removed_tasks" json:"removed_tasks"`
}

// FeedbackPayload summarises a feedback synthesis run.
type FeedbackPayload struct {
	Generated int      `yaml:"generated" json:"generated"`
	Added     int      `yaml:"added" json:"added"`
	Skipped   int      `yaml:"skipped" json:"skipped"`
	Degraded  bool     `yaml:"degraded,omitempty" json:"degraded,omitempty"`
	TaskIDs   []string `yaml:"task_ids,omitempty" json:"task_ids,omitempty"`
}

// SignalPayload carries an externally observed signal such as a test failure.
type SignalPayload struct {
	Source string            `yaml:"source,omitempty" json:"source,omitempty"`
	Attrs  map[string]string `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// EventPayload is a closed set of typed payloads; at most one variant is set
// and it matches the event type. Extra holds fields for event types this
// version does not model.
type EventPayload struct {
	Task     *TaskPayload      `yaml:"task,omitempty" json:"task,omitempty"`
	Clear    *ClearPayload     `yaml:"clear,omitempty" json:"clear,omitempty"`
	Feedback *FeedbackPayload  `yaml:"feedback,omitempty" json:"feedback,omitempty"`
	Signal   *SignalPayload    `yaml:"signal,omitempty" json:"signal,omitempty"`
	Extra    map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// EventEntry is an immutable record in the event log.
type EventEntry struct {
	ID        string        `yaml:"id" json:"id"`
	Timestamp time.Time     `yaml:"timestamp" json:"timestamp"`
	Type      EventType     `yaml:"type" json:"type"`
	Role      Role          `yaml:"role,omitempty" json:"role,omitempty"`
	Detail    string        `yaml:"detail,omitempty" json:"detail,omitempty"`
	Payload   *EventPayload `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// EventMetadata holds running aggregates over the event log. It is updated on
// every append.
type EventMetadata struct {
	TotalEvents        int            `yaml:"total_events" json:"total_events"`
	EventsByType       map[string]int `yaml:"events_by_type" json:"events_by_type"`
	EventsByRole       map[string]int `yaml:"events_by_role" json:"events_by_role"`
	LastEventID        string         `yaml:"last_event_id,omitempty" json:"last_event_id,omitempty"`
	LastEventTimestamp *time.Time     `yaml:"last_event_timestamp,omitempty" json:"last_event_timestamp,omitempty"`
}

// EventDocument is the persisted form of the event log.
type EventDocument struct {
	Version     string        `yaml:"version" json:"version"`
	LastUpdated time.Time     `yaml:"last_updated" json:"last_updated"`
	Events      []EventEntry  `yaml:"events" json:"events"`
	Metadata    EventMetadata `yaml:"metadata" json:"metadata"`
}
