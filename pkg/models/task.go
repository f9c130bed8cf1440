package models

import "time"

// Role identifies the kind of operator expected to pick up a task.
type Role string

const (
	RoleArchitect   Role = "architect"
	RoleDeveloper   Role = "developer"
	RoleTester      Role = "tester"
	RoleAnalyst     Role = "analyst"
	RoleCoordinator Role = "coordinator"
)

// Roles lists every valid Role in display order.
var Roles = []Role{RoleArchitect, RoleDeveloper, RoleTester, RoleAnalyst, RoleCoordinator}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleArchitect, RoleDeveloper, RoleTester, RoleAnalyst, RoleCoordinator:
		return true
	default:
		return false
	}
}

// Priority represents the urgency level of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every valid Priority, most urgent first.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
	StatusFailed     TaskStatus = "failed"
)

// Statuses lists every valid TaskStatus in lifecycle order.
var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusBlocked, StatusFailed, StatusCompleted}

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked, StatusFailed:
		return true
	default:
		return false
	}
}

// TaskEntry is a trackable unit of work in the operator queue.
type TaskEntry struct {
	ID           string     `yaml:"id" json:"id"`
	Title        string     `yaml:"title" json:"title"`
	Description  string     `yaml:"description,omitempty" json:"description,omitempty"`
	Role         Role       `yaml:"role" json:"role"`
	Priority     Priority   `yaml:"priority" json:"priority"`
	Status       TaskStatus `yaml:"status" json:"status"`
	Project      string     `yaml:"project,omitempty" json:"project,omitempty"`
	CreatedAt    time.Time  `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `yaml:"updated_at" json:"updated_at"`
	CompletedAt  *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
	DueAt        *time.Time `yaml:"due_at,omitempty" json:"due_at,omitempty"`
	SLAHours     *float64   `yaml:"sla_hours,omitempty" json:"sla_hours,omitempty"`
	Dependencies []string   `yaml:"dependencies" json:"dependencies"`
	Labels       []string   `yaml:"labels" json:"labels"`
	Notes        string     `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// TaskInput carries the fields accepted when adding a task. Zero values mean
// "use the default".
type TaskInput struct {
	ID           string
	Title        string
	Description  string
	Role         Role
	Priority     Priority
	Status       TaskStatus
	Project      string
	Due          string
	SLAHours     *float64
	Dependencies []string
	Labels       []string
	Notes        string
}

// TaskPatch carries a partial update. Nil fields are left untouched; Notes is
// appended to the existing notes rather than replacing them.
type TaskPatch struct {
	Title        *string
	Description  *string
	Role         *Role
	Priority     *Priority
	Project      *string
	Status       *TaskStatus
	Due          *string
	SLAHours     *float64
	Dependencies []string
	Labels       []string
	Notes        string
}

// Fields returns the names of the fields present in the patch, in a stable
// order. It is recorded on task-update events.
func (p TaskPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Role != nil {
		fields = append(fields, "role")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Project != nil {
		fields = append(fields, "project")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Due != nil {
		fields = append(fields, "due")
	}
	if p.SLAHours != nil {
		fields = append(fields, "sla_hours")
	}
	if p.Dependencies != nil {
		fields = append(fields, "dependencies")
	}
	if p.Labels != nil {
		fields = append(fields, "labels")
	}
	if p.Notes != "" {
		fields = append(fields, "notes")
	}
	return fields
}

// PriorityCounts tallies tasks per priority.
type PriorityCounts struct {
	High   int `yaml:"high" json:"high"`
	Medium int `yaml:"medium" json:"medium"`
	Low    int `yaml:"low" json:"low"`
}

// QueueMetadata is derived from the full task list at evaluation time and is
// never maintained incrementally.
type QueueMetadata struct {
	TotalTasks      int            `yaml:"total_tasks" json:"total_tasks"`
	PendingTasks    int            `yaml:"pending_tasks" json:"pending_tasks"`
	InProgressTasks int            `yaml:"in_progress_tasks" json:"in_progress_tasks"`
	CompletedTasks  int            `yaml:"completed_tasks" json:"completed_tasks"`
	FailedTasks     int            `yaml:"failed_tasks" json:"failed_tasks"`
	BlockedTasks    int            `yaml:"blocked_tasks" json:"blocked_tasks"`
	OverdueTasks    int            `yaml:"overdue_tasks" json:"overdue_tasks"`
	SLABreaches     int            `yaml:"sla_breaches" json:"sla_breaches"`
	Priority        PriorityCounts `yaml:"priority" json:"priority"`
}

// TaskView is a task annotated with the dependency and deadline predicates
// evaluated at a single point in time.
type TaskView struct {
	Task        TaskEntry `json:"task"`
	Blocked     bool      `json:"blocked"`
	Overdue     bool      `json:"overdue"`
	SLABreached bool      `json:"sla_breached"`
}

// TaskDocument is the persisted form of the task queue.
type TaskDocument struct {
	Version     string        `yaml:"version" json:"version"`
	LastUpdated time.Time     `yaml:"last_updated" json:"last_updated"`
	Queue       []TaskEntry   `yaml:"queue" json:"queue"`
	Metadata    QueueMetadata `yaml:"metadata" json:"metadata"`
}
