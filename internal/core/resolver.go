package core

import (
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

// DependencyResolver answers blocked, overdue and SLA questions for a fixed
// snapshot of the task list. Dependency lookups go through an id index so a
// full evaluation is a single linear pass.
type DependencyResolver struct {
	tasks []models.TaskEntry
	index map[string]int
}

// NewDependencyResolver indexes tasks by id. The slice must not be mutated
// while the resolver is in use.
func NewDependencyResolver(tasks []models.TaskEntry) *DependencyResolver {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}
	return &DependencyResolver{tasks: tasks, index: index}
}

// IsBlocked reports whether at least one dependency of task is missing from
// the snapshot or not yet completed. Dangling ids count as unsatisfied.
func (r *DependencyResolver) IsBlocked(task models.TaskEntry) bool {
	for _, dep := range task.Dependencies {
		i, ok := r.index[dep]
		if !ok || r.tasks[i].Status != models.StatusCompleted {
			return true
		}
	}
	return false
}

// IsOverdue reports whether task has a due date in the past and is not
// completed.
func IsOverdue(task models.TaskEntry, now time.Time) bool {
	if task.DueAt == nil || task.Status == models.StatusCompleted {
		return false
	}
	return task.DueAt.Before(now)
}

// HasSLABreach reports whether the time from creation to completion (or to
// now, while still open) exceeds the task's SLA budget.
func HasSLABreach(task models.TaskEntry, now time.Time) bool {
	if task.SLAHours == nil {
		return false
	}
	end := now
	if task.CompletedAt != nil {
		end = *task.CompletedAt
	}
	return end.Sub(task.CreatedAt).Hours() > *task.SLAHours
}

// View annotates a single task with all three predicates.
func (r *DependencyResolver) View(task models.TaskEntry, now time.Time) models.TaskView {
	return models.TaskView{
		Task:        task,
		Blocked:     r.IsBlocked(task),
		Overdue:     IsOverdue(task, now),
		SLABreached: HasSLABreach(task, now),
	}
}

// Views annotates every task in the snapshot, preserving queue order.
func (r *DependencyResolver) Views(now time.Time) []models.TaskView {
	views := make([]models.TaskView, len(r.tasks))
	for i, t := range r.tasks {
		views[i] = r.View(t, now)
	}
	return views
}

// Metadata recomputes QueueMetadata from scratch.
func (r *DependencyResolver) Metadata(now time.Time) models.QueueMetadata {
	meta := models.QueueMetadata{TotalTasks: len(r.tasks)}
	for _, t := range r.tasks {
		switch t.Status {
		case models.StatusPending:
			meta.PendingTasks++
		case models.StatusInProgress:
			meta.InProgressTasks++
		case models.StatusCompleted:
			meta.CompletedTasks++
		case models.StatusFailed:
			meta.FailedTasks++
		}
		switch t.Priority {
		case models.PriorityHigh:
			meta.Priority.High++
		case models.PriorityMedium:
			meta.Priority.Medium++
		case models.PriorityLow:
			meta.Priority.Low++
		}
		if r.IsBlocked(t) {
			meta.BlockedTasks++
		}
		if IsOverdue(t, now) {
			meta.OverdueTasks++
		}
		if HasSLABreach(t, now) {
			meta.SLABreaches++
		}
	}
	return meta
}

// ComputeMetadata is a convenience wrapper for a one-off recomputation.
func ComputeMetadata(tasks []models.TaskEntry, now time.Time) models.QueueMetadata {
	return NewDependencyResolver(tasks).Metadata(now)
}

// WouldCycle reports whether giving task id the dependency list deps would
// create a cycle among tasks in the snapshot. Only known ids are traversed;
// a self-reference is a cycle.
func (r *DependencyResolver) WouldCycle(id string, deps []string) bool {
	visited := make(map[string]bool)
	stack := append([]string(nil), deps...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == id {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		i, ok := r.index[cur]
		if !ok {
			continue
		}
		stack = append(stack, r.tasks[i].Dependencies...)
	}
	return false
}
