package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/opq/pkg/models"
)

// Defaults applied by TaskStore.Add when the input leaves a field empty.
const (
	DefaultRole     = models.RoleArchitect
	DefaultPriority = models.PriorityMedium
	DefaultStatus   = models.StatusPending
)

// TaskStore owns the canonical, ordered task list. Every mutation recomputes
// QueueMetadata from the full list.
type TaskStore struct {
	tasks []models.TaskEntry
	index map[string]int
	meta  models.QueueMetadata
	now   func() time.Time
}

// NewTaskStore creates a store seeded with tasks. now supplies the evaluation
// time for timestamps and metadata; nil means time.Now in UTC.
func NewTaskStore(tasks []models.TaskEntry, now func() time.Time) *TaskStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := &TaskStore{
		tasks: append([]models.TaskEntry(nil), tasks...),
		now:   now,
	}
	s.reindex()
	s.recompute()
	return s
}

func (s *TaskStore) reindex() {
	s.index = make(map[string]int, len(s.tasks))
	for i, t := range s.tasks {
		s.index[t.ID] = i
	}
}

func (s *TaskStore) recompute() {
	s.meta = NewDependencyResolver(s.tasks).Metadata(s.now())
}

// Tasks returns a copy of the queue in insertion order.
func (s *TaskStore) Tasks() []models.TaskEntry {
	return append([]models.TaskEntry(nil), s.tasks...)
}

// Len returns the number of tasks in the store.
func (s *TaskStore) Len() int { return len(s.tasks) }

// Get returns the task with the given id.
func (s *TaskStore) Get(id string) (models.TaskEntry, error) {
	i, ok := s.index[id]
	if !ok {
		return models.TaskEntry{}, notFoundErrorf("task %s", id)
	}
	return s.tasks[i], nil
}

// HasTitle reports whether any task, in any status, has exactly this title.
func (s *TaskStore) HasTitle(title string) bool {
	for _, t := range s.tasks {
		if t.Title == title {
			return true
		}
	}
	return false
}

// Metadata returns the metadata computed after the last mutation.
func (s *TaskStore) Metadata() models.QueueMetadata { return s.meta }

// Refresh recomputes metadata at the current time without mutating tasks.
func (s *TaskStore) Refresh() models.QueueMetadata {
	s.recompute()
	return s.meta
}

// Resolver returns a DependencyResolver over the current snapshot.
func (s *TaskStore) Resolver() *DependencyResolver {
	return NewDependencyResolver(s.tasks)
}

// Views returns every task annotated with the resolver predicates at now.
func (s *TaskStore) Views() []models.TaskView {
	return s.Resolver().Views(s.now())
}

// Add validates input, fills defaults and appends a new task.
func (s *TaskStore) Add(in models.TaskInput) (models.TaskEntry, error) {
	now := s.now()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.TaskEntry{}, validationErrorf("title is required")
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = s.newID()
	} else if _, exists := s.index[id]; exists {
		return models.TaskEntry{}, validationErrorf("task %s already exists", id)
	}

	entry := models.TaskEntry{
		ID:           id,
		Title:        title,
		Description:  in.Description,
		Role:         in.Role,
		Priority:     in.Priority,
		Status:       in.Status,
		Project:      in.Project,
		CreatedAt:    now,
		UpdatedAt:    now,
		Dependencies: cleanList(in.Dependencies),
		Labels:       cleanList(in.Labels),
	}
	if entry.Role == "" {
		entry.Role = DefaultRole
	}
	if entry.Priority == "" {
		entry.Priority = DefaultPriority
	}
	if entry.Status == "" {
		entry.Status = DefaultStatus
	}
	if err := validateEnums(entry.Role, entry.Priority, entry.Status); err != nil {
		return models.TaskEntry{}, err
	}

	if in.Due != "" {
		due, err := ParseDue(in.Due, now)
		if err != nil {
			return models.TaskEntry{}, err
		}
		entry.DueAt = due
	}
	if in.SLAHours != nil {
		if *in.SLAHours <= 0 {
			return models.TaskEntry{}, validationErrorf("sla hours must be positive, got %v", *in.SLAHours)
		}
		sla := *in.SLAHours
		entry.SLAHours = &sla
	}
	if entry.Status == models.StatusCompleted {
		completed := now
		entry.CompletedAt = &completed
	}
	if in.Notes != "" {
		entry.Notes = appendNote("", in.Notes, now)
	}

	if err := s.checkDependencies(entry.ID, entry.Dependencies); err != nil {
		return models.TaskEntry{}, err
	}

	s.tasks = append(s.tasks, entry)
	s.index[entry.ID] = len(s.tasks) - 1
	s.recompute()
	return entry, nil
}

// Update applies the fields present in patch to the task with the given id.
// Notes are appended. If the resulting status is completed, CompletedAt is
// stamped with the current time; any other status clears it.
func (s *TaskStore) Update(id string, patch models.TaskPatch) (models.TaskEntry, error) {
	i, ok := s.index[id]
	if !ok {
		return models.TaskEntry{}, notFoundErrorf("task %s", id)
	}
	now := s.now()
	entry := s.tasks[i]

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.TaskEntry{}, validationErrorf("title must not be empty")
		}
		entry.Title = title
	}
	if patch.Description != nil {
		entry.Description = *patch.Description
	}
	if patch.Role != nil {
		entry.Role = *patch.Role
	}
	if patch.Priority != nil {
		entry.Priority = *patch.Priority
	}
	if patch.Project != nil {
		entry.Project = *patch.Project
	}
	if patch.Status != nil {
		entry.Status = *patch.Status
	}
	if err := validateEnums(entry.Role, entry.Priority, entry.Status); err != nil {
		return models.TaskEntry{}, err
	}
	if patch.Due != nil {
		if *patch.Due == "" {
			entry.DueAt = nil
		} else {
			due, err := ParseDue(*patch.Due, now)
			if err != nil {
				return models.TaskEntry{}, err
			}
			entry.DueAt = due
		}
	}
	if patch.SLAHours != nil {
		switch {
		case *patch.SLAHours < 0:
			return models.TaskEntry{}, validationErrorf("sla hours must not be negative, got %v", *patch.SLAHours)
		case *patch.SLAHours == 0:
			entry.SLAHours = nil
		default:
			sla := *patch.SLAHours
			entry.SLAHours = &sla
		}
	}
	if patch.Dependencies != nil {
		deps := cleanList(patch.Dependencies)
		if err := s.checkDependencies(entry.ID, deps); err != nil {
			return models.TaskEntry{}, err
		}
		entry.Dependencies = deps
	}
	if patch.Labels != nil {
		entry.Labels = cleanList(patch.Labels)
	}
	if patch.Notes != "" {
		entry.Notes = appendNote(entry.Notes, patch.Notes, now)
	}

	entry.UpdatedAt = now
	if entry.Status == models.StatusCompleted {
		completed := now
		entry.CompletedAt = &completed
	} else {
		entry.CompletedAt = nil
	}

	s.tasks[i] = entry
	s.recompute()
	return entry, nil
}

// Complete marks the task completed and stamps CompletedAt with the current
// time. Completing an already completed task refreshes the timestamp.
func (s *TaskStore) Complete(id, notes string) (models.TaskEntry, error) {
	status := models.StatusCompleted
	return s.Update(id, models.TaskPatch{Status: &status, Notes: notes})
}

// Clear removes every task and returns how many were removed.
func (s *TaskStore) Clear() int {
	removed := len(s.tasks)
	s.tasks = nil
	s.index = make(map[string]int)
	s.recompute()
	return removed
}

func (s *TaskStore) newID() string {
	for {
		id := "T-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if _, exists := s.index[id]; !exists {
			return id
		}
	}
}

func (s *TaskStore) checkDependencies(id string, deps []string) error {
	if len(deps) == 0 {
		return nil
	}
	if s.Resolver().WouldCycle(id, deps) {
		return fmt.Errorf("%w: task %s: %w", ErrValidation, id, ErrCyclicDependency)
	}
	return nil
}

func validateEnums(role models.Role, priority models.Priority, status models.TaskStatus) error {
	if !role.IsValid() {
		return validationErrorf("invalid role %q, must be one of: architect, developer, tester, analyst, coordinator", role)
	}
	if !priority.IsValid() {
		return validationErrorf("invalid priority %q, must be one of: high, medium, low", priority)
	}
	if !status.IsValid() {
		return validationErrorf("invalid status %q, must be one of: pending, in-progress, completed, blocked, failed", status)
	}
	return nil
}

// cleanList trims entries and drops empty ones. The result is never nil so
// persisted documents always carry an explicit list.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func appendNote(existing, note string, now time.Time) string {
	line := fmt.Sprintf("[%s] %s", now.Format(time.RFC3339), strings.TrimSpace(note))
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
