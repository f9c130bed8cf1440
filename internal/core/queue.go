package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valter-silva-au/opq/internal/observability"
	"github.com/valter-silva-au/opq/pkg/models"
)

// TaskDocumentVersion is written into every persisted task document.
const TaskDocumentVersion = "1.0"

// TaskRepository loads and fully rewrites the task document.
type TaskRepository interface {
	LoadTasks() (*models.TaskDocument, error)
	SaveTasks(doc *models.TaskDocument) error
}

// EventRepository loads and fully rewrites the event document.
type EventRepository interface {
	LoadEvents() (*models.EventDocument, error)
	SaveEvents(doc *models.EventDocument) error
}

// Locker provides single-writer exclusion across processes.
type Locker interface {
	Lock() (unlock func() error, err error)
}

// ListFilter narrows List results. Zero fields match everything.
type ListFilter struct {
	Status models.TaskStatus
	Role   models.Role
	Label  string
}

// Snapshot is a read-only view of both documents at one point in time.
type Snapshot struct {
	Views     []models.TaskView
	Metadata  models.QueueMetadata
	Events    models.EventMetadata
	Evaluated time.Time
}

// FeedbackOptions configures a feedback run.
type FeedbackOptions struct {
	// DryRun evaluates the rules and writes the report without touching
	// either document.
	DryRun bool
}

// FeedbackResult summarises a feedback run.
type FeedbackResult struct {
	Items    []models.FeedbackItem
	Added    []models.TaskEntry
	Skipped  int
	Degraded bool
	DryRun   bool
}

// QueueManager is the command surface shared by the CLI and the MCP server.
type QueueManager interface {
	Snapshot() (*Snapshot, error)
	List(filter ListFilter) ([]models.TaskView, models.QueueMetadata, error)
	Get(id string) (models.TaskView, error)
	Add(in models.TaskInput) (models.TaskEntry, error)
	Update(id string, patch models.TaskPatch) (models.TaskEntry, error)
	Complete(id, notes string) (models.TaskEntry, error)
	Clear() (int, error)
	RecordEvent(event models.EventEntry) (models.EventEntry, error)
	Events(filter observability.EventFilter) ([]models.EventEntry, models.EventMetadata, error)
	Synthesize(ctx context.Context, opts FeedbackOptions) (*FeedbackResult, error)
}

var _ QueueManager = (*QueueService)(nil)

// QueueService is the operator-facing command surface over the task store
// and event log. Every mutating call loads both documents, applies the
// change, writes the task document and then appends and writes the event.
type QueueService struct {
	tasks  TaskRepository
	events EventRepository
	lock   Locker
	synth  *FeedbackSynthesizer
	report ReportWriter
	logger *slog.Logger
	now    func() time.Time
}

// QueueServiceConfig bundles the collaborators of a QueueService. Lock,
// Synthesizer, Report and Logger may be nil.
type QueueServiceConfig struct {
	Tasks       TaskRepository
	Events      EventRepository
	Lock        Locker
	Synthesizer *FeedbackSynthesizer
	Report      ReportWriter
	Logger      *slog.Logger
	Now         func() time.Time
}

// NewQueueService creates a QueueService.
func NewQueueService(cfg QueueServiceConfig) *QueueService {
	s := &QueueService{
		tasks:  cfg.Tasks,
		events: cfg.Events,
		lock:   cfg.Lock,
		synth:  cfg.Synthesizer,
		report: cfg.Report,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Snapshot loads both documents and evaluates every task at the current
// time.
func (s *QueueService) Snapshot() (*Snapshot, error) {
	store, log, err := s.load()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Views:     store.Views(),
		Metadata:  store.Refresh(),
		Events:    log.Metadata(),
		Evaluated: s.now(),
	}, nil
}

// List returns the tasks matching filter, annotated at the current time,
// together with metadata for the whole queue.
func (s *QueueService) List(filter ListFilter) ([]models.TaskView, models.QueueMetadata, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, models.QueueMetadata{}, err
	}
	var out []models.TaskView
	for _, v := range snap.Views {
		if matchesListFilter(v.Task, filter) {
			out = append(out, v)
		}
	}
	return out, snap.Metadata, nil
}

func matchesListFilter(t models.TaskEntry, f ListFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Role != "" && t.Role != f.Role {
		return false
	}
	if f.Label != "" {
		for _, l := range t.Labels {
			if l == f.Label {
				return true
			}
		}
		return false
	}
	return true
}

// Get returns a single task view.
func (s *QueueService) Get(id string) (models.TaskView, error) {
	store, _, err := s.load()
	if err != nil {
		return models.TaskView{}, err
	}
	t, err := store.Get(id)
	if err != nil {
		return models.TaskView{}, err
	}
	return store.Resolver().View(t, s.now()), nil
}

// Add creates a task and records a task-add event.
func (s *QueueService) Add(in models.TaskInput) (models.TaskEntry, error) {
	var added models.TaskEntry
	err := s.mutate(func(store *TaskStore, _ *observability.EventLog) (bool, []models.EventEntry, error) {
		entry, err := store.Add(in)
		if err != nil {
			return false, nil, err
		}
		added = entry
		return true, []models.EventEntry{taskEvent(models.EventTaskAdd, entry, nil, in.Notes, "")}, nil
	})
	return added, err
}

// Update patches a task and records a task-update event.
func (s *QueueService) Update(id string, patch models.TaskPatch) (models.TaskEntry, error) {
	var updated models.TaskEntry
	err := s.mutate(func(store *TaskStore, _ *observability.EventLog) (bool, []models.EventEntry, error) {
		entry, err := store.Update(id, patch)
		if err != nil {
			return false, nil, err
		}
		updated = entry
		return true, []models.EventEntry{taskEvent(models.EventTaskUpdate, entry, patch.Fields(), patch.Notes, "")}, nil
	})
	return updated, err
}

// Complete marks a task completed and records a task-complete event.
func (s *QueueService) Complete(id, notes string) (models.TaskEntry, error) {
	var completed models.TaskEntry
	err := s.mutate(func(store *TaskStore, _ *observability.EventLog) (bool, []models.EventEntry, error) {
		entry, err := store.Complete(id, notes)
		if err != nil {
			return false, nil, err
		}
		completed = entry
		return true, []models.EventEntry{taskEvent(models.EventTaskComplete, entry, nil, notes, "")}, nil
	})
	return completed, err
}

// Clear removes every task and records a task-clear event. The event log
// itself is kept.
func (s *QueueService) Clear() (int, error) {
	var removed int
	err := s.mutate(func(store *TaskStore, _ *observability.EventLog) (bool, []models.EventEntry, error) {
		removed = store.Clear()
		return true, []models.EventEntry{{
			Type:    models.EventTaskClear,
			Detail:  fmt.Sprintf("cleared %d task(s)", removed),
			Payload: &models.EventPayload{Clear: &models.ClearPayload{RemovedTasks: removed}},
		}}, nil
	})
	return removed, err
}

// RecordEvent appends an externally observed signal, such as a test
// failure, to the event log.
func (s *QueueService) RecordEvent(event models.EventEntry) (models.EventEntry, error) {
	if event.Type == "" {
		return models.EventEntry{}, validationErrorf("event type is required")
	}
	if event.Role != "" && !event.Role.IsValid() {
		return models.EventEntry{}, validationErrorf("invalid role %q", event.Role)
	}
	var recorded models.EventEntry
	err := s.mutate(func(_ *TaskStore, _ *observability.EventLog) (bool, []models.EventEntry, error) {
		return false, []models.EventEntry{event}, nil
	}, func(stored []models.EventEntry) {
		recorded = stored[0]
	})
	return recorded, err
}

// Events returns the events matching filter with the log's metadata.
func (s *QueueService) Events(filter observability.EventFilter) ([]models.EventEntry, models.EventMetadata, error) {
	_, log, err := s.load()
	if err != nil {
		return nil, models.EventMetadata{}, err
	}
	return log.Filter(filter), log.Metadata(), nil
}

// Synthesize derives feedback items, promotes the survivors of
// deduplication to tasks and rewrites the report. The corpus being
// unreachable degrades the run but never fails it.
func (s *QueueService) Synthesize(ctx context.Context, opts FeedbackOptions) (*FeedbackResult, error) {
	if s.synth == nil {
		return nil, fmt.Errorf("feedback synthesizer not configured")
	}
	result := &FeedbackResult{DryRun: opts.DryRun}

	run := func(store *TaskStore, log *observability.EventLog) (bool, []models.EventEntry, error) {
		syn := s.synth.Synthesize(ctx, log)
		survivors, skipped := Deduplicate(syn.Items, store)
		result.Items = survivors
		result.Skipped = skipped
		result.Degraded = syn.Degraded
		if opts.DryRun {
			return false, nil, nil
		}

		now := s.now()
		var events []models.EventEntry
		for _, item := range survivors {
			entry, err := store.Add(TaskInputFromFeedback(item, now))
			if err != nil {
				return false, nil, fmt.Errorf("promoting feedback item %q: %w", item.Title, err)
			}
			result.Added = append(result.Added, entry)
			events = append(events, taskEvent(models.EventTaskAdd, entry, nil, "", "feedback"))
		}

		ids := make([]string, len(result.Added))
		for i, e := range result.Added {
			ids[i] = e.ID
		}
		events = append(events, models.EventEntry{
			Type:   models.EventFeedbackRun,
			Detail: fmt.Sprintf("%d feedback item(s) added", len(result.Added)),
			Payload: &models.EventPayload{Feedback: &models.FeedbackPayload{
				Generated: len(syn.Items),
				Added:     len(result.Added),
				Skipped:   skipped,
				Degraded:  syn.Degraded,
				TaskIDs:   ids,
			}},
		})
		return len(result.Added) > 0, events, nil
	}

	var err error
	if opts.DryRun {
		var store *TaskStore
		var log *observability.EventLog
		store, log, err = s.load()
		if err == nil {
			_, _, err = run(store, log)
		}
	} else {
		err = s.mutate(run)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("feedback run finished",
		"generated", len(result.Items)+result.Skipped,
		"added", len(result.Added),
		"skipped", result.Skipped,
		"degraded", result.Degraded,
		"dry_run", opts.DryRun)

	if s.report != nil {
		content := RenderFeedbackReport(result.Items, result.Skipped, result.Degraded, s.now())
		if err := s.report.WriteReport([]byte(content)); err != nil {
			return nil, persistenceError("writing feedback report", err)
		}
	}
	return result, nil
}

// mutation applies a change to the loaded store and returns whether the task
// document changed plus the events to append.
type mutation func(store *TaskStore, log *observability.EventLog) (tasksChanged bool, events []models.EventEntry, err error)

// mutate runs fn under the writer lock. The task document is written before
// any event is appended; the event document is written last. Optional
// callbacks receive the events as stored.
func (s *QueueService) mutate(fn mutation, stored ...func([]models.EventEntry)) error {
	if s.lock != nil {
		unlock, err := s.lock.Lock()
		if err != nil {
			return persistenceError("acquiring queue lock", err)
		}
		defer func() {
			if uerr := unlock(); uerr != nil {
				s.logger.Warn("releasing queue lock", "error", uerr)
			}
		}()
	}

	store, log, err := s.load()
	if err != nil {
		return err
	}

	tasksChanged, events, err := fn(store, log)
	if err != nil {
		return err
	}

	if tasksChanged {
		doc := &models.TaskDocument{
			Version:     TaskDocumentVersion,
			LastUpdated: s.now(),
			Queue:       store.Tasks(),
			Metadata:    store.Metadata(),
		}
		if err := s.tasks.SaveTasks(doc); err != nil {
			return persistenceError("saving task document", err)
		}
	}

	if len(events) == 0 {
		return nil
	}
	appended := make([]models.EventEntry, 0, len(events))
	for _, e := range events {
		entry, err := log.Append(e)
		if err != nil {
			return validationErrorf("%v", err)
		}
		appended = append(appended, entry)
	}
	if err := s.events.SaveEvents(log.Document()); err != nil {
		return persistenceError("saving event document", err)
	}
	for _, cb := range stored {
		cb(appended)
	}
	return nil
}

func (s *QueueService) load() (*TaskStore, *observability.EventLog, error) {
	taskDoc, err := s.tasks.LoadTasks()
	if err != nil {
		return nil, nil, persistenceError("loading task document", err)
	}
	eventDoc, err := s.events.LoadEvents()
	if err != nil {
		return nil, nil, persistenceError("loading event document", err)
	}
	var tasks []models.TaskEntry
	if taskDoc != nil {
		tasks = taskDoc.Queue
	}
	return NewTaskStore(tasks, s.now), observability.NewEventLog(eventDoc, s.now), nil
}

func taskEvent(typ models.EventType, t models.TaskEntry, fields []string, notes, source string) models.EventEntry {
	return models.EventEntry{
		Type:   typ,
		Role:   t.Role,
		Detail: t.Title,
		Payload: &models.EventPayload{Task: &models.TaskPayload{
			TaskID:   t.ID,
			Title:    t.Title,
			Status:   t.Status,
			Priority: t.Priority,
			Fields:   fields,
			Notes:    notes,
			Source:   source,
		}},
	}
}
