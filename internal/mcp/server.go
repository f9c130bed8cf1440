// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the operator queue as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/internal/observability"
	"github.com/valter-silva-au/opq/pkg/models"
)

// Server wraps the queue and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	queue       core.QueueManager
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server over queue. alertEngine may be nil.
func NewServer(queue core.QueueManager, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		queue:       queue,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "opq", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"the task identifier (e.g. T-1a2b3c4d)"`
}

type taskOutput struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Role         string   `json:"role"`
	Priority     string   `json:"priority"`
	Status       string   `json:"status"`
	Project      string   `json:"project,omitempty"`
	Created      string   `json:"created"`
	Updated      string   `json:"updated"`
	Completed    string   `json:"completed,omitempty"`
	Due          string   `json:"due,omitempty"`
	SLAHours     *float64 `json:"sla_hours,omitempty"`
	Dependencies []string `json:"dependencies"`
	Labels       []string `json:"labels"`
	Blocked      bool     `json:"blocked"`
	Overdue      bool     `json:"overdue"`
	SLABreached  bool     `json:"sla_breached"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter by status (pending, in-progress, blocked, failed, completed)"`
	Role   string `json:"role,omitempty" jsonschema:"filter by role (architect, developer, tester, analyst, coordinator)"`
	Label  string `json:"label,omitempty" jsonschema:"filter by label"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type addTaskInput struct {
	Title        string   `json:"title" jsonschema:"short task title, unique titles avoid duplicate feedback tasks"`
	Description  string   `json:"description,omitempty" jsonschema:"longer description"`
	Role         string   `json:"role,omitempty" jsonschema:"role, defaults to architect"`
	Priority     string   `json:"priority,omitempty" jsonschema:"high, medium or low, defaults to medium"`
	Project      string   `json:"project,omitempty" jsonschema:"project reference"`
	Due          string   `json:"due,omitempty" jsonschema:"due date: RFC3339, YYYY-MM-DD, or relative like +48h or +3d"`
	SLAHours     *float64 `json:"sla_hours,omitempty" jsonschema:"SLA in hours"`
	Dependencies []string `json:"dependencies,omitempty" jsonschema:"ids of tasks this task depends on"`
	Labels       []string `json:"labels,omitempty" jsonschema:"labels"`
}

type updateTaskInput struct {
	TaskID       string   `json:"task_id" jsonschema:"the task identifier"`
	Title        *string  `json:"title,omitempty" jsonschema:"new title"`
	Description  *string  `json:"description,omitempty" jsonschema:"new description"`
	Role         *string  `json:"role,omitempty" jsonschema:"new role"`
	Priority     *string  `json:"priority,omitempty" jsonschema:"new priority"`
	Status       *string  `json:"status,omitempty" jsonschema:"new status (pending, in-progress, blocked, failed, completed)"`
	Project      *string  `json:"project,omitempty" jsonschema:"new project reference"`
	Due          *string  `json:"due,omitempty" jsonschema:"new due date, empty string clears it"`
	SLAHours     *float64 `json:"sla_hours,omitempty" jsonschema:"new SLA in hours, 0 clears it"`
	Dependencies []string `json:"dependencies,omitempty" jsonschema:"replacement dependency ids"`
	Labels       []string `json:"labels,omitempty" jsonschema:"replacement labels"`
	Notes        string   `json:"notes,omitempty" jsonschema:"note to append"`
}

type completeTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"the task identifier"`
	Notes  string `json:"notes,omitempty" jsonschema:"completion note"`
}

type recordEventInput struct {
	Type   string            `json:"type" jsonschema:"event type, e.g. test-failure"`
	Role   string            `json:"role,omitempty" jsonschema:"role associated with the signal"`
	Detail string            `json:"detail,omitempty" jsonschema:"free-text detail"`
	Source string            `json:"source,omitempty" jsonschema:"where the signal came from"`
	Attrs  map[string]string `json:"attrs,omitempty" jsonschema:"extra attributes"`
}

type recordEventOutput struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type getStatusInput struct{}

type statusOutput struct {
	Queue  models.QueueMetadata `json:"queue"`
	Events models.EventMetadata `json:"events"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	TaskID      string `json:"task_id,omitempty"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

type runFeedbackInput struct {
	DryRun bool `json:"dry_run,omitempty" jsonschema:"evaluate and write the report without adding tasks"`
}

type runFeedbackOutput struct {
	Items    []string `json:"items"`
	Added    []string `json:"added"`
	Skipped  int      `json:"skipped"`
	Degraded bool     `json:"degraded"`
	DryRun   bool     `json:"dry_run"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a task by ID, including whether it is blocked, overdue or over its SLA right now.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks with optional status, role and label filters.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_task",
		Description: "Add a task to the queue. Role defaults to architect, priority to medium.",
	}, s.handleAddTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task",
		Description: "Update only the given fields of a task. Notes are appended, never replaced.",
	}, s.handleUpdateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task completed and stamp the completion time.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "record_event",
		Description: "Append an observed signal such as a test-failure to the event log.",
	}, s.handleRecordEvent)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_status",
		Description: "Get queue metadata (status, overdue, SLA and priority counts) and event log aggregates.",
	}, s.handleGetStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (overdue, SLA breaches, long-blocked or stale tasks, pending queue size).",
	}, s.handleGetAlerts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "run_feedback",
		Description: "Run the feedback synthesizer once and return the items it produced.",
	}, s.handleRunFeedback)
}

// --- Tool handlers ---

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	v, err := s.queue.Get(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, viewToOutput(v), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	views, _, err := s.queue.List(core.ListFilter{
		Status: models.TaskStatus(input.Status),
		Role:   models.Role(input.Role),
		Label:  input.Label,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{
		Tasks: make([]taskOutput, len(views)),
		Count: len(views),
	}
	for i, v := range views {
		out.Tasks[i] = viewToOutput(v)
	}
	return nil, out, nil
}

func (s *Server) handleAddTask(_ context.Context, _ *gomcp.CallToolRequest, input addTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return errorResult("title is required"), taskOutput{}, nil
	}
	t, err := s.queue.Add(models.TaskInput{
		Title:        input.Title,
		Description:  input.Description,
		Role:         models.Role(input.Role),
		Priority:     models.Priority(input.Priority),
		Project:      input.Project,
		Due:          input.Due,
		SLAHours:     input.SLAHours,
		Dependencies: input.Dependencies,
		Labels:       input.Labels,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("adding task: %s", err)), taskOutput{}, nil
	}
	return nil, entryToOutput(t), nil
}

func (s *Server) handleUpdateTask(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	patch := models.TaskPatch{
		Title:        input.Title,
		Description:  input.Description,
		Project:      input.Project,
		Due:          input.Due,
		SLAHours:     input.SLAHours,
		Dependencies: input.Dependencies,
		Labels:       input.Labels,
		Notes:        input.Notes,
	}
	if input.Role != nil {
		r := models.Role(*input.Role)
		patch.Role = &r
	}
	if input.Priority != nil {
		p := models.Priority(*input.Priority)
		patch.Priority = &p
	}
	if input.Status != nil {
		st := models.TaskStatus(*input.Status)
		patch.Status = &st
	}
	if len(patch.Fields()) == 0 {
		return errorResult("nothing to update"), taskOutput{}, nil
	}

	t, err := s.queue.Update(input.TaskID, patch)
	if err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, entryToOutput(t), nil
}

func (s *Server) handleCompleteTask(_ context.Context, _ *gomcp.CallToolRequest, input completeTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	t, err := s.queue.Complete(input.TaskID, input.Notes)
	if err != nil {
		return errorResult(fmt.Sprintf("completing task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, entryToOutput(t), nil
}

func (s *Server) handleRecordEvent(_ context.Context, _ *gomcp.CallToolRequest, input recordEventInput) (*gomcp.CallToolResult, recordEventOutput, error) {
	if strings.TrimSpace(input.Type) == "" {
		return errorResult("type is required"), recordEventOutput{}, nil
	}
	event := models.EventEntry{
		Type:   models.EventType(input.Type),
		Role:   models.Role(input.Role),
		Detail: input.Detail,
	}
	if input.Source != "" || len(input.Attrs) > 0 {
		event.Payload = &models.EventPayload{
			Signal: &models.SignalPayload{Source: input.Source, Attrs: input.Attrs},
		}
	}
	stored, err := s.queue.RecordEvent(event)
	if err != nil {
		return errorResult(fmt.Sprintf("recording event: %s", err)), recordEventOutput{}, nil
	}
	return nil, recordEventOutput{
		ID:        stored.ID,
		Type:      string(stored.Type),
		Timestamp: stored.Timestamp.Format(time.RFC3339),
	}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *gomcp.CallToolRequest, _ getStatusInput) (*gomcp.CallToolResult, statusOutput, error) {
	snap, err := s.queue.Snapshot()
	if err != nil {
		return errorResult(fmt.Sprintf("loading queue: %s", err)), statusOutput{}, nil
	}
	return nil, statusOutput{Queue: snap.Metadata, Events: snap.Events}, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available"), getAlertsOutput{}, nil
	}

	snap, err := s.queue.Snapshot()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}
	alerts := s.alertEngine.Evaluate(snap.Views, snap.Metadata, snap.Evaluated)

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			TaskID:      a.TaskID,
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleRunFeedback(ctx context.Context, _ *gomcp.CallToolRequest, input runFeedbackInput) (*gomcp.CallToolResult, runFeedbackOutput, error) {
	res, err := s.queue.Synthesize(ctx, core.FeedbackOptions{DryRun: input.DryRun})
	if err != nil {
		return errorResult(fmt.Sprintf("running feedback: %s", err)), runFeedbackOutput{}, nil
	}
	out := runFeedbackOutput{
		Items:    make([]string, 0, len(res.Items)),
		Added:    make([]string, 0, len(res.Added)),
		Skipped:  res.Skipped,
		Degraded: res.Degraded,
		DryRun:   res.DryRun,
	}
	for _, item := range res.Items {
		out.Items = append(out.Items, item.Title)
	}
	for _, t := range res.Added {
		out.Added = append(out.Added, t.ID)
	}
	return nil, out, nil
}

// --- Helpers ---

func viewToOutput(v models.TaskView) taskOutput {
	out := entryToOutput(v.Task)
	out.Blocked = v.Blocked
	out.Overdue = v.Overdue
	out.SLABreached = v.SLABreached
	return out
}

func entryToOutput(t models.TaskEntry) taskOutput {
	out := taskOutput{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Role:         string(t.Role),
		Priority:     string(t.Priority),
		Status:       string(t.Status),
		Project:      t.Project,
		Created:      t.CreatedAt.Format(time.RFC3339),
		Updated:      t.UpdatedAt.Format(time.RFC3339),
		SLAHours:     t.SLAHours,
		Dependencies: t.Dependencies,
		Labels:       t.Labels,
	}
	if t.CompletedAt != nil {
		out.Completed = t.CompletedAt.Format(time.RFC3339)
	}
	if t.DueAt != nil {
		out.Due = t.DueAt.Format(time.RFC3339)
	}
	if out.Dependencies == nil {
		out.Dependencies = []string{}
	}
	if out.Labels == nil {
		out.Labels = []string{}
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
