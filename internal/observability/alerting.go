package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	TaskID      string        `json:"task_id,omitempty"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	BlockedHours int `yaml:"blocked_hours" json:"blocked_hours"`
	StaleDays    int `yaml:"stale_days" json:"stale_days"`
	MaxPending   int `yaml:"max_pending" json:"max_pending"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		BlockedHours: 24,
		StaleDays:    3,
		MaxPending:   20,
	}
}

// AlertEngine evaluates alert conditions against annotated task views.
type AlertEngine interface {
	Evaluate(views []models.TaskView, meta models.QueueMetadata, now time.Time) []Alert
}

type alertEngine struct {
	thresholds AlertThresholds
}

// NewAlertEngine creates a new AlertEngine with the given thresholds.
func NewAlertEngine(thresholds AlertThresholds) AlertEngine {
	return &alertEngine{thresholds: thresholds}
}

// Evaluate checks every condition and returns alerts ordered by severity,
// then by id.
func (ae *alertEngine) Evaluate(views []models.TaskView, meta models.QueueMetadata, now time.Time) []Alert {
	var alerts []Alert
	blockedFor := time.Duration(ae.thresholds.BlockedHours) * time.Hour
	staleFor := time.Duration(ae.thresholds.StaleDays) * 24 * time.Hour

	for _, v := range views {
		t := v.Task
		if t.Status == models.StatusCompleted {
			continue
		}
		if v.Overdue {
			alerts = append(alerts, Alert{
				ID:          "overdue-" + t.ID,
				Condition:   "task_overdue",
				Severity:    SeverityHigh,
				TaskID:      t.ID,
				Message:     fmt.Sprintf("task %s (%s) was due %s", t.ID, t.Title, t.DueAt.Format("2006-01-02 15:04 UTC")),
				TriggeredAt: now,
			})
		}
		if v.SLABreached {
			alerts = append(alerts, Alert{
				ID:          "sla-" + t.ID,
				Condition:   "sla_breached",
				Severity:    SeverityHigh,
				TaskID:      t.ID,
				Message:     fmt.Sprintf("task %s (%s) exceeded its %gh SLA", t.ID, t.Title, *t.SLAHours),
				TriggeredAt: now,
			})
		}
		if v.Blocked && ae.thresholds.BlockedHours > 0 && now.Sub(t.UpdatedAt) > blockedFor {
			alerts = append(alerts, Alert{
				ID:          "blocked-" + t.ID,
				Condition:   "task_blocked_too_long",
				Severity:    SeverityMedium,
				TaskID:      t.ID,
				Message:     fmt.Sprintf("task %s has been blocked for more than %d hours", t.ID, ae.thresholds.BlockedHours),
				TriggeredAt: now,
			})
		}
		if t.Status == models.StatusInProgress && ae.thresholds.StaleDays > 0 && now.Sub(t.UpdatedAt) > staleFor {
			alerts = append(alerts, Alert{
				ID:          "stale-" + t.ID,
				Condition:   "task_stale",
				Severity:    SeverityMedium,
				TaskID:      t.ID,
				Message:     fmt.Sprintf("task %s has had no activity for more than %d days", t.ID, ae.thresholds.StaleDays),
				TriggeredAt: now,
			})
		}
	}

	if ae.thresholds.MaxPending > 0 && meta.PendingTasks > ae.thresholds.MaxPending {
		alerts = append(alerts, Alert{
			ID:          "pending-size",
			Condition:   "pending_too_large",
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("queue has %d pending tasks, exceeding the maximum of %d", meta.PendingTasks, ae.thresholds.MaxPending),
			TriggeredAt: now,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := SeverityRank(string(alerts[i].Severity)), SeverityRank(string(alerts[j].Severity))
		if ri != rj {
			return ri < rj
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts
}

// SeverityRank orders severities high, medium, low, then anything else.
func SeverityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low", "info":
		return 2
	default:
		return 3
	}
}
