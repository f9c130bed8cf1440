package observability

import (
	"fmt"
	"testing"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
	"pgregory.net/rapid"
)

// Feature: opq, Property 7: Completed Tasks Never Alert
func TestProperty7_CompletedTasksNeverAlert(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		views := make([]models.TaskView, n)
		completed := make(map[string]bool)
		for i := range views {
			id := fmt.Sprintf("T-%08x", i)
			status := rapid.SampledFrom(models.Statuses).Draw(rt, "status")
			age := time.Duration(rapid.IntRange(0, 400).Draw(rt, "age_hours")) * time.Hour
			v := view(id, status, now.Add(-age))
			v.Blocked = rapid.Bool().Draw(rt, "blocked")
			v.Overdue = rapid.Bool().Draw(rt, "overdue")
			if v.Overdue {
				due := now.Add(-time.Hour)
				v.Task.DueAt = &due
			}
			if rapid.Bool().Draw(rt, "breached") {
				sla := 1.0
				v.Task.SLAHours = &sla
				v.SLABreached = true
			}
			if status == models.StatusCompleted {
				completed[id] = true
			}
			views[i] = v
		}

		alerts := NewAlertEngine(DefaultAlertThresholds()).Evaluate(views, models.QueueMetadata{}, now)
		for i, a := range alerts {
			if completed[a.TaskID] {
				rt.Fatalf("alert %s raised for completed task", a.ID)
			}
			if i > 0 && SeverityRank(string(alerts[i-1].Severity)) > SeverityRank(string(a.Severity)) {
				rt.Fatalf("alerts not ordered by severity at %d", i)
			}
		}
	})
}
