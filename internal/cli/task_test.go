package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/pkg/models"
)

func TestTaskLifecycle(t *testing.T) {
	setupCLI(t, nil)

	out := mustRunCLI(t, "add", "Design schema", "--id", "T-design", "--priority", "high", "--labels", "db,schema")
	if !strings.Contains(out, "Added task T-design") || !strings.Contains(out, "Role:     architect") {
		t.Errorf("add output = %q", out)
	}
	mustRunCLI(t, "add", "Implement schema", "--id", "T-impl", "--role", "developer", "--depends-on", "T-design", "--sla", "8")

	list := decodeJSON[listOutput](t, mustRunCLI(t, "list", "--json"))
	if list.Metadata.TotalTasks != 2 || list.Metadata.BlockedTasks != 1 {
		t.Fatalf("metadata = %+v", list.Metadata)
	}
	if list.Tasks[1].Task.ID != "T-impl" || !list.Tasks[1].Blocked {
		t.Errorf("T-impl should be blocked: %+v", list.Tasks[1])
	}
	if list.Tasks[0].Task.Labels[1] != "schema" {
		t.Errorf("labels = %v", list.Tasks[0].Task.Labels)
	}

	out = mustRunCLI(t, "update", "T-design", "--status", "in-progress", "--notes", "started")
	if !strings.Contains(out, "Status:   in-progress") {
		t.Errorf("update output = %q", out)
	}

	out = mustRunCLI(t, "complete", "T-design", "--notes", "merged")
	if !strings.Contains(out, "Completed task T-design") {
		t.Errorf("complete output = %q", out)
	}

	view := decodeJSON[models.TaskView](t, mustRunCLI(t, "show", "T-impl", "--json"))
	if view.Blocked {
		t.Error("T-impl should unblock once T-design is completed")
	}

	out = mustRunCLI(t, "show", "T-design")
	if !strings.Contains(out, "started") || !strings.Contains(out, "merged") {
		t.Errorf("notes should accumulate, got %q", out)
	}

	list = decodeJSON[listOutput](t, mustRunCLI(t, "list", "--json", "--status", "completed"))
	if len(list.Tasks) != 1 || list.Tasks[0].Task.ID != "T-design" {
		t.Errorf("completed filter = %+v", list.Tasks)
	}

	table := mustRunCLI(t, "list")
	if !strings.Contains(table, "T-impl") || !strings.Contains(table, "2 task(s)") {
		t.Errorf("table output = %q", table)
	}
}

func TestAdd_InvalidRole(t *testing.T) {
	setupCLI(t, nil)

	_, err := runCLI(t, "add", "Write docs", "--role", "janitor")
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestAdd_CycleRejected(t *testing.T) {
	setupCLI(t, nil)
	mustRunCLI(t, "add", "a", "--id", "A", "--depends-on", "B")
	mustRunCLI(t, "add", "b", "--id", "B")

	_, err := runCLI(t, "update", "B", "--depends-on", "A")
	if !errors.Is(err, core.ErrCyclicDependency) {
		t.Fatalf("error = %v, want ErrCyclicDependency", err)
	}
}

func TestUpdate_NothingToUpdate(t *testing.T) {
	setupCLI(t, nil)
	mustRunCLI(t, "add", "a", "--id", "A")

	_, err := runCLI(t, "update", "A")
	if err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Fatalf("error = %v", err)
	}
}

func TestUpdate_ClearsDueAndSLA(t *testing.T) {
	setupCLI(t, nil)
	mustRunCLI(t, "add", "a", "--id", "A", "--due", "+48h", "--sla", "4")
	mustRunCLI(t, "update", "A", "--due", "", "--sla", "0")

	view := decodeJSON[models.TaskView](t, mustRunCLI(t, "show", "A", "--json"))
	if view.Task.DueAt != nil || view.Task.SLAHours != nil {
		t.Errorf("due = %v, sla = %v; want both cleared", view.Task.DueAt, view.Task.SLAHours)
	}
}

func TestComplete_UnknownTask(t *testing.T) {
	setupCLI(t, nil)
	_, err := runCLI(t, "complete", "T-missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestClear_RequiresConfirmation(t *testing.T) {
	env := setupCLI(t, nil)
	mustRunCLI(t, "add", "a")
	mustRunCLI(t, "add", "b")

	if _, err := runCLI(t, "clear"); err == nil {
		t.Fatal("clear without --yes should fail")
	}
	out := mustRunCLI(t, "clear", "--yes")
	if !strings.Contains(out, "Removed 2 task(s).") {
		t.Errorf("clear output = %q", out)
	}

	snap, err := env.queue.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Metadata.TotalTasks != 0 || snap.Events.EventsByType["task-clear"] != 1 {
		t.Errorf("after clear: tasks = %d, events = %v", snap.Metadata.TotalTasks, snap.Events.EventsByType)
	}
}

func TestList_InvalidFilter(t *testing.T) {
	setupCLI(t, nil)
	if _, err := runCLI(t, "list", "--status", "done"); err == nil {
		t.Error("expected an error for an unknown status filter")
	}
	if _, err := runCLI(t, "list", "--role", "boss"); err == nil {
		t.Error("expected an error for an unknown role filter")
	}
}

func TestCommands_RequireQueue(t *testing.T) {
	prev := Queue
	Queue = nil
	defer func() { Queue = prev }()

	for _, args := range [][]string{{"list"}, {"add", "x"}, {"status"}, {"feedback"}} {
		if _, err := runCLI(t, args...); err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Errorf("opq %v error = %v", args, err)
		}
	}
}
