package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

func TestViewFlags(t *testing.T) {
	tests := []struct {
		view models.TaskView
		want string
	}{
		{models.TaskView{}, ""},
		{models.TaskView{Blocked: true}, "B"},
		{models.TaskView{Overdue: true, SLABreached: true}, "OS"},
		{models.TaskView{Blocked: true, Overdue: true, SLABreached: true}, "BOS"},
	}
	for _, tt := range tests {
		if got := viewFlags(tt.view); got != tt.want {
			t.Errorf("viewFlags(%+v) = %q, want %q", tt.view, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("Résumé the migration plan", 6); got != "Résum…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestFormatDue(t *testing.T) {
	if formatDue(nil) != "-" {
		t.Error("nil due should render as -")
	}
	due := time.Date(2026, 3, 1, 14, 30, 0, 0, time.FixedZone("AEST", 10*3600))
	if got := formatDue(&due); got != "2026-03-01 04:30" {
		t.Errorf("formatDue = %q", got)
	}
}

func TestParseKeyValues(t *testing.T) {
	got, err := parseKeyValues([]string{"job=42", " test = TestLogin ", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	if got["job"] != "42" || got["test"] != "TestLogin" || got["empty"] != "" {
		t.Errorf("parsed = %v", got)
	}
	if m, err := parseKeyValues(nil); m != nil || err != nil {
		t.Errorf("nil input = %v, %v", m, err)
	}
	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseKeyValues([]string{bad}); err == nil {
			t.Errorf("parseKeyValues(%q) should fail", bad)
		}
	}
}

func TestRenderTaskTable(t *testing.T) {
	views := []models.TaskView{
		{Task: models.TaskEntry{ID: "T-1", Title: "Design schema", Role: models.RoleArchitect, Priority: models.PriorityHigh, Status: models.StatusPending}, Blocked: true},
	}
	out := renderTaskTable(views)
	for _, want := range []string{"ID", "FLAGS", "T-1", "Design schema", "architect", "high"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestSummariseCorpus(t *testing.T) {
	records := []models.CorpusRecord{
		{Topics: []string{"Auth", "auth", "caching"}, HasErrors: true, ProjectPath: "svc/api"},
		{Topics: []string{"auth"}, HasErrors: true, HasSolutions: true, ProjectPath: "svc/web"},
		{Topics: []string{"deploy"}, HasErrors: true},
	}
	topics, projects := summariseCorpus(records)
	if len(topics) != 3 || topics[0] != (namedCount{"auth", 2}) || topics[1].name != "caching" {
		t.Errorf("topics = %+v", topics)
	}
	if len(projects) != 1 || projects[0] != (namedCount{"svc/api", 1}) {
		t.Errorf("projects = %+v", projects)
	}
}
