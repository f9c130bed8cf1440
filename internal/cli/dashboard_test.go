package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/valter-silva-au/opq/pkg/models"
)

func TestDashboardModel_PanelNavigation(t *testing.T) {
	var m tea.Model = newDashboardModel()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := m.(dashboardModel).activePanel; got != panelEvents {
		t.Errorf("after tab panel = %d, want %d", got, panelEvents)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if got := m.(dashboardModel).activePanel; got != panelAlerts {
		t.Errorf("after shift+tab twice panel = %d, want %d", got, panelAlerts)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestDashboardModel_View(t *testing.T) {
	var m tea.Model = newDashboardModel()
	if m.View() != "Loading..." {
		t.Errorf("view before size = %q", m.View())
	}

	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = m.Update(dataLoadedMsg{
		meta:   models.QueueMetadata{TotalTasks: 3, PendingTasks: 2, BlockedTasks: 1, OverdueTasks: 1},
		events: models.EventMetadata{TotalEvents: 4, EventsByType: map[string]int{"task-add": 3, "test-failure": 1}},
		attn:   []attentionRow{{id: "T-1", title: "Ship release", flags: "BO"}},
		alerts: []alertSnapshot{{severity: "high", message: "task T-1 was due"}},
	})

	view := m.View()
	for _, want := range []string{"opq Dashboard", "Needs attention", "T-1", "test-failure", "[HIGH]", "task T-1 was due"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if !strings.Contains(view, "Dependency-blocked: 1") {
		t.Errorf("view should label dependency-blocked tasks separately:\n%s", view)
	}
	if strings.Contains(view, string(models.StatusBlocked)+" ") {
		t.Errorf("view should not report dependency-blocked tasks under the blocked status:\n%s", view)
	}

	m, _ = m.Update(dataLoadedMsg{err: errors.New("disk on fire")})
	if !strings.Contains(m.View(), "Error: disk on fire") {
		t.Errorf("error view = %q", m.View())
	}
}

func TestLoadData(t *testing.T) {
	setupCLI(t, nil)
	mustRunCLI(t, "add", "Ship release", "--id", "T-ship", "--due", "2020-01-01")
	mustRunCLI(t, "add", "Done already", "--status", "completed", "--due", "2020-01-01")

	msg, ok := loadData().(dataLoadedMsg)
	if !ok || msg.err != nil {
		t.Fatalf("loadData() = %+v", msg)
	}
	if msg.meta.TotalTasks != 2 || len(msg.attn) != 1 || msg.attn[0].id != "T-ship" {
		t.Errorf("loaded = %+v", msg)
	}
	if len(msg.alerts) == 0 || msg.alerts[0].severity != "high" {
		t.Errorf("alerts = %+v", msg.alerts)
	}
}
