package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/internal/observability"
	"github.com/valter-silva-au/opq/pkg/models"
)

// Dashboard panel indices.
const (
	panelTasks = iota
	panelEvents
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	meta    models.QueueMetadata
	events  models.EventMetadata
	attn    []attentionRow
	alerts  []alertSnapshot
	hasData bool

	// State.
	loading bool
	err     error
}

// attentionRow is a task that is blocked, overdue or over its SLA.
type attentionRow struct {
	id    string
	title string
	flags string
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	meta   models.QueueMetadata
	events models.EventMetadata
	attn   []attentionRow
	alerts []alertSnapshot
	err    error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusBlocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusFailed     = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelTasks,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.meta = msg.meta
		m.events = msg.events
		m.attn = msg.attn
		m.alerts = msg.alerts
		m.hasData = true
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" opq Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	tasksPanel := m.renderTasksPanel()
	eventsPanel := m.renderEventsPanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, eventsPanel, alertsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, tasksPanel, eventsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	if !m.hasData || m.meta.TotalTasks == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	counts := []struct {
		status models.TaskStatus
		n      int
	}{
		{models.StatusInProgress, m.meta.InProgressTasks},
		{models.StatusFailed, m.meta.FailedTasks},
		{models.StatusPending, m.meta.PendingTasks},
		{models.StatusCompleted, m.meta.CompletedTasks},
	}
	for _, c := range counts {
		if c.n == 0 {
			continue
		}
		label := fmt.Sprintf("  %-14s %d", c.status, c.n)
		b.WriteString(styleForStatus(c.status).Render(label))
		b.WriteString("\n")
	}
	// BlockedTasks counts unfinished dependencies, not the blocked status.
	fmt.Fprintf(&b, "\n  Dependency-blocked: %d", m.meta.BlockedTasks)
	fmt.Fprintf(&b, "\n  Overdue: %d  SLA breaches: %d", m.meta.OverdueTasks, m.meta.SLABreaches)
	fmt.Fprintf(&b, "\n  Total: %d", m.meta.TotalTasks)

	if len(m.attn) > 0 {
		b.WriteString("\n\n  Needs attention:\n")
		for _, a := range m.attn {
			fmt.Fprintf(&b, "  %s %-3s %s\n", a.id, a.flags, truncate(a.title, 32))
		}
	}
	return b.String()
}

func (m dashboardModel) renderEventsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Events"))
	b.WriteString("\n")

	if m.events.TotalEvents == 0 {
		b.WriteString("  No events recorded.")
		return b.String()
	}

	for _, k := range sortedKeys(m.events.EventsByType) {
		fmt.Fprintf(&b, "  %-14s %d\n", k, m.events.EventsByType[k])
	}
	fmt.Fprintf(&b, "\n  Total: %d", m.events.TotalEvents)
	if m.events.LastEventTimestamp != nil {
		fmt.Fprintf(&b, "\n  Last: %s", m.events.LastEventTimestamp.UTC().Format("2006-01-02 15:04 UTC"))
	}
	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		fmt.Fprintf(&b, "  %s %s\n", sev, a.message)
	}

	fmt.Fprintf(&b, "\n  Total: %d alert(s)", len(m.alerts))

	return b.String()
}

func styleForStatus(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusInProgress:
		return statusInProgress
	case models.StatusCompleted:
		return statusCompleted
	case models.StatusBlocked:
		return statusBlocked
	case models.StatusFailed:
		return statusFailed
	case models.StatusPending:
		return statusPending
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	var result dataLoadedMsg
	if Queue == nil {
		result.err = fmt.Errorf("queue not initialized")
		return result
	}

	snap, err := Queue.Snapshot()
	if err != nil {
		result.err = fmt.Errorf("loading queue: %w", err)
		return result
	}
	result.meta = snap.Metadata
	result.events = snap.Events

	for _, v := range snap.Views {
		if v.Task.Status == models.StatusCompleted {
			continue
		}
		if flags := viewFlags(v); flags != "" {
			result.attn = append(result.attn, attentionRow{id: v.Task.ID, title: v.Task.Title, flags: flags})
		}
	}

	if AlertEngine != nil {
		alerts := AlertEngine.Evaluate(snap.Views, snap.Metadata, snap.Evaluated)
		result.alerts = alertSnapshots(alerts)
	}

	return result
}

// alertSnapshots converts alerts, already ordered by severity, for display.
func alertSnapshots(alerts []observability.Alert) []alertSnapshot {
	out := make([]alertSnapshot, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertSnapshot{
			severity: string(a.Severity),
			message:  a.Message,
			time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
		})
	}
	return out
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for the queue, events and alerts",
	Long: `Launch an interactive terminal dashboard showing queue counts, tasks
that need attention, event log aggregates and alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
