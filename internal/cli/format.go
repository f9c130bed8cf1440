package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/valter-silva-au/opq/pkg/models"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	flagStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// renderTaskTable renders task views as a bordered table. The FLAGS column
// marks blocked (B), overdue (O) and SLA-breached (S) tasks.
func renderTaskTable(views []models.TaskView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		t := v.Task
		rows = append(rows, []string{
			t.ID,
			truncate(t.Title, 48),
			string(t.Role),
			string(t.Priority),
			string(t.Status),
			formatDue(t.DueAt),
			viewFlags(v),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "TITLE", "ROLE", "PRIORITY", "STATUS", "DUE", "FLAGS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 6 {
				return flagStyle.Padding(0, 1)
			}
			return tableCellStyle
		})
	return tbl.String()
}

func viewFlags(v models.TaskView) string {
	var b strings.Builder
	if v.Blocked {
		b.WriteString("B")
	}
	if v.Overdue {
		b.WriteString("O")
	}
	if v.SLABreached {
		b.WriteString("S")
	}
	return b.String()
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.UTC().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// summaryLine renders the queue metadata on one line.
func summaryLine(m models.QueueMetadata) string {
	return fmt.Sprintf("%d task(s): %d pending, %d in progress, %d blocked, %d failed, %d completed | %d overdue, %d SLA breach(es)",
		m.TotalTasks, m.PendingTasks, m.InProgressTasks, m.BlockedTasks, m.FailedTasks, m.CompletedTasks,
		m.OverdueTasks, m.SLABreaches)
}

func printTask(w io.Writer, verb string, t models.TaskEntry) {
	fmt.Fprintf(w, "%s task %s\n", verb, t.ID)
	fmt.Fprintf(w, "  Title:    %s\n", t.Title)
	fmt.Fprintf(w, "  Role:     %s\n", t.Role)
	fmt.Fprintf(w, "  Priority: %s\n", t.Priority)
	fmt.Fprintf(w, "  Status:   %s\n", t.Status)
	if t.Project != "" {
		fmt.Fprintf(w, "  Project:  %s\n", t.Project)
	}
	if t.DueAt != nil {
		fmt.Fprintf(w, "  Due:      %s\n", formatDue(t.DueAt))
	}
	if t.SLAHours != nil {
		fmt.Fprintf(w, "  SLA:      %gh\n", *t.SLAHours)
	}
	if len(t.Dependencies) > 0 {
		fmt.Fprintf(w, "  Depends:  %s\n", strings.Join(t.Dependencies, ", "))
	}
	if len(t.Labels) > 0 {
		fmt.Fprintf(w, "  Labels:   %s\n", strings.Join(t.Labels, ", "))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// parseKeyValues turns ["k=v", ...] into a map.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
