package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

// NoSignalsLine is written to the report when a run produced no items.
const NoSignalsLine = "No feedback signals detected."

// ReportWriter persists the rendered feedback report, replacing any
// previous one.
type ReportWriter interface {
	WriteReport(content []byte) error
}

// RenderFeedbackReport renders the surviving feedback items as a markdown
// table. skipped and degraded are summarised in the header.
func RenderFeedbackReport(items []models.FeedbackItem, skipped int, degraded bool, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Feedback Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- New items: %d\n", len(items))
	fmt.Fprintf(&b, "- Skipped as duplicates: %d\n", skipped)
	if degraded {
		b.WriteString("- Knowledge corpus: unavailable (partial signals only)\n")
	}
	b.WriteString("\n")

	if len(items) == 0 {
		b.WriteString(NoSignalsLine + "\n")
		return b.String()
	}

	b.WriteString("| # | Title | Severity | Role | Due | Recommended action |\n")
	b.WriteString("|---|-------|----------|------|-----|--------------------|\n")
	for i, item := range items {
		due := "-"
		if item.DueAt != nil {
			due = item.DueAt.UTC().Format("2006-01-02 15:04")
		}
		role := item.RecommendedRole
		if role == "" {
			role = models.RoleArchitect
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			i+1, cell(item.Title), item.Severity, role, due, cell(item.RecommendedAction))
	}

	b.WriteString("\n## Details\n")
	for i, item := range items {
		fmt.Fprintf(&b, "\n%d. **%s**: %s\n", i+1, item.Title, item.Detail)
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
