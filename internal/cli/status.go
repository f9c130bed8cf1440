package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/internal/core"
)

var statusJSONFlag bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display queue and event log metadata",
	Long: `Display the queue metadata (status, deadline and priority counts) evaluated
at the current time, followed by the event log aggregates.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		snap, err := Queue.Snapshot()
		if err != nil {
			return fmt.Errorf("loading queue: %w", err)
		}

		out := cmd.OutOrStdout()
		if statusJSONFlag {
			return writeJSON(out, struct {
				Queue  any `json:"queue"`
				Events any `json:"events"`
			}{snap.Metadata, snap.Events})
		}
		printStatus(out, snap)
		return nil
	},
}

func printStatus(w io.Writer, snap *core.Snapshot) {
	m := snap.Metadata
	fmt.Fprintf(w, "== QUEUE (%d) ==\n", m.TotalTasks)
	fmt.Fprintf(w, "  %-14s %d\n", "pending", m.PendingTasks)
	fmt.Fprintf(w, "  %-14s %d\n", "in-progress", m.InProgressTasks)
	fmt.Fprintf(w, "  %-14s %d\n", "blocked", m.BlockedTasks)
	fmt.Fprintf(w, "  %-14s %d\n", "failed", m.FailedTasks)
	fmt.Fprintf(w, "  %-14s %d\n", "completed", m.CompletedTasks)
	fmt.Fprintf(w, "  %-14s %d\n", "overdue", m.OverdueTasks)
	fmt.Fprintf(w, "  %-14s %d\n", "sla breaches", m.SLABreaches)
	fmt.Fprintf(w, "  priority       high %d / medium %d / low %d\n\n",
		m.Priority.High, m.Priority.Medium, m.Priority.Low)

	e := snap.Events
	fmt.Fprintf(w, "== EVENTS (%d) ==\n", e.TotalEvents)
	for _, k := range sortedKeys(e.EventsByType) {
		fmt.Fprintf(w, "  %-14s %d\n", k, e.EventsByType[k])
	}
	if len(e.EventsByRole) > 0 {
		fmt.Fprintln(w, "  by role:")
		for _, k := range sortedKeys(e.EventsByRole) {
			fmt.Fprintf(w, "    %-12s %d\n", k, e.EventsByRole[k])
		}
	}
	if e.LastEventTimestamp != nil {
		fmt.Fprintf(w, "  last event     %s at %s\n", e.LastEventID, e.LastEventTimestamp.UTC().Format("2006-01-02 15:04 UTC"))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSONFlag, "json", false, "Output as JSON")
	rootCmd.AddCommand(statusCmd)
}
