package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts and warnings",
	Long: `Evaluate alert conditions against the current queue and display any triggered alerts.

Alerts check for overdue tasks, SLA breaches, tasks blocked or idle for too
long, and the size of the pending queue.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized")
		}
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		snap, err := Queue.Snapshot()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}
		alerts := AlertEngine.Evaluate(snap.Views, snap.Metadata, snap.Evaluated)

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Fprintf(out, "  [%s] %s\n", severity, alert.Message)
			fmt.Fprintf(out, "         %s, triggered at %s\n\n", alert.Condition, alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}
