package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/internal/core"
)

var (
	feedbackDryRunFlag bool
	feedbackJSONFlag   bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Synthesize new tasks from recent signals and the knowledge corpus",
	Long: `Run the feedback synthesizer once.

Three rules are evaluated: repeated test failures in the trailing window,
a knowledge-corpus topic that keeps recurring, and projects whose recent
records report errors without a solution. Items whose title matches an
existing task are skipped. Survivors are added to the queue and the report
is rewritten.

If the knowledge corpus cannot be reached the run continues with the
event-derived rule only and a warning is logged.

With --dry-run the report is written but neither document is touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := Queue.Synthesize(ctx, core.FeedbackOptions{DryRun: feedbackDryRunFlag})
		if err != nil {
			return fmt.Errorf("running feedback synthesis: %w", err)
		}

		out := cmd.OutOrStdout()
		if feedbackJSONFlag {
			return writeJSON(out, result)
		}

		if result.Degraded {
			fmt.Fprintln(out, "Knowledge corpus unavailable; only event-derived rules ran.")
		}
		if result.DryRun {
			fmt.Fprintf(out, "%d feedback item(s) would be added (%d skipped as duplicates).\n",
				len(result.Items), result.Skipped)
			for _, item := range result.Items {
				fmt.Fprintf(out, "  [%s] %s\n", item.Severity, item.Title)
			}
		} else {
			fmt.Fprintf(out, "%d feedback item(s) added (%d skipped as duplicates).\n",
				len(result.Added), result.Skipped)
			for _, t := range result.Added {
				fmt.Fprintf(out, "  %s  [%s] %s\n", t.ID, t.Priority, t.Title)
			}
		}
		if ReportPath != "" {
			fmt.Fprintf(out, "Report written to %s\n", ReportPath)
		}
		return nil
	},
}

func init() {
	feedbackCmd.Flags().BoolVar(&feedbackDryRunFlag, "dry-run", false, "Evaluate and write the report without adding tasks")
	feedbackCmd.Flags().BoolVar(&feedbackJSONFlag, "json", false, "Output as JSON")
	rootCmd.AddCommand(feedbackCmd)
}
