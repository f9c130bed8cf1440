package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/pkg/models"
)

var (
	listStatusFlag string
	listRoleFlag   string
	listLabelFlag  string
	listJSONFlag   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks with dependency and deadline flags",
	Long: `List tasks in queue order, evaluated at the current time.

The FLAGS column marks tasks that are blocked by an unfinished or missing
dependency (B), past their due date (O), or over their SLA (S).
Filter with --status, --role and --label; use --json for machine output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		filter := core.ListFilter{
			Status: models.TaskStatus(listStatusFlag),
			Role:   models.Role(listRoleFlag),
			Label:  listLabelFlag,
		}
		if filter.Status != "" && !filter.Status.IsValid() {
			return fmt.Errorf("invalid --status %q", listStatusFlag)
		}
		if filter.Role != "" && !filter.Role.IsValid() {
			return fmt.Errorf("invalid --role %q", listRoleFlag)
		}

		views, meta, err := Queue.List(filter)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		out := cmd.OutOrStdout()
		if listJSONFlag {
			if views == nil {
				views = []models.TaskView{}
			}
			return writeJSON(out, struct {
				Tasks    []models.TaskView    `json:"tasks"`
				Metadata models.QueueMetadata `json:"metadata"`
			}{views, meta})
		}

		if len(views) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			fmt.Fprintln(out, summaryLine(meta))
			return nil
		}
		fmt.Fprintln(out, renderTaskTable(views))
		fmt.Fprintln(out, summaryLine(meta))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a single task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}
		v, err := Queue.Get(args[0])
		if err != nil {
			return fmt.Errorf("getting task: %w", err)
		}
		out := cmd.OutOrStdout()
		if listJSONFlag {
			return writeJSON(out, v)
		}
		printTask(out, "Showing", v.Task)
		if v.Task.Description != "" {
			fmt.Fprintf(out, "\n%s\n", v.Task.Description)
		}
		if flags := viewFlags(v); flags != "" {
			fmt.Fprintf(out, "\n  Flags:    %s\n", flags)
		}
		if v.Task.Notes != "" {
			fmt.Fprintf(out, "\nNotes:\n%s\n", v.Task.Notes)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatusFlag, "status", "", "Filter by status (pending, in-progress, blocked, failed, completed)")
	listCmd.Flags().StringVar(&listRoleFlag, "role", "", "Filter by role (architect, developer, tester, analyst, coordinator)")
	listCmd.Flags().StringVar(&listLabelFlag, "label", "", "Filter by label")
	listCmd.Flags().BoolVar(&listJSONFlag, "json", false, "Output as JSON")
	showCmd.Flags().BoolVar(&listJSONFlag, "json", false, "Output as JSON")
	_ = listCmd.RegisterFlagCompletionFunc("status", completeStatuses)
	_ = listCmd.RegisterFlagCompletionFunc("role", completeRoles)
	showCmd.ValidArgsFunction = completeTaskIDs()
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}
