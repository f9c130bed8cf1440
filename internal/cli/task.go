package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/opq/pkg/models"
)

// taskFieldFlags registers the flags shared by add and update.
func taskFieldFlags(fs *pflag.FlagSet) {
	fs.String("description", "", "Longer description")
	fs.String("role", "", "Role (architect, developer, tester, analyst, coordinator)")
	fs.String("priority", "", "Priority (high, medium, low)")
	fs.String("status", "", "Status (pending, in-progress, blocked, failed, completed)")
	fs.String("project", "", "Project reference")
	fs.String("due", "", "Due date (RFC3339, 2006-01-02, 2006-01-02T15:04, or +48h / +3d)")
	fs.Float64("sla", 0, "SLA in hours")
	fs.StringSlice("depends-on", nil, "Comma-separated ids of tasks this task depends on")
	fs.StringSlice("labels", nil, "Comma-separated labels")
	fs.String("notes", "", "Note to record on the task")
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task to the queue",
	Long: `Add a task to the queue.

Role defaults to architect, priority to medium and status to pending.
Dependencies may reference ids that do not exist yet; such a task is
reported as blocked until the dependency exists and is completed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		fs := cmd.Flags()
		in := models.TaskInput{Title: args[0]}
		in.ID, _ = fs.GetString("id")
		in.Description, _ = fs.GetString("description")
		role, _ := fs.GetString("role")
		in.Role = models.Role(role)
		priority, _ := fs.GetString("priority")
		in.Priority = models.Priority(priority)
		status, _ := fs.GetString("status")
		in.Status = models.TaskStatus(status)
		in.Project, _ = fs.GetString("project")
		in.Due, _ = fs.GetString("due")
		if fs.Changed("sla") {
			sla, _ := fs.GetFloat64("sla")
			in.SLAHours = &sla
		}
		in.Dependencies, _ = fs.GetStringSlice("depends-on")
		in.Labels, _ = fs.GetStringSlice("labels")
		in.Notes, _ = fs.GetString("notes")

		task, err := Queue.Add(in)
		if err != nil {
			return fmt.Errorf("adding task: %w", err)
		}
		printTask(cmd.OutOrStdout(), "Added", task)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update fields of a task",
	Long: `Update only the fields given as flags. Notes are appended with a
timestamp, never replaced. Pass --due "" to clear the due date and --sla 0
to clear the SLA. Setting --status completed stamps the completion time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		patch, err := patchFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		if len(patch.Fields()) == 0 {
			return fmt.Errorf("nothing to update: pass at least one field flag")
		}

		task, err := Queue.Update(args[0], patch)
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		printTask(cmd.OutOrStdout(), "Updated", task)
		return nil
	},
}

func patchFromFlags(fs *pflag.FlagSet) (models.TaskPatch, error) {
	var patch models.TaskPatch
	str := func(name string) *string {
		if !fs.Changed(name) {
			return nil
		}
		v, _ := fs.GetString(name)
		return &v
	}

	patch.Title = str("title")
	patch.Description = str("description")
	patch.Project = str("project")
	patch.Due = str("due")
	if v := str("role"); v != nil {
		r := models.Role(*v)
		patch.Role = &r
	}
	if v := str("priority"); v != nil {
		p := models.Priority(*v)
		patch.Priority = &p
	}
	if v := str("status"); v != nil {
		s := models.TaskStatus(*v)
		patch.Status = &s
	}
	if fs.Changed("sla") {
		sla, err := fs.GetFloat64("sla")
		if err != nil {
			return patch, fmt.Errorf("reading --sla: %w", err)
		}
		patch.SLAHours = &sla
	}
	if fs.Changed("depends-on") {
		deps, _ := fs.GetStringSlice("depends-on")
		if deps == nil {
			deps = []string{}
		}
		patch.Dependencies = deps
	}
	if fs.Changed("labels") {
		labels, _ := fs.GetStringSlice("labels")
		if labels == nil {
			labels = []string{}
		}
		patch.Labels = labels
	}
	patch.Notes, _ = fs.GetString("notes")
	return patch, nil
}

var completeNotesFlag string

var completeCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task completed",
	Long: `Mark a task completed and stamp the completion time. Completing an
already completed task refreshes the timestamp.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}
		task, err := Queue.Complete(args[0], completeNotesFlag)
		if err != nil {
			return fmt.Errorf("completing task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Completed task %s (%s) at %s\n",
			task.ID, task.Title, task.CompletedAt.UTC().Format("2006-01-02 15:04 UTC"))
		return nil
	},
}

var clearYesFlag bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every task from the queue",
	Long: `Remove every task from the queue. The event log is kept and records
how many tasks were removed. Requires --yes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}
		if !clearYesFlag {
			return fmt.Errorf("refusing to clear the queue without --yes")
		}
		n, err := Queue.Clear()
		if err != nil {
			return fmt.Errorf("clearing queue: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d task(s).\n", n)
		return nil
	},
}

func init() {
	taskFieldFlags(addCmd.Flags())
	addCmd.Flags().String("id", "", "Explicit task id (generated when omitted)")
	taskFieldFlags(updateCmd.Flags())
	updateCmd.Flags().String("title", "", "Task title")

	completeCmd.Flags().StringVar(&completeNotesFlag, "notes", "", "Completion note")
	clearCmd.Flags().BoolVar(&clearYesFlag, "yes", false, "Confirm removal of every task")

	registerTaskFieldCompletions(addCmd)
	registerTaskFieldCompletions(updateCmd)
	updateCmd.ValidArgsFunction = completeTaskIDs()
	completeCmd.ValidArgsFunction = completeTaskIDs(models.StatusCompleted)

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(clearCmd)
}
