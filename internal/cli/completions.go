package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/pkg/models"
)

// completeTaskIDs returns a completion function that lists task IDs,
// optionally filtered to exclude certain statuses.
func completeTaskIDs(excludeStatuses ...models.TaskStatus) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if Queue == nil || len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		views, _, err := Queue.List(core.ListFilter{})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		exclude := make(map[models.TaskStatus]bool)
		for _, s := range excludeStatuses {
			exclude[s] = true
		}

		var ids []string
		for _, v := range views {
			if exclude[v.Task.Status] {
				continue
			}
			if toComplete == "" || strings.HasPrefix(v.Task.ID, toComplete) {
				// Title as description for better UX.
				ids = append(ids, v.Task.ID+"\t"+string(v.Task.Status)+": "+v.Task.Title)
			}
		}

		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeRoles returns the valid role values.
func completeRoles(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, len(models.Roles))
	for i, r := range models.Roles {
		out[i] = string(r)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completePriorities returns a completion function for priority values.
func completePriorities(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"high\tAddress first",
		"medium\tDefault",
		"low\tWhen time allows",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeStatuses returns a completion function for task status values.
func completeStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"pending\tQueued, not started",
		"in-progress\tActively being worked on",
		"blocked\tWaiting on something",
		"failed\tAttempted and failed",
		"completed\tDone",
	}, cobra.ShellCompDirectiveNoFileComp
}

// registerTaskFieldCompletions registers enum flag completions on a command
// that carries the task field flags.
func registerTaskFieldCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("role", completeRoles)
	_ = cmd.RegisterFlagCompletionFunc("priority", completePriorities)
	_ = cmd.RegisterFlagCompletionFunc("status", completeStatuses)
}
