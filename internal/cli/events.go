package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/internal/observability"
	"github.com/valter-silva-au/opq/pkg/models"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect and append to the event log",
}

var (
	eventsTypeFlag  string
	eventsRoleFlag  string
	eventsSinceFlag string
	eventsJSONFlag  bool
)

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events, oldest first",
	Long: `List events from the log, oldest first.

Use --since with a trailing window such as 7d or 12h, and --type / --role to
narrow the output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		filter := observability.EventFilter{
			Type: models.EventType(eventsTypeFlag),
			Role: models.Role(eventsRoleFlag),
		}
		if eventsSinceFlag != "" {
			window, err := core.ParseWindow(eventsSinceFlag)
			if err != nil {
				return err
			}
			since := time.Now().UTC().Add(-window)
			filter.Since = &since
		}

		events, meta, err := Queue.Events(filter)
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}

		out := cmd.OutOrStdout()
		if eventsJSONFlag {
			if events == nil {
				events = []models.EventEntry{}
			}
			return writeJSON(out, struct {
				Events   []models.EventEntry  `json:"events"`
				Metadata models.EventMetadata `json:"metadata"`
			}{events, meta})
		}

		if len(events) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}
		for _, e := range events {
			role := string(e.Role)
			if role == "" {
				role = "-"
			}
			fmt.Fprintf(out, "%s  %-14s %-12s %s\n",
				e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.Type, role, describeEvent(e))
		}
		fmt.Fprintf(out, "\n%d of %d event(s)\n", len(events), meta.TotalEvents)
		return nil
	},
}

func describeEvent(e models.EventEntry) string {
	if e.Payload != nil && e.Payload.Task != nil {
		return fmt.Sprintf("%s %s", e.Payload.Task.TaskID, e.Payload.Task.Title)
	}
	return e.Detail
}

var (
	recordRoleFlag   string
	recordDetailFlag string
	recordSourceFlag string
	recordMetaFlag   []string
)

var eventsRecordCmd = &cobra.Command{
	Use:   "record <type>",
	Short: "Append an observed signal to the event log",
	Long: `Append an externally observed signal to the event log, for example a
test failure reported by CI:

  opq events record test-failure --source ci --detail "TestLogin flaked" --meta job=1234

Recorded test-failure events feed the flakiness rule of "opq feedback".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		attrs, err := parseKeyValues(recordMetaFlag)
		if err != nil {
			return err
		}
		event := models.EventEntry{
			Type:   models.EventType(strings.TrimSpace(args[0])),
			Role:   models.Role(recordRoleFlag),
			Detail: recordDetailFlag,
		}
		if recordSourceFlag != "" || len(attrs) > 0 {
			event.Payload = &models.EventPayload{
				Signal: &models.SignalPayload{Source: recordSourceFlag, Attrs: attrs},
			}
		}

		stored, err := Queue.RecordEvent(event)
		if err != nil {
			return fmt.Errorf("recording event: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s event %s\n", stored.Type, stored.ID)
		return nil
	},
}

func init() {
	eventsListCmd.Flags().StringVar(&eventsTypeFlag, "type", "", "Filter by event type")
	eventsListCmd.Flags().StringVar(&eventsRoleFlag, "role", "", "Filter by role")
	eventsListCmd.Flags().StringVar(&eventsSinceFlag, "since", "", "Only events within this trailing window (e.g. 7d, 12h)")
	eventsListCmd.Flags().BoolVar(&eventsJSONFlag, "json", false, "Output as JSON")

	eventsRecordCmd.Flags().StringVar(&recordRoleFlag, "role", "", "Role associated with the signal")
	eventsRecordCmd.Flags().StringVar(&recordDetailFlag, "detail", "", "Free-text detail")
	eventsRecordCmd.Flags().StringVar(&recordSourceFlag, "source", "", "Where the signal came from (e.g. ci)")
	eventsRecordCmd.Flags().StringSliceVar(&recordMetaFlag, "meta", nil, "Extra key=value attributes")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsRecordCmd)
	rootCmd.AddCommand(eventsCmd)
}
