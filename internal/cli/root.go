package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/internal/logger"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:   "opq",
	Short: "Operator task queue with an automated feedback pipeline",
	Long: `opq (operator queue) tracks work items with dependencies, due dates and
SLAs, keeps an append-only log of everything that happens to them, and mines
recent test failures and a historical knowledge corpus for new work.

Every command runs once and exits. State lives in two YAML documents in the
opq home directory (OPQ_HOME, or the nearest directory with a .opqconfig).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevelFlag != "" && LogLevel != nil {
			LogLevel.Set(logger.ParseLevel(logLevelFlag))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "opq %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
