package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionInstall bool

// shellCompletion describes how to generate and install completions for one
// shell. installDir is relative to the user's home; empty means --install is
// unsupported.
type shellCompletion struct {
	generate   func(w io.Writer) error
	loadHint   string
	installDir []string
	fileName   string
}

var shellCompletions = map[string]shellCompletion{
	"bash": {
		generate:   func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
		loadHint:   `eval "$(opq completion bash)"`,
		installDir: []string{".local", "share", "bash-completion", "completions"},
		fileName:   "opq",
	},
	"zsh": {
		generate:   func(w io.Writer) error { return rootCmd.GenZshCompletion(w) },
		loadHint:   `eval "$(opq completion zsh)"`,
		installDir: []string{".local", "share", "zsh", "site-functions"},
		fileName:   "_opq",
	},
	"fish": {
		generate:   func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
		loadHint:   "opq completion fish | source",
		installDir: []string{".config", "fish", "completions"},
		fileName:   "opq.fish",
	},
	"powershell": {
		generate: func(w io.Writer) error { return rootCmd.GenPowerShellCompletionWithDesc(w) },
		loadHint: "opq completion powershell | Out-String | Invoke-Expression",
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for opq",
	Long: `Set up shell tab-completions for opq commands, flags, task ids and
enum values.

Supported shells: bash, zsh, fish, powershell

  opq completion bash --install
  eval "$(opq completion zsh)"`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions into your shell's user completion directory")

	// Replace Cobra's default completion command with ours.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	sc, ok := shellCompletions[args[0]]
	if !ok {
		return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", args[0])
	}

	if completionInstall {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("detecting home directory: %w", err)
		}
		target, err := installCompletion(sc, home)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s completions installed to %s\n", args[0], target)
		return nil
	}

	// Hints go to stderr so the script can be piped or eval'd.
	fmt.Fprintf(cmd.ErrOrStderr(), "# To load completions in your current session:\n#   %s\n", sc.loadHint)
	return sc.generate(cmd.OutOrStdout())
}

// installCompletion writes the completion script below home and returns the
// path written.
func installCompletion(sc shellCompletion, home string) (string, error) {
	if len(sc.installDir) == 0 {
		return "", fmt.Errorf("automatic install is not supported for this shell; add %q to your profile", sc.loadHint)
	}
	dir := filepath.Join(append([]string{home}, sc.installDir...)...)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating completion directory: %w", err)
	}
	target := filepath.Join(dir, sc.fileName)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("creating completion file %s: %w", target, err)
	}
	writeErr := sc.generate(f)
	closeErr := f.Close()
	if writeErr != nil {
		return "", writeErr
	}
	if closeErr != nil {
		return "", fmt.Errorf("closing completion file %s: %w", target, closeErr)
	}
	return target, nil
}
