package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/pkg/models"
)

func TestInstallCompletion(t *testing.T) {
	home := t.TempDir()

	target, err := installCompletion(shellCompletions["fish"], home)
	if err != nil {
		t.Fatalf("installCompletion() error = %v", err)
	}
	if want := filepath.Join(home, ".config", "fish", "completions", "opq.fish"); target != want {
		t.Errorf("target = %q, want %q", target, want)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "opq") {
		t.Error("completion script does not mention opq")
	}
}

func TestInstallCompletion_Unsupported(t *testing.T) {
	if _, err := installCompletion(shellCompletions["powershell"], t.TempDir()); err == nil {
		t.Fatal("powershell install should be unsupported")
	}
}

func TestCompletionCommand(t *testing.T) {
	out := mustRunCLI(t, "completion", "bash")
	if !strings.Contains(out, "bash completion") {
		t.Errorf("bash completion output = %.200q", out)
	}
	if _, err := runCLI(t, "completion", "tcsh"); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}

func TestCompleteTaskIDs(t *testing.T) {
	setupCLI(t, nil)
	mustRunCLI(t, "add", "Design schema", "--id", "T-aa")
	mustRunCLI(t, "add", "Ship it", "--id", "T-ab")
	mustRunCLI(t, "add", "Other", "--id", "X-1")
	mustRunCLI(t, "complete", "T-ab")

	got, directive := completeTaskIDs(models.StatusCompleted)(&cobra.Command{}, nil, "T-")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v", directive)
	}
	if len(got) != 1 || !strings.HasPrefix(got[0], "T-aa\tpending: Design schema") {
		t.Errorf("completions = %v", got)
	}

	got, _ = completeTaskIDs()(&cobra.Command{}, nil, "")
	if len(got) != 3 {
		t.Errorf("unfiltered completions = %v", got)
	}

	if got, _ := completeTaskIDs()(&cobra.Command{}, []string{"T-aa"}, ""); got != nil {
		t.Errorf("completions after first arg = %v, want none", got)
	}
}

func TestEnumCompletions(t *testing.T) {
	roles, _ := completeRoles(nil, nil, "")
	if len(roles) != len(models.Roles) {
		t.Errorf("roles = %v", roles)
	}
	statuses, _ := completeStatuses(nil, nil, "")
	if len(statuses) != len(models.Statuses) {
		t.Errorf("statuses = %v", statuses)
	}
	priorities, _ := completePriorities(nil, nil, "")
	if len(priorities) != len(models.Priorities) {
		t.Errorf("priorities = %v", priorities)
	}
}
