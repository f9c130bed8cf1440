package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/internal/observability"
	"github.com/valter-silva-au/opq/internal/storage"
	"github.com/valter-silva-au/opq/pkg/models"
)

// testEnv wires the package-level services to a queue stored in a temp dir.
type testEnv struct {
	dir   string
	queue *core.QueueService
}

func setupCLI(t *testing.T, corpusSrc core.CorpusSource) *testEnv {
	t.Helper()
	dir := t.TempDir()

	rules := core.DefaultFeedbackRules()
	queue := core.NewQueueService(core.QueueServiceConfig{
		Tasks:       storage.NewTaskFile(filepath.Join(dir, "queue.yaml")),
		Events:      storage.NewEventFile(filepath.Join(dir, "events.yaml")),
		Lock:        storage.NewFileLock(filepath.Join(dir, storage.LockFileName)),
		Synthesizer: core.NewFeedbackSynthesizer(rules, corpusSrc, nil, nil),
		Report:      storage.NewReportFile(filepath.Join(dir, "feedback-report.md")),
	})

	prevQueue, prevAlerts, prevCorpus, prevCfg, prevBase, prevReport, prevLimit :=
		Queue, AlertEngine, CorpusSource, CorpusConfig, BasePath, ReportPath, CorpusLimit
	t.Cleanup(func() {
		Queue, AlertEngine, CorpusSource, CorpusConfig, BasePath, ReportPath, CorpusLimit =
			prevQueue, prevAlerts, prevCorpus, prevCfg, prevBase, prevReport, prevLimit
	})

	Queue = queue
	AlertEngine = observability.NewAlertEngine(observability.DefaultAlertThresholds())
	CorpusSource = corpusSrc
	CorpusLimit = rules.CorpusLimit
	BasePath = dir
	ReportPath = filepath.Join(dir, "feedback-report.md")
	return &testEnv{dir: dir, queue: queue}
}

// resetFlags returns every flag in the tree to its default. Cobra commands
// are package globals, so values would otherwise leak between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), err
}

func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("opq %v: %v\n%s", args, err, out)
	}
	return out
}

type listOutput struct {
	Tasks    []models.TaskView    `json:"tasks"`
	Metadata models.QueueMetadata `json:"metadata"`
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decoding JSON output: %v\n%s", err, s)
	}
	return v
}
