package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewConfigurationManager(t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.Paths != def.Paths {
		t.Errorf("paths = %+v, want %+v", cfg.Paths, def.Paths)
	}
	if cfg.Feedback != def.Feedback {
		t.Errorf("feedback = %+v, want %+v", cfg.Feedback, def.Feedback)
	}
	if cfg.Corpus.Backend != models.CorpusNone {
		t.Errorf("corpus backend = %q, want none", cfg.Corpus.Backend)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := writeConfig(t, `log:
  level: DEBUG
  format: json
feedback:
  window_days: 14
  corpus_timeout: 2s
corpus:
  backend: SQLite
  path: corpus.db
alerts:
  max_pending: 5
`)
	cfg, err := NewConfigurationManager(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Feedback.WindowDays != 14 || cfg.Feedback.CorpusTimeout != 2*time.Second {
		t.Errorf("feedback = %+v", cfg.Feedback)
	}
	if cfg.Feedback.FlakyThreshold != DefaultFeedbackRules().FlakyThreshold {
		t.Errorf("unset keys should keep defaults, flaky_threshold = %d", cfg.Feedback.FlakyThreshold)
	}
	if cfg.Corpus.Backend != models.CorpusSQLite || cfg.Corpus.Path != "corpus.db" {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
	if cfg.Alerts.MaxPending != 5 {
		t.Errorf("max pending = %d, want 5", cfg.Alerts.MaxPending)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, "feedback:\n  flaky_threshold: 4\n")
	t.Setenv("OPQ_FEEDBACK_FLAKY_THRESHOLD", "9")
	t.Setenv("OPQ_CORPUS_BACKEND", "postgres")
	t.Setenv("OPQ_CORPUS_DSN", "postgres://localhost/knowledge")

	cfg, err := NewConfigurationManager(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Feedback.FlakyThreshold != 9 {
		t.Errorf("flaky threshold = %d, want env value 9", cfg.Feedback.FlakyThreshold)
	}
	if cfg.Corpus.Backend != models.CorpusPostgres || cfg.Corpus.DSN == "" {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := writeConfig(t, "feedback: [unclosed\n")
	if _, err := NewConfigurationManager(dir).Load(); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestValidateConfig_ReportsEveryViolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "loud"
	cfg.Paths.Events = ""
	cfg.Feedback.TopicThreshold = 0
	cfg.Corpus.Backend = models.CorpusFile
	cfg.Alerts.StaleDays = -1

	err := ValidateConfig(cfg)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ValidateConfig() error = %v, want ErrValidation", err)
	}
	for _, want := range []string{"log.level", "paths.events", "feedback.topic_threshold", "corpus.path", "alerts.stale_days"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateConfig_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Corpus.Backend = "mongo"
	if err := ValidateConfig(cfg); err == nil || !strings.Contains(err.Error(), "corpus.backend") {
		t.Errorf("ValidateConfig() error = %v", err)
	}
}

func TestConfigurationManager_ValidateConfigMatchesPackageFunc(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())
	if err := cm.ValidateConfig(DefaultConfig()); err != nil {
		t.Errorf("ValidateConfig(defaults) error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Log.Level = "loud"
	got, want := cm.ValidateConfig(cfg), ValidateConfig(cfg)
	if got == nil || want == nil || got.Error() != want.Error() {
		t.Errorf("manager error = %v, package error = %v", got, want)
	}
	if err := cm.ValidateConfig(nil); err == nil {
		t.Error("ValidateConfig(nil) should fail")
	}
}

func TestRulesFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	if got := FeedbackRulesFromConfig(cfg.Feedback); got != DefaultFeedbackRules() {
		t.Errorf("rules = %+v, want defaults", got)
	}
	th := AlertThresholdsFromConfig(cfg.Alerts)
	if th.BlockedHours != 24 || th.StaleDays != 3 || th.MaxPending != 20 {
		t.Errorf("thresholds = %+v", th)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"0d", 0, false},
		{"36h", 36 * time.Hour, false},
		{" 90m ", 90 * time.Minute, false},
		{"-1d", 0, true},
		{"-2h", 0, true},
		{"7xd", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindow(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ParseWindow(%q) error = %v, want ErrValidation", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseWindow(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
}
