// Package core contains the business logic for opq: the task store and its
// dependency resolver, the feedback synthesizer, the queue service that
// fronts them, and configuration loading.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/opq/internal/observability"
	"github.com/valter-silva-au/opq/pkg/models"
)

// ConfigFileName is the name of the configuration file in the opq home.
const ConfigFileName = ".opqconfig"

// EnvPrefix prefixes environment overrides, e.g. OPQ_CORPUS_BACKEND.
const EnvPrefix = "OPQ"

// ConfigurationManager loads and validates the .opqconfig file.
type ConfigurationManager interface {
	Load() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files and OPQ_* environment overrides.
type viperConfigManager struct {
	// basePath is the directory where .opqconfig resides.
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .opqconfig from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a Config populated with the standard defaults.
func DefaultConfig() *models.Config {
	rules := DefaultFeedbackRules()
	alerts := observability.DefaultAlertThresholds()
	return &models.Config{
		Log: models.LogConfig{Level: "info", Format: "text"},
		Paths: models.PathsConfig{
			Tasks:  "queue.yaml",
			Events: "events.yaml",
			Report: "feedback-report.md",
		},
		Feedback: models.FeedbackConfig{
			WindowDays:     rules.WindowDays,
			FlakyThreshold: rules.FlakyThreshold,
			TopicThreshold: rules.TopicThreshold,
			ErrorThreshold: rules.ErrorThreshold,
			CorpusLimit:    rules.CorpusLimit,
			CorpusTimeout:  rules.CorpusTimeout,
		},
		Corpus: models.CorpusConfig{Backend: models.CorpusNone},
		Alerts: models.AlertConfig{
			BlockedHours: alerts.BlockedHours,
			StaleDays:    alerts.StaleDays,
			MaxPending:   alerts.MaxPending,
		},
	}
}

// Load reads .opqconfig from the base path. A missing file yields the
// defaults, still subject to environment overrides.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default for AutomaticEnv to see it during Unmarshal.
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("paths.tasks", def.Paths.Tasks)
	v.SetDefault("paths.events", def.Paths.Events)
	v.SetDefault("paths.report", def.Paths.Report)
	v.SetDefault("feedback.window_days", def.Feedback.WindowDays)
	v.SetDefault("feedback.flaky_threshold", def.Feedback.FlakyThreshold)
	v.SetDefault("feedback.topic_threshold", def.Feedback.TopicThreshold)
	v.SetDefault("feedback.error_threshold", def.Feedback.ErrorThreshold)
	v.SetDefault("feedback.corpus_limit", def.Feedback.CorpusLimit)
	v.SetDefault("feedback.corpus_timeout", def.Feedback.CorpusTimeout.String())
	v.SetDefault("corpus.backend", string(def.Corpus.Backend))
	v.SetDefault("corpus.path", "")
	v.SetDefault("corpus.dsn", "")
	v.SetDefault("alerts.blocked_hours", def.Alerts.BlockedHours)
	v.SetDefault("alerts.stale_days", def.Alerts.StaleDays)
	v.SetDefault("alerts.max_pending", def.Alerts.MaxPending)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Corpus.Backend = models.CorpusBackend(strings.ToLower(string(cfg.Corpus.Backend)))
	return cfg, nil
}

// ValidateConfig delegates to the package-level ValidateConfig.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	return ValidateConfig(cfg)
}

// ValidateConfig checks every field and reports all violations at once.
func ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be text or json", cfg.Log.Format))
	}

	if cfg.Paths.Tasks == "" {
		errs = append(errs, "paths.tasks must not be empty")
	}
	if cfg.Paths.Events == "" {
		errs = append(errs, "paths.events must not be empty")
	}
	if cfg.Paths.Report == "" {
		errs = append(errs, "paths.report must not be empty")
	}

	fb := cfg.Feedback
	if fb.WindowDays <= 0 {
		errs = append(errs, fmt.Sprintf("feedback.window_days must be positive, got %d", fb.WindowDays))
	}
	if fb.FlakyThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("feedback.flaky_threshold must be positive, got %d", fb.FlakyThreshold))
	}
	if fb.TopicThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("feedback.topic_threshold must be positive, got %d", fb.TopicThreshold))
	}
	if fb.ErrorThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("feedback.error_threshold must be positive, got %d", fb.ErrorThreshold))
	}
	if fb.CorpusLimit <= 0 {
		errs = append(errs, fmt.Sprintf("feedback.corpus_limit must be positive, got %d", fb.CorpusLimit))
	}
	if fb.CorpusTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("feedback.corpus_timeout must be positive, got %s", fb.CorpusTimeout))
	}

	switch cfg.Corpus.Backend {
	case models.CorpusNone:
	case models.CorpusFile, models.CorpusSQLite:
		if cfg.Corpus.Path == "" {
			errs = append(errs, fmt.Sprintf("corpus.path is required for the %s backend", cfg.Corpus.Backend))
		}
	case models.CorpusPostgres:
		if cfg.Corpus.DSN == "" {
			errs = append(errs, "corpus.dsn is required for the postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("corpus.backend %q is invalid, must be one of: none, file, sqlite, postgres", cfg.Corpus.Backend))
	}

	if cfg.Alerts.BlockedHours < 0 {
		errs = append(errs, fmt.Sprintf("alerts.blocked_hours must be non-negative, got %d", cfg.Alerts.BlockedHours))
	}
	if cfg.Alerts.StaleDays < 0 {
		errs = append(errs, fmt.Sprintf("alerts.stale_days must be non-negative, got %d", cfg.Alerts.StaleDays))
	}
	if cfg.Alerts.MaxPending < 0 {
		errs = append(errs, fmt.Sprintf("alerts.max_pending must be non-negative, got %d", cfg.Alerts.MaxPending))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: config validation failed:\n  - %s", ErrValidation, strings.Join(errs, "\n  - "))
	}
	return nil
}

// FeedbackRulesFromConfig converts the feedback section to synthesizer rules.
func FeedbackRulesFromConfig(cfg models.FeedbackConfig) FeedbackRules {
	return FeedbackRules{
		WindowDays:     cfg.WindowDays,
		FlakyThreshold: cfg.FlakyThreshold,
		TopicThreshold: cfg.TopicThreshold,
		ErrorThreshold: cfg.ErrorThreshold,
		CorpusLimit:    cfg.CorpusLimit,
		CorpusTimeout:  cfg.CorpusTimeout,
	}
}

// AlertThresholdsFromConfig converts the alerts section to engine thresholds.
func AlertThresholdsFromConfig(cfg models.AlertConfig) observability.AlertThresholds {
	return observability.AlertThresholds{
		BlockedHours: cfg.BlockedHours,
		StaleDays:    cfg.StaleDays,
		MaxPending:   cfg.MaxPending,
	}
}

// ParseWindow parses a trailing window such as "7d", "36h" or "90m".
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days < 0 {
			return 0, validationErrorf("invalid window %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, validationErrorf("invalid window %q", s)
	}
	return d, nil
}
