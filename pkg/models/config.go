package models

import "time"

// CorpusBackend selects where the knowledge corpus is read from.
type CorpusBackend string

const (
	CorpusNone     CorpusBackend = "none"
	CorpusFile     CorpusBackend = "file"
	CorpusSQLite   CorpusBackend = "sqlite"
	CorpusPostgres CorpusBackend = "postgres"
)

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PathsConfig locates the persisted documents. Relative paths resolve
// against the opq home directory.
type PathsConfig struct {
	Tasks  string `yaml:"tasks" mapstructure:"tasks"`
	Events string `yaml:"events" mapstructure:"events"`
	Report string `yaml:"report" mapstructure:"report"`
}

// FeedbackConfig tunes the feedback synthesizer rules.
type FeedbackConfig struct {
	WindowDays     int           `yaml:"window_days" mapstructure:"window_days"`
	FlakyThreshold int           `yaml:"flaky_threshold" mapstructure:"flaky_threshold"`
	TopicThreshold int           `yaml:"topic_threshold" mapstructure:"topic_threshold"`
	ErrorThreshold int           `yaml:"error_threshold" mapstructure:"error_threshold"`
	CorpusLimit    int           `yaml:"corpus_limit" mapstructure:"corpus_limit"`
	CorpusTimeout  time.Duration `yaml:"corpus_timeout" mapstructure:"corpus_timeout"`
}

// CorpusConfig locates the knowledge corpus.
type CorpusConfig struct {
	Backend CorpusBackend `yaml:"backend" mapstructure:"backend"`
	Path    string        `yaml:"path,omitempty" mapstructure:"path"`
	DSN     string        `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// AlertConfig configures when queue alerts fire.
type AlertConfig struct {
	BlockedHours int `yaml:"blocked_hours" mapstructure:"blocked_hours"`
	StaleDays    int `yaml:"stale_days" mapstructure:"stale_days"`
	MaxPending   int `yaml:"max_pending" mapstructure:"max_pending"`
}

// Config holds all settings read from .opqconfig via Viper.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Feedback FeedbackConfig `yaml:"feedback" mapstructure:"feedback"`
	Corpus   CorpusConfig   `yaml:"corpus" mapstructure:"corpus"`
	Alerts   AlertConfig    `yaml:"alerts" mapstructure:"alerts"`
}
