// Package internal provides the App struct that wires all components of the
// operator queue together and initializes the CLI layer.
package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/opq/internal/cli"
	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/internal/corpus"
	"github.com/valter-silva-au/opq/internal/logger"
	"github.com/valter-silva-au/opq/internal/observability"
	"github.com/valter-silva-au/opq/internal/storage"
	"github.com/valter-silva-au/opq/pkg/models"
)

// HomeEnvVar overrides the opq home directory.
const HomeEnvVar = "OPQ_HOME"

// App holds all service dependencies for the operator queue.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config

	// Logging
	Logger   *slog.Logger
	LogLevel *slog.LevelVar

	// Storage layer
	Tasks  *storage.TaskFile
	Events *storage.EventFile
	Report *storage.ReportFile
	Lock   *storage.FileLock

	// Knowledge corpus; nil when the backend is "none".
	Corpus core.CorpusSource

	// Core services
	Synth *core.FeedbackSynthesizer
	Queue *core.QueueService

	// Observability
	AlertEngine observability.AlertEngine
}

// NewApp creates and wires all components of the operator queue.
// basePath is the opq home directory where the documents are stored
// (OPQ_HOME or the nearest directory containing .opqconfig).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	app.Config = cfg

	// --- Logging ---
	app.LogLevel = new(slog.LevelVar)
	app.LogLevel.Set(logger.ParseLevel(cfg.Log.Level))
	app.Logger = logger.Setup(app.LogLevel, logger.ParseFormat(cfg.Log.Format))
	slog.SetDefault(app.Logger)

	// --- Storage ---
	app.Tasks = storage.NewTaskFile(resolvePath(basePath, cfg.Paths.Tasks))
	app.Events = storage.NewEventFile(resolvePath(basePath, cfg.Paths.Events))
	app.Report = storage.NewReportFile(resolvePath(basePath, cfg.Paths.Report))
	app.Lock = storage.NewFileLock(filepath.Join(basePath, storage.LockFileName))

	// --- Knowledge corpus ---
	app.Corpus, err = corpus.New(cfg.Corpus, basePath)
	if err != nil {
		return nil, fmt.Errorf("configuring knowledge corpus: %w", err)
	}

	// --- Core services ---
	app.Synth = core.NewFeedbackSynthesizer(
		core.FeedbackRulesFromConfig(cfg.Feedback),
		app.Corpus,
		app.Logger.With("component", "feedback"),
		nil,
	)
	app.Queue = core.NewQueueService(core.QueueServiceConfig{
		Tasks:       app.Tasks,
		Events:      app.Events,
		Lock:        app.Lock,
		Synthesizer: app.Synth,
		Report:      app.Report,
		Logger:      app.Logger.With("component", "queue"),
	})

	// --- Observability ---
	app.AlertEngine = observability.NewAlertEngine(core.AlertThresholdsFromConfig(cfg.Alerts))

	// --- Wire CLI ---
	cli.Queue = app.Queue
	cli.AlertEngine = app.AlertEngine
	cli.CorpusSource = app.Corpus
	cli.CorpusConfig = cfg.Corpus
	cli.CorpusLimit = cfg.Feedback.CorpusLimit
	cli.LogLevel = app.LogLevel
	cli.BasePath = basePath
	cli.ReportPath = app.Report.Path()

	app.Logger.Debug("opq initialized",
		"base_path", basePath,
		"tasks", app.Tasks.Path(),
		"events", app.Events.Path(),
		"corpus", string(cfg.Corpus.Backend))

	return app, nil
}

func resolvePath(basePath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, p)
}

// ResolveBasePath determines the opq home directory. It checks the OPQ_HOME
// env var, then walks up from the current directory looking for .opqconfig,
// and finally falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
