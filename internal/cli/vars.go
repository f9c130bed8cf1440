package cli

import (
	"log/slog"

	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/internal/observability"
	"github.com/valter-silva-au/opq/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	Queue       core.QueueManager
	AlertEngine observability.AlertEngine

	// CorpusSource is nil when the corpus backend is "none".
	CorpusSource core.CorpusSource
	CorpusConfig models.CorpusConfig
	CorpusLimit  int

	LogLevel *slog.LevelVar
)

// Paths, set during app initialization in app.go.
var (
	BasePath   string
	ReportPath string
)
