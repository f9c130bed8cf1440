// Package corpus reads the historical knowledge corpus mined by the feedback
// synthesizer. Three backends are supported: a YAML records file, a SQLite
// database and a PostgreSQL database, each exposing a "records" collection.
package corpus

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/pkg/models"
)

// New returns the source configured by cfg. Relative paths resolve against
// baseDir. The none backend yields a nil source, which disables the
// corpus-derived rules.
func New(cfg models.CorpusConfig, baseDir string) (core.CorpusSource, error) {
	switch cfg.Backend {
	case "", models.CorpusNone:
		return nil, nil
	case models.CorpusFile:
		return NewFileSource(resolvePath(cfg.Path, baseDir)), nil
	case models.CorpusSQLite:
		return NewSQLiteSource(resolvePath(cfg.Path, baseDir)), nil
	case models.CorpusPostgres:
		return NewPostgresSource(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unknown corpus backend %q", cfg.Backend)
	}
}

func resolvePath(p, baseDir string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// newestFirst orders records by creation time, newest first, breaking ties
// by id so the sample is deterministic.
func newestFirst(records []models.CorpusRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
