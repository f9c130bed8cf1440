package corpus

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/valter-silva-au/opq/pkg/models"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

type dialect string

const (
	dialectSQLite   dialect = "sqlite3"
	dialectPostgres dialect = "postgres"
)

func (d dialect) dir() string {
	if d == dialectSQLite {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

// migrate applies the records schema. Only the import path writes to a
// corpus database, so only it migrates.
func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(d)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, d.dir()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get migration version: %w", err)
	}
	slog.Debug("corpus migrations completed", "dialect", string(d), "version", version)
	return nil
}

// Import loads records into the backend configured by cfg. It returns the
// number of records written.
func Import(ctx context.Context, cfg models.CorpusConfig, baseDir string, records []models.CorpusRecord) (int, error) {
	for _, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("importing corpus: record without id")
		}
	}
	switch cfg.Backend {
	case models.CorpusFile:
		return appendToFile(resolvePath(cfg.Path, baseDir), records)
	case models.CorpusSQLite:
		return importSQLite(ctx, resolvePath(cfg.Path, baseDir), records)
	case models.CorpusPostgres:
		return importPostgres(ctx, cfg.DSN, records)
	default:
		return 0, fmt.Errorf("importing corpus: backend %q does not accept records", cfg.Backend)
	}
}
