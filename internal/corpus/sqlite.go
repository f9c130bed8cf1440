package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/pkg/models"
)

var recordColumns = []string{"id", "created_at", "topics", "has_errors", "has_solutions", "project_path"}

// SQLiteSource reads records from the "records" table of a SQLite database.
// Topics are stored as a JSON array.
type SQLiteSource struct {
	path string
}

// NewSQLiteSource creates a SQLiteSource on the database file at path.
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

func (s *SQLiteSource) Name() string { return "sqlite" }

// Open opens the database read-only and checks it is reachable.
func (s *SQLiteSource) Open(ctx context.Context) (core.CorpusSession, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("opening corpus database: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening corpus database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to corpus database: %w", err)
	}
	return &sqliteSession{db: db}, nil
}

type sqliteSession struct {
	db *sql.DB
}

func (s *sqliteSession) Recent(ctx context.Context, limit int) ([]models.CorpusRecord, error) {
	q := sq.Select(recordColumns...).From("records").OrderBy("created_at DESC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []models.CorpusRecord
	for rows.Next() {
		var (
			rec    models.CorpusRecord
			topics string
		)
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &topics, &rec.HasErrors, &rec.HasSolutions, &rec.ProjectPath); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if topics != "" {
			if err := json.Unmarshal([]byte(topics), &rec.Topics); err != nil {
				return nil, fmt.Errorf("decode topics of record %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (s *sqliteSession) Close() error {
	return s.db.Close()
}

// importSQLite writes records into the database at path, creating it and
// applying migrations first. Existing ids are replaced.
func importSQLite(ctx context.Context, path string, records []models.CorpusRecord) (int, error) {
	db, err := sql.Open("sqlite3", path+"?_fk=1")
	if err != nil {
		return 0, fmt.Errorf("opening corpus database: %w", err)
	}
	defer db.Close()

	if err := migrate(ctx, db, dialectSQLite); err != nil {
		return 0, err
	}

	for _, rec := range records {
		topics, err := json.Marshal(nonNilTopics(rec.Topics))
		if err != nil {
			return 0, fmt.Errorf("encode topics of record %s: %w", rec.ID, err)
		}
		query, args, err := sq.Insert("records").
			Options("OR REPLACE").
			Columns(recordColumns...).
			Values(rec.ID, createdAt(rec), string(topics), rec.HasErrors, rec.HasSolutions, rec.ProjectPath).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build query: %w", err)
		}
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}
	return len(records), nil
}

func nonNilTopics(topics []string) []string {
	if topics == nil {
		return []string{}
	}
	return topics
}

func createdAt(rec models.CorpusRecord) time.Time {
	if rec.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return rec.CreatedAt.UTC()
}
