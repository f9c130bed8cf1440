package corpus

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/pkg/models"
)

// psql is the shared Squirrel statement builder configured for PostgreSQL dollar placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresSource reads records from the "records" table of a PostgreSQL
// database. Topics are a text[] column.
type PostgresSource struct {
	dsn string
}

// NewPostgresSource creates a PostgresSource for the connection string dsn.
func NewPostgresSource(dsn string) *PostgresSource {
	return &PostgresSource{dsn: dsn}
}

func (s *PostgresSource) Name() string { return "postgres" }

// Open creates a small connection pool and pings it. The pool is released
// by the session's Close.
func (s *PostgresSource) Open(ctx context.Context) (core.CorpusSession, error) {
	pool, err := newPool(ctx, s.dsn)
	if err != nil {
		return nil, err
	}
	return &postgresSession{pool: pool}, nil
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	config.MaxConns = 2
	config.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type postgresSession struct {
	pool *pgxpool.Pool
}

func (s *postgresSession) Recent(ctx context.Context, limit int) ([]models.CorpusRecord, error) {
	q := psql.Select(recordColumns...).From("records").OrderBy("created_at DESC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []models.CorpusRecord
	for rows.Next() {
		var rec models.CorpusRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Topics, &rec.HasErrors, &rec.HasSolutions, &rec.ProjectPath); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (s *postgresSession) Close() error {
	s.pool.Close()
	return nil
}

// importPostgres writes records into the database, applying migrations
// first. Existing ids are replaced.
func importPostgres(ctx context.Context, dsn string, records []models.CorpusRecord) (int, error) {
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := migrate(ctx, db, dialectPostgres); err != nil {
		return 0, err
	}

	for _, rec := range records {
		query, args, err := psql.Insert("records").
			Columns(recordColumns...).
			Values(rec.ID, createdAt(rec), nonNilTopics(rec.Topics), rec.HasErrors, rec.HasSolutions, rec.ProjectPath).
			Suffix("ON CONFLICT (id) DO UPDATE SET created_at = EXCLUDED.created_at, topics = EXCLUDED.topics, " +
				"has_errors = EXCLUDED.has_errors, has_solutions = EXCLUDED.has_solutions, project_path = EXCLUDED.project_path").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build query: %w", err)
		}
		if _, err := pool.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}
	return len(records), nil
}
