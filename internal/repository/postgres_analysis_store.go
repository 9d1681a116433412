package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
)

// PostgresAnalysisStore persists analyses to PostgreSQL. The full analysis
// is kept as JSONB next to the indexed summary columns.
type PostgresAnalysisStore struct {
	db *sql.DB
}

// NewPostgresAnalysisStore opens the pool and retries the ping while the
// database starts up.
func NewPostgresAnalysisStore(dsn string, pingAttempts int, pingDelay time.Duration) (*PostgresAnalysisStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if pingAttempts <= 0 {
		pingAttempts = 1
	}
	for i := 0; i < pingAttempts; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i < pingAttempts-1 {
			time.Sleep(pingDelay)
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}
	return &PostgresAnalysisStore{db: db}, nil
}

func (s *PostgresAnalysisStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id            UUID          PRIMARY KEY,
			asin          VARCHAR(16)   NOT NULL,
			marketplace   VARCHAR(8)    NOT NULL DEFAULT 'com',
			title         TEXT          NOT NULL DEFAULT '',
			category      VARCHAR(32)   NOT NULL DEFAULT 'general',
			current_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			quality       VARCHAR(16)   NOT NULL,
			impulse_score SMALLINT      NOT NULL,
			verdict       VARCHAR(8)    NOT NULL,
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			payload       JSONB         NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_analyses_asin    ON analyses(asin, marketplace);
	`)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *PostgresAnalysisStore) Save(ctx context.Context, a *models.ProductAnalysis) error {
	r, err := toAnalysisRow(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, asin, marketplace, title, category, current_price, quality, impulse_score, verdict, created_at, payload)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.ASIN, r.Marketplace, r.Title, r.Category, r.CurrentPrice, r.Quality, r.ImpulseScore, r.Verdict, r.CreatedAt, string(r.Payload))
	if err != nil {
		return fmt.Errorf("postgres: save analysis: %w", err)
	}
	return nil
}

const pgSummaryColumns = `id, asin, marketplace, title, category, current_price, quality, impulse_score, verdict, created_at,
	COALESCE(payload->'product_data', '{}'::jsonb)::text`

func (s *PostgresAnalysisStore) Recent(ctx context.Context, limit int) ([]models.AnalysisSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pgSummaryColumns+` FROM analyses ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent analyses: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows, pgTime)
}

func (s *PostgresAnalysisStore) Since(ctx context.Context, since time.Time, limit int) ([]models.AnalysisSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pgSummaryColumns+` FROM analyses WHERE created_at >= $1 ORDER BY created_at DESC LIMIT $2`, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: analyses since: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows, pgTime)
}

func (s *PostgresAnalysisStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PostgresAnalysisStore) Close() error { return s.db.Close() }

func pgTime(src any) (time.Time, error) {
	t, ok := src.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected created_at type %T", src)
	}
	return t, nil
}

var _ domrepo.AnalysisStore = (*PostgresAnalysisStore)(nil)
