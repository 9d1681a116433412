package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
	"ImpulseSaver/pkg/logger"
)

// OpenSQLite opens (or creates) a SQLite database in WAL mode.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return db, nil
}

func execAll(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// SQLiteCatalog is a CandidateSource backed by a local catalog table.
type SQLiteCatalog struct {
	db  *sql.DB
	log *logger.Logger
}

func NewSQLiteCatalog(db *sql.DB, log *logger.Logger) *SQLiteCatalog {
	if log == nil {
		log = logger.Nop()
	}
	return &SQLiteCatalog{db: db, log: log}
}

// Init creates the table and seeds it with the built-in catalog when empty.
func (c *SQLiteCatalog) Init(ctx context.Context) error {
	err := execAll(ctx, c.db, []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			asin         TEXT NOT NULL,
			category     TEXT NOT NULL,
			title        TEXT NOT NULL,
			price        REAL NOT NULL,
			rating       REAL,
			review_count INTEGER,
			image_url    TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (category, asin)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_category ON candidates(category)`,
	})
	if err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}

	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&n); err != nil {
		return fmt.Errorf("count catalog: %w", err)
	}
	if n > 0 {
		return nil
	}
	seeded, err := c.Seed(ctx, BuiltinCatalog())
	if err != nil {
		return err
	}
	c.log.Info("catalog seeded", logger.Int("candidates", seeded))
	return nil
}

// Seed upserts candidates per category and returns how many rows were written.
func (c *SQLiteCatalog) Seed(ctx context.Context, items map[string][]models.Candidate) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candidates (asin, category, title, price, rating, review_count, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (category, asin) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			rating = excluded.rating,
			review_count = excluded.review_count,
			image_url = excluded.image_url`)
	if err != nil {
		return 0, fmt.Errorf("prepare seed: %w", err)
	}
	defer stmt.Close()

	count := 0
	for category, list := range items {
		for _, cand := range list {
			var rating sql.NullFloat64
			if cand.Rating != nil {
				rating = sql.NullFloat64{Float64: *cand.Rating, Valid: true}
			}
			var reviews sql.NullInt64
			if cand.ReviewCount != nil {
				reviews = sql.NullInt64{Int64: int64(*cand.ReviewCount), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, cand.ASIN, category, cand.Title, cand.Price, rating, reviews, cand.ImageURL); err != nil {
				return 0, fmt.Errorf("seed %s/%s: %w", category, cand.ASIN, err)
			}
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return count, nil
}

func (c *SQLiteCatalog) Candidates(ctx context.Context, category string) ([]models.Candidate, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT asin, title, price, rating, review_count, image_url
		FROM candidates WHERE category = ? ORDER BY rowid`, category)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candidate, 0, 8)
	for rows.Next() {
		var (
			cand    models.Candidate
			rating  sql.NullFloat64
			reviews sql.NullInt64
		)
		if err := rows.Scan(&cand.ASIN, &cand.Title, &cand.Price, &rating, &reviews, &cand.ImageURL); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if rating.Valid {
			v := rating.Float64
			cand.Rating = &v
		}
		if reviews.Valid {
			v := int(reviews.Int64)
			cand.ReviewCount = &v
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}

// Categories lists the seeded categories in name order.
func (c *SQLiteCatalog) Categories(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT category FROM candidates`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, rows.Err()
}

// SQLiteAnalysisStore is the single-node AnalysisStore used when no
// Postgres DSN is configured.
type SQLiteAnalysisStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteAnalysisStore(db *sql.DB) *SQLiteAnalysisStore {
	return &SQLiteAnalysisStore{db: db}
}

func (s *SQLiteAnalysisStore) Init(ctx context.Context) error {
	err := execAll(ctx, s.db, []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id            TEXT PRIMARY KEY,
			asin          TEXT NOT NULL,
			marketplace   TEXT NOT NULL,
			title         TEXT NOT NULL,
			category      TEXT NOT NULL,
			current_price REAL NOT NULL,
			quality       TEXT NOT NULL,
			impulse_score INTEGER NOT NULL,
			verdict       TEXT NOT NULL,
			created_at    INTEGER NOT NULL,
			payload       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at)`,
	})
	if err != nil {
		return fmt.Errorf("migrate analyses: %w", err)
	}
	return nil
}

func (s *SQLiteAnalysisStore) Save(ctx context.Context, a *models.ProductAnalysis) error {
	r, err := toAnalysisRow(a)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO analyses (id, asin, marketplace, title, category, current_price, quality, impulse_score, verdict, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ASIN, r.Marketplace, r.Title, r.Category, r.CurrentPrice, r.Quality, r.ImpulseScore, r.Verdict, r.CreatedAt.UnixMilli(), string(r.Payload))
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

const sqliteSummaryColumns = `id, asin, marketplace, title, category, current_price, quality, impulse_score, verdict, created_at,
	COALESCE(json_extract(payload, '$.product_data'), '{}')`

func (s *SQLiteAnalysisStore) Recent(ctx context.Context, limit int) ([]models.AnalysisSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSummaryColumns+` FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows, unixMilliTime)
}

func (s *SQLiteAnalysisStore) Since(ctx context.Context, since time.Time, limit int) ([]models.AnalysisSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSummaryColumns+` FROM analyses WHERE created_at >= ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("query since: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows, unixMilliTime)
}

func (s *SQLiteAnalysisStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteAnalysisStore) Close() error { return s.db.Close() }

func unixMilliTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case int64:
		return time.UnixMilli(v), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case float64:
		return time.UnixMilli(int64(v)), nil
	default:
		return time.Time{}, fmt.Errorf("unexpected created_at type %T", src)
	}
}

var (
	_ domrepo.CandidateSource = (*SQLiteCatalog)(nil)
	_ domrepo.AnalysisStore   = (*SQLiteAnalysisStore)(nil)
)
