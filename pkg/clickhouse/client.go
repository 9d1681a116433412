package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Client manages a ClickHouse connection pool.
type Client struct {
	db        *sql.DB
	database  string
	batchSize int
}

// NewClient opens the pool and pings until the server answers or
// PingAttempts run out.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	db, err := sql.Open("clickhouse", BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	var pingErr error
	for i := 1; i <= cfg.PingAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout+time.Second)
		pingErr = db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			break
		}
		if i < cfg.PingAttempts {
			time.Sleep(cfg.PingDelay * time.Duration(i))
		}
	}
	if pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", pingErr)
	}

	return &Client{db: db, database: cfg.Database, batchSize: cfg.BatchSize}, nil
}

// DB returns *sql.DB for direct use.
func (c *Client) DB() *sql.DB { return c.db }

// Database is the configured database name.
func (c *Client) Database() string { return c.database }

func (c *Client) Health(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema runs idempotent DDL statements in order.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// InsertRows writes rows with multi-row VALUES statements of at most the
// configured batch size. insert is "INSERT INTO t (a, b)"; every row must
// have one value per column.
func (c *Client) InsertRows(ctx context.Context, insert string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"
	size := c.batchSize
	if size <= 0 {
		size = len(rows)
	}
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*width)
		for _, r := range rows[start:end] {
			if len(r) != width {
				return fmt.Errorf("insert rows: row has %d values, want %d", len(r), width)
			}
			values = append(values, placeholder)
			args = append(args, r...)
		}
		q := insert + " VALUES " + strings.Join(values, ",")
		if _, err := c.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
	}
	return nil
}
