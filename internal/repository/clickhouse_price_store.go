package repository

import (
	"context"
	"fmt"
	"time"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
	pkgch "ImpulseSaver/pkg/clickhouse"
	applogger "ImpulseSaver/pkg/logger"
)

// PriceHistorySchema returns the DDL for the price history table.
// ReplacingMergeTree collapses re-ingested points with the same key.
func PriceHistorySchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.price_history (
            marketplace LowCardinality(String),
            asin String,
            ts DateTime('UTC'),
            price Float64,
            ingested_at DateTime('UTC') DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (marketplace, asin, ts)`, database),
	}
}

// CHPriceStore implements PriceHistoryStore backed by ClickHouse.
type CHPriceStore struct {
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client, l *applogger.Logger) *CHPriceStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHPriceStore{ch: ch, table: ch.Database() + ".price_history", l: l}
}

func (s *CHPriceStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, PriceHistorySchema(s.ch.Database()))
}

func (s *CHPriceStore) StorePoints(ctx context.Context, asin string, mp domrepo.Marketplace, points models.PriceSeries) error {
	if len(points) == 0 {
		return nil
	}
	start := time.Now()
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{string(mp), asin, p.Timestamp.UTC(), p.Price})
	}
	insert := fmt.Sprintf("INSERT INTO %s (marketplace, asin, ts, price)", s.table)
	if err := s.ch.InsertRows(ctx, insert, rows); err != nil {
		s.l.Error("clickhouse store_points error",
			applogger.String("asin", asin),
			applogger.String("marketplace", string(mp)),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("store points: %w", err)
	}
	s.l.Debug("clickhouse store_points ok",
		applogger.String("asin", asin),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHPriceStore) History(ctx context.Context, asin string, mp domrepo.Marketplace, from, to time.Time) (models.PriceSeries, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, price
        FROM %s FINAL
        WHERE marketplace = ? AND asin = ? AND ts >= ? AND ts <= ? AND price > 0
        ORDER BY ts ASC
    `, s.table)
	rows, err := s.ch.DB().QueryContext(ctx, q, string(mp), asin, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse history query error",
			applogger.String("asin", asin),
			applogger.String("marketplace", string(mp)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make(models.PriceSeries, 0, 256)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.Timestamp = p.Timestamp.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse history ok",
		applogger.String("asin", asin),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHPriceStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

// Close is a no-op; the client is owned by the app.
func (s *CHPriceStore) Close() error { return nil }

var _ domrepo.PriceHistoryStore = (*CHPriceStore)(nil)
