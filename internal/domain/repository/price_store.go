package repository

import (
	"context"
	"time"

	"ImpulseSaver/internal/domain/models"
)

// PriceHistoryStore keeps normalized price points per product.
type PriceHistoryStore interface {
	Init(ctx context.Context) error
	StorePoints(ctx context.Context, asin string, mp Marketplace, points models.PriceSeries) error
	History(ctx context.Context, asin string, mp Marketplace, from, to time.Time) (models.PriceSeries, error)
	Health(ctx context.Context) error
	Close() error
}

// CandidateSource provides alternative products keyed by category.
type CandidateSource interface {
	Candidates(ctx context.Context, category string) ([]models.Candidate, error)
}
