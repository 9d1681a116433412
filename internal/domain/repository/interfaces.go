package repository

import (
	"context"
	"time"

	"ImpulseSaver/internal/domain/models"
)

type AnalysisStore interface {
	Init(ctx context.Context) error // ensure tables
	Save(ctx context.Context, a *models.ProductAnalysis) error
	Recent(ctx context.Context, limit int) ([]models.AnalysisSummary, error)
	Since(ctx context.Context, since time.Time, limit int) ([]models.AnalysisSummary, error)
	Health(ctx context.Context) error
	Close() error
}

type AnalysisPublisher interface {
	PublishAnalysis(ctx context.Context, a *models.ProductAnalysis) error
	Close() error
}

// Broadcaster pushes completed analyses to live subscribers.
type Broadcaster interface {
	Broadcast(a *models.ProductAnalysis)
}

type Metrics interface {
	RecordAnalysis(quality, category, verdict string)
	RecordImpulseScore(score int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
