package usecase

import (
	"context"
	"time"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
	"ImpulseSaver/pkg/logger"
)

// RecentAnalysesUseCase lists the newest stored analyses.
type RecentAnalysesUseCase struct {
	store domrepo.AnalysisStore
	log   *logger.Logger
}

func NewRecentAnalysesUseCase(store domrepo.AnalysisStore, log *logger.Logger) *RecentAnalysesUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &RecentAnalysesUseCase{store: store, log: log}
}

type RecentParams struct {
	Limit int
	Since time.Time
}

// Recent never fails: a store error is logged and yields an empty list.
func (uc *RecentAnalysesUseCase) Recent(ctx context.Context, p RecentParams) []models.AnalysisSummary {
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if uc.store == nil {
		return []models.AnalysisSummary{}
	}

	var (
		out []models.AnalysisSummary
		err error
	)
	if p.Since.IsZero() {
		out, err = uc.store.Recent(ctx, p.Limit)
	} else {
		out, err = uc.store.Since(ctx, p.Since, p.Limit)
	}
	if err != nil {
		uc.log.Error("load recent analyses failed", logger.Int("limit", p.Limit), logger.Error(err))
		return []models.AnalysisSummary{}
	}
	if out == nil {
		out = []models.AnalysisSummary{}
	}
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out
}
