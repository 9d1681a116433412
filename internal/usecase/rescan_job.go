package usecase

import (
	"context"
	"fmt"

	"ImpulseSaver/pkg/logger"
	"ImpulseSaver/pkg/queue"
)

// RescanJob consumes RescanMessageType messages from the work queue.
type RescanJob struct {
	rescan *WatchlistRescan
	log    *logger.Logger
}

func NewRescanJob(rescan *WatchlistRescan, log *logger.Logger) *RescanJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RescanJob{rescan: rescan, log: log}
}

func (j *RescanJob) Name() string { return "watchlist_rescan" }

func (j *RescanJob) Type() string { return RescanMessageType }

// Handle returns the analyzer error so the queue retries the message.
func (j *RescanJob) Handle(ctx context.Context, payload interface{}) error {
	target, err := queue.ParsePayload[RescanTarget](payload)
	if err != nil {
		return fmt.Errorf("rescan payload: %w", err)
	}
	if target.ASIN == "" {
		j.log.Warn("rescan message without asin dropped")
		return nil
	}
	analysed, err := j.rescan.Rescan(ctx, *target)
	if err != nil {
		return err
	}
	if !analysed {
		j.log.Debug("rescan skipped, locked elsewhere", logger.String("asin", target.ASIN))
	}
	return nil
}

var _ queue.Job = (*RescanJob)(nil)
