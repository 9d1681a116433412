package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ImpulseSaver/internal/usecase"
	"ImpulseSaver/pkg/logger"
)

// Rescanner is the watchlist job the scheduler drives.
type Rescanner interface {
	Run(ctx context.Context) (usecase.RescanReport, error)
}

// Pruner drops per-client state that has been idle for longer than idle.
type Pruner interface {
	Prune(idle time.Duration) int
}

// Pruners fans one prune tick out to several holders of idle state.
type Pruners []Pruner

func (ps Pruners) Prune(idle time.Duration) int {
	n := 0
	for _, p := range ps {
		n += p.Prune(idle)
	}
	return n
}

const pruneSpec = "0 */10 * * * *"

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron    *cron.Cron
	rescan  Rescanner
	pruner  Pruner
	timeout time.Duration
	log     *logger.Logger
	ctx     context.Context
}

// NewScheduler creates a Scheduler whose jobs are bounded by timeout and
// skipped while a previous run of the same job is still going.
func NewScheduler(ctx context.Context, rescan Rescanner, pruner Pruner, timeout time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	cl := cronLogger{l: log}
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		rescan:  rescan,
		pruner:  pruner,
		timeout: timeout,
		log:     log,
		ctx:     ctx,
	}
}

// RegisterAll registers the watchlist rescan and the rate limiter cleanup.
func (s *Scheduler) RegisterAll(rescanCron string) error {
	if s.rescan != nil {
		if _, err := s.Cron.AddFunc(rescanCron, s.RunRescanNow); err != nil {
			return fmt.Errorf("register rescan task: %w", err)
		}
	}
	if s.pruner != nil {
		if _, err := s.Cron.AddFunc(pruneSpec, s.prune); err != nil {
			return fmt.Errorf("register prune task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", logger.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunRescanNow executes the rescan immediately.
func (s *Scheduler) RunRescanNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	rep, err := s.rescan.Run(ctx)
	if err != nil {
		s.log.Error("scheduled rescan failed", logger.Error(err))
		return
	}
	s.log.Info("scheduled rescan done",
		logger.Int("candidates", rep.Candidates),
		logger.Int("analysed", rep.Analysed),
		logger.Duration("duration_ms", time.Since(start)),
	)
}

func (s *Scheduler) prune() {
	if n := s.pruner.Prune(time.Hour); n > 0 {
		s.log.Debug("idle state pruned", logger.Int("entries", n))
	}
}

// cronLogger adapts the app logger to cron.Logger.
type cronLogger struct{ l *logger.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron: "+msg, logger.Any("kv", kv))
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron: "+msg, logger.Error(err), logger.Any("kv", kv))
}

var _ cron.Logger = cronLogger{}
