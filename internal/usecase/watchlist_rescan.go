package usecase

import (
	"context"
	"fmt"
	"time"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
	"ImpulseSaver/pkg/logger"
)

// Analyzer is the part of ProductAnalyzer the rescan depends on.
type Analyzer interface {
	Analyze(ctx context.Context, p AnalyzeParams) (*models.ProductAnalysis, error)
}

// Dispatcher hands rescans to a work queue so several instances can share them.
type Dispatcher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// RescanMessageType is the queue message type carrying a RescanTarget.
const RescanMessageType = "rescan_product"

// RescanTarget identifies one product to re-analyse together with the
// listing inputs of its last analysis.
type RescanTarget struct {
	ASIN         string  `json:"asin"`
	Marketplace  string  `json:"marketplace"`
	Title        string  `json:"title"`
	Price        string  `json:"price,omitempty"`
	CurrentPrice float64 `json:"current_price,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
	Rating       string  `json:"rating,omitempty"`
	ReviewCount  string  `json:"review_count,omitempty"`
	Availability string  `json:"availability,omitempty"`
}

func targetOf(s models.AnalysisSummary) RescanTarget {
	title := s.Listing.Title
	if title == "" {
		title = s.Title
	}
	return RescanTarget{
		ASIN:         s.ASIN,
		Marketplace:  s.Marketplace,
		Title:        title,
		Price:        s.Listing.Price,
		CurrentPrice: s.CurrentPrice,
		ImageURL:     s.Listing.ImageURL,
		Rating:       s.Listing.Rating,
		ReviewCount:  s.Listing.ReviewCount,
		Availability: s.Listing.Availability,
	}
}

func (t RescanTarget) key() string { return t.Marketplace + "/" + t.ASIN }

func (t RescanTarget) params() AnalyzeParams {
	return AnalyzeParams{
		ASIN:        t.ASIN,
		Marketplace: domrepo.NormalizeMarketplace(t.Marketplace),
		Product: models.ProductData{
			Title:        t.Title,
			Price:        t.Price,
			ImageURL:     t.ImageURL,
			Rating:       t.Rating,
			ReviewCount:  t.ReviewCount,
			Availability: t.Availability,
		},
		CurrentPrice: t.CurrentPrice,
	}
}

// Locker guards a product against concurrent rescans across instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// WatchlistRescan re-analyses products that were analysed recently so their
// verdicts follow new price history.
type WatchlistRescan struct {
	analyzer   Analyzer
	store      domrepo.AnalysisStore
	locker     Locker
	dispatcher Dispatcher
	log        *logger.Logger
	now        func() time.Time

	lookback time.Duration
	limit    int
	lockTTL  time.Duration
}

func NewWatchlistRescan(analyzer Analyzer, store domrepo.AnalysisStore, locker Locker, lookback time.Duration, limit int, log *logger.Logger) *WatchlistRescan {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	if limit <= 0 {
		limit = 100
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WatchlistRescan{
		analyzer: analyzer,
		store:    store,
		locker:   locker,
		log:      log,
		now:      time.Now,
		lookback: lookback,
		limit:    limit,
		lockTTL:  5 * time.Minute,
	}
}

// WithDispatcher makes Run enqueue targets instead of analysing inline.
func (w *WatchlistRescan) WithDispatcher(d Dispatcher) *WatchlistRescan {
	w.dispatcher = d
	return w
}

type RescanReport struct {
	Candidates int
	Queued     int
	Analysed   int
	Skipped    int
	Failed     int
}

func (w *WatchlistRescan) Run(ctx context.Context) (RescanReport, error) {
	var rep RescanReport
	recent, err := w.store.Since(ctx, w.now().Add(-w.lookback), w.limit)
	if err != nil {
		return rep, fmt.Errorf("list recent analyses: %w", err)
	}

	seen := make(map[string]bool, len(recent))
	for _, s := range recent {
		target := targetOf(s)
		if seen[target.key()] {
			continue
		}
		seen[target.key()] = true
		rep.Candidates++

		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if w.dispatcher != nil {
			err := w.dispatcher.Enqueue(ctx, RescanMessageType, target)
			if err == nil {
				rep.Queued++
				continue
			}
			w.log.Warn("rescan enqueue failed, analysing inline", logger.String("asin", s.ASIN), logger.Error(err))
		}

		analysed, err := w.Rescan(ctx, target)
		switch {
		case err != nil:
			rep.Failed++
			w.log.Warn("rescan failed", logger.String("asin", s.ASIN), logger.Error(err))
		case analysed:
			rep.Analysed++
		default:
			rep.Skipped++
		}
	}

	w.log.Info("watchlist rescan finished",
		logger.Int("candidates", rep.Candidates),
		logger.Int("queued", rep.Queued),
		logger.Int("analysed", rep.Analysed),
		logger.Int("skipped", rep.Skipped),
		logger.Int("failed", rep.Failed),
	)
	return rep, nil
}

// Rescan re-analyses one target under its lock. It reports false without
// an error when another worker holds the lock.
func (w *WatchlistRescan) Rescan(ctx context.Context, t RescanTarget) (bool, error) {
	ok, err := w.lock(ctx, t.key())
	if err != nil || !ok {
		return false, nil
	}
	defer w.unlock(t.key())

	if _, err := w.analyzer.Analyze(ctx, t.params()); err != nil {
		return false, err
	}
	return true, nil
}

func (w *WatchlistRescan) lock(ctx context.Context, key string) (bool, error) {
	if w.locker == nil {
		return true, nil
	}
	ok, err := w.locker.TryLock(ctx, "rescan:"+key, w.lockTTL)
	if err != nil {
		w.log.Warn("rescan lock failed", logger.String("key", key), logger.Error(err))
	}
	return ok, err
}

func (w *WatchlistRescan) unlock(key string) {
	if w.locker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.locker.Unlock(ctx, "rescan:"+key); err != nil {
		w.log.Warn("rescan unlock failed", logger.String("key", key), logger.Error(err))
	}
}
