package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
	domsvc "ImpulseSaver/internal/domain/service"
	"ImpulseSaver/internal/services/pricehistory"
	"ImpulseSaver/pkg/logger"
	"ImpulseSaver/pkg/util"
)

var ErrASINRequired = errors.New("asin required")

// ProductAnalyzer runs the full analysis for one product: it gathers price
// history and candidates concurrently, scores them, and fans the result out
// to storage, the event bus and live subscribers.
type ProductAnalyzer struct {
	engine      *Engine
	history     domrepo.PriceHistoryStore
	candidates  domrepo.CandidateSource
	store       domrepo.AnalysisStore
	publisher   domrepo.AnalysisPublisher
	broadcaster domrepo.Broadcaster
	metrics     domrepo.Metrics
	log         *logger.Logger

	now         func() time.Time
	newID       func() string
	timeout     time.Duration
	historyDays int
}

type AnalyzerOption func(*ProductAnalyzer)

func WithAnalysisStore(s domrepo.AnalysisStore) AnalyzerOption {
	return func(a *ProductAnalyzer) { a.store = s }
}

func WithPublisher(p domrepo.AnalysisPublisher) AnalyzerOption {
	return func(a *ProductAnalyzer) { a.publisher = p }
}

func WithBroadcaster(b domrepo.Broadcaster) AnalyzerOption {
	return func(a *ProductAnalyzer) { a.broadcaster = b }
}

func WithMetrics(m domrepo.Metrics) AnalyzerOption {
	return func(a *ProductAnalyzer) { a.metrics = m }
}

func WithLogger(l *logger.Logger) AnalyzerOption {
	return func(a *ProductAnalyzer) {
		if l != nil {
			a.log = l
		}
	}
}

func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *ProductAnalyzer) { a.now = now }
}

func WithIDGenerator(fn func() string) AnalyzerOption {
	return func(a *ProductAnalyzer) { a.newID = fn }
}

func WithTimeout(d time.Duration) AnalyzerOption {
	return func(a *ProductAnalyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithHistoryDays sets how far back stored history is loaded.
func WithHistoryDays(days int) AnalyzerOption {
	return func(a *ProductAnalyzer) {
		if days > 0 {
			a.historyDays = days
		}
	}
}

func NewProductAnalyzer(engine *Engine, history domrepo.PriceHistoryStore, candidates domrepo.CandidateSource, opts ...AnalyzerOption) *ProductAnalyzer {
	a := &ProductAnalyzer{
		engine:      engine,
		history:     history,
		candidates:  candidates,
		log:         logger.Nop(),
		now:         time.Now,
		newID:       uuid.NewString,
		timeout:     10 * time.Second,
		historyDays: 365,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type AnalyzeParams struct {
	URL          string
	ASIN         string
	Marketplace  domrepo.Marketplace
	Product      models.ProductData
	CurrentPrice float64
	// RawHistory, when non-empty, is normalized instead of reading the store.
	RawHistory []json.RawMessage
	WindowDays int
}

func (a *ProductAnalyzer) Analyze(ctx context.Context, p AnalyzeParams) (*models.ProductAnalysis, error) {
	p.ASIN = strings.ToUpper(strings.TrimSpace(p.ASIN))
	if p.ASIN == "" {
		return nil, ErrASINRequired
	}
	if p.Marketplace == "" {
		p.Marketplace = domrepo.DefaultMarketplace()
	}
	start := a.now()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res := &models.ProductAnalysis{
		ID:          a.newID(),
		URL:         p.URL,
		ASIN:        p.ASIN,
		Marketplace: string(p.Marketplace),
		Product:     p.Product,
		Category:    a.engine.Classifier.Classify(p.Product.Title),
		Timestamp:   start,
		Errors:      map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := a.loadSeries(ctx, p)
		ch <- item{"price_history", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := a.loadCandidates(ctx, res.Category)
		ch <- item{"alternatives", v, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	series := models.PriceSeries{}
	var candidates []models.Candidate
	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			a.recordError("analyze_" + it.name)
			a.log.Warn("analysis input degraded",
				logger.String("asin", p.ASIN),
				logger.String("input", it.name),
				logger.Error(it.err),
			)
			continue
		}
		switch it.name {
		case "price_history":
			series = it.val.(models.PriceSeries)
		case "alternatives":
			candidates = it.val.([]models.Candidate)
		}
	}

	current := a.currentPrice(p, series)
	res.PriceHistory = series
	res.Deal = a.engine.Scorer.Score(current, series)
	res.Inflation = a.engine.Detector.Detect(series, p.WindowDays)
	impulse := a.engine.Composer.Compose(domsvc.ImpulseInput{
		Title:        p.Product.Title,
		Availability: p.Product.Availability,
		Category:     res.Category,
		ReviewCount:  p.Product.ReviewCount,
		Deal:         res.Deal,
		Inflation:    res.Inflation,
	})
	res.ImpulseScore = impulse.Score
	res.ImpulseFactors = impulse.Factors
	res.Alternatives = a.engine.Ranker.Rank(domsvc.RankInput{
		ExcludeASIN:  p.ASIN,
		CurrentPrice: current,
		Marketplace:  string(p.Marketplace),
		Candidates:   candidates,
	})
	res.Verdict = Verdict(res.Deal, res.Inflation, res.ImpulseScore)
	res.ConfidenceScore = Confidence(len(series))
	if len(res.Errors) == 0 {
		res.Errors = nil
	}

	a.deliver(ctx, res)

	if a.metrics != nil {
		a.metrics.RecordAnalysis(string(res.Deal.Quality), res.Category, string(res.Verdict))
		a.metrics.RecordImpulseScore(res.ImpulseScore)
		a.metrics.RecordLatency("analyze_seconds", a.now().Sub(start).Seconds())
	}
	a.log.Info("product analysed",
		logger.String("id", res.ID),
		logger.String("asin", res.ASIN),
		logger.String("category", res.Category),
		logger.String("quality", string(res.Deal.Quality)),
		logger.Int("impulse_score", res.ImpulseScore),
		logger.Bool("inflation", res.Inflation.InflationDetected),
		logger.String("verdict", string(res.Verdict)),
		logger.Int("points", len(series)),
	)
	return res, nil
}

func (a *ProductAnalyzer) loadSeries(ctx context.Context, p AnalyzeParams) (models.PriceSeries, error) {
	if len(p.RawHistory) > 0 {
		norm := pricehistory.NormalizeRaw(p.RawHistory)
		if norm.Dropped > 0 {
			a.log.Warn("dropped invalid price pairs",
				logger.String("asin", p.ASIN),
				logger.Int("dropped", norm.Dropped),
				logger.Int("kept", len(norm.Series)),
			)
		}
		if a.history != nil && len(norm.Series) > 0 {
			if err := a.history.StorePoints(ctx, p.ASIN, p.Marketplace, norm.Series); err != nil {
				a.recordError("history_store")
				a.log.Warn("store supplied history failed", logger.String("asin", p.ASIN), logger.Error(err))
			}
		}
		return norm.Series, nil
	}
	if a.history == nil {
		return models.PriceSeries{}, nil
	}
	to := a.now()
	from := to.AddDate(0, 0, -a.historyDays)
	series, err := a.history.History(ctx, p.ASIN, p.Marketplace, from, to)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if series == nil {
		series = models.PriceSeries{}
	}
	return series, nil
}

func (a *ProductAnalyzer) loadCandidates(ctx context.Context, category string) ([]models.Candidate, error) {
	if a.candidates == nil {
		return nil, nil
	}
	cs, err := a.candidates.Candidates(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return cs, nil
}

// currentPrice prefers the explicit value, then the listing text, then the
// newest observed price.
func (a *ProductAnalyzer) currentPrice(p AnalyzeParams, series models.PriceSeries) float64 {
	if p.CurrentPrice > 0 {
		return p.CurrentPrice
	}
	if d, ok := util.ParsePrice(p.Product.Price); ok {
		f, _ := d.Float64()
		return f
	}
	if last, ok := series.Last(); ok {
		return last.Price
	}
	return 0
}

// deliver is best effort: failures are logged and counted, never returned.
func (a *ProductAnalyzer) deliver(ctx context.Context, res *models.ProductAnalysis) {
	if a.store != nil {
		if err := a.store.Save(ctx, res); err != nil {
			a.recordError("analysis_store")
			a.log.Error("save analysis failed", logger.String("id", res.ID), logger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.PublishAnalysis(ctx, res); err != nil {
			a.recordError("analysis_publish")
			a.log.Warn("publish analysis failed", logger.String("id", res.ID), logger.Error(err))
		}
	}
	if a.broadcaster != nil {
		a.broadcaster.Broadcast(res)
	}
}

func (a *ProductAnalyzer) recordError(kind string) {
	if a.metrics != nil {
		a.metrics.RecordError(kind)
	}
}
