package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
	"ImpulseSaver/internal/services/analytics"
	"ImpulseSaver/internal/services/category"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testEngine() *Engine {
	th := analytics.DefaultThresholds()
	return NewEngine(
		analytics.NewDealQualityScorer(th, analytics.WithClock(fixedClock)),
		analytics.NewInflationDetector(th, analytics.WithClock(fixedClock)),
		category.NewClassifier(),
		analytics.NewImpulseScorer(th),
		analytics.NewAlternativeRanker(th, "tag-20"),
	)
}

type fakeHistory struct {
	mu      sync.Mutex
	series  models.PriceSeries
	err     error
	stored  map[string]models.PriceSeries
	storeEr error
}

func (f *fakeHistory) Init(context.Context) error { return nil }

func (f *fakeHistory) StorePoints(_ context.Context, asin string, mp domrepo.Marketplace, points models.PriceSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeEr != nil {
		return f.storeEr
	}
	if f.stored == nil {
		f.stored = map[string]models.PriceSeries{}
	}
	f.stored[string(mp)+"/"+asin] = append(f.stored[string(mp)+"/"+asin], points...)
	return nil
}

func (f *fakeHistory) History(context.Context, string, domrepo.Marketplace, time.Time, time.Time) (models.PriceSeries, error) {
	return f.series, f.err
}

func (f *fakeHistory) Health(context.Context) error { return nil }
func (f *fakeHistory) Close() error                 { return nil }

type fakeCandidates struct {
	byCategory map[string][]models.Candidate
	err        error
}

func (f *fakeCandidates) Candidates(_ context.Context, cat string) ([]models.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byCategory[cat], nil
}

type fakeAnalysisStore struct {
	mu     sync.Mutex
	saved  []*models.ProductAnalysis
	recent []models.AnalysisSummary
	err    error
	since  time.Time
}

func (f *fakeAnalysisStore) Init(context.Context) error { return nil }

func (f *fakeAnalysisStore) Save(_ context.Context, a *models.ProductAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakeAnalysisStore) Recent(_ context.Context, limit int) ([]models.AnalysisSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeAnalysisStore) Since(_ context.Context, since time.Time, limit int) ([]models.AnalysisSummary, error) {
	f.since = since
	return f.Recent(context.Background(), limit)
}

func (f *fakeAnalysisStore) Health(context.Context) error { return nil }
func (f *fakeAnalysisStore) Close() error                 { return nil }

type fakePublisher struct {
	mu  sync.Mutex
	got []*models.ProductAnalysis
	err error
}

func (f *fakePublisher) PublishAnalysis(_ context.Context, a *models.ProductAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, a)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

type fakeBroadcaster struct{ got []*models.ProductAnalysis }

func (f *fakeBroadcaster) Broadcast(a *models.ProductAnalysis) { f.got = append(f.got, a) }

type fakeMetrics struct {
	mu       sync.Mutex
	analyses []string
	errors   []string
	impulses []int
}

func (m *fakeMetrics) RecordAnalysis(q, c, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, q+"/"+c+"/"+v)
}

func (m *fakeMetrics) RecordImpulseScore(s int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.impulses = append(m.impulses, s)
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

type fakeLocker struct {
	held map[string]bool
	err  error
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key string) error {
	delete(l.held, key)
	return nil
}

var errBoom = errors.New("boom")
