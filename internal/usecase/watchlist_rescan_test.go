package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"ImpulseSaver/internal/domain/models"
)

type recordingAnalyzer struct {
	mu    sync.Mutex
	calls []AnalyzeParams
	err   error
}

func (r *recordingAnalyzer) Analyze(_ context.Context, p AnalyzeParams) (*models.ProductAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, p)
	if r.err != nil {
		return nil, r.err
	}
	return &models.ProductAnalysis{ASIN: p.ASIN}, nil
}

func TestWatchlistRescanDeduplicatesAndLocks(t *testing.T) {
	store := &fakeAnalysisStore{recent: []models.AnalysisSummary{
		{ASIN: "B0TEST0001", Marketplace: "com", Title: "Headphones"},
		{ASIN: "B0TEST0001", Marketplace: "com", Title: "Headphones"},
		{ASIN: "B0TEST0002", Marketplace: "de", Title: "Kaffee"},
		{ASIN: "B0TEST0003", Marketplace: "com", Title: "Locked"},
	}}
	locker := &fakeLocker{held: map[string]bool{"rescan:com/B0TEST0003": true}}
	an := &recordingAnalyzer{}
	w := NewWatchlistRescan(an, store, locker, 6*time.Hour, 50, nil)
	w.now = fixedClock

	rep, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rep.Candidates != 3 || rep.Analysed != 2 || rep.Skipped != 1 || rep.Failed != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !store.since.Equal(testNow.Add(-6 * time.Hour)) {
		t.Fatalf("unexpected lookback %v", store.since)
	}
	if an.calls[1].Marketplace != "de" || an.calls[1].Product.Title != "Kaffee" {
		t.Fatalf("unexpected params %+v", an.calls[1])
	}
	if len(locker.held) != 1 {
		t.Fatalf("locks should be released, held=%v", locker.held)
	}
}

func TestWatchlistRescanCountsFailures(t *testing.T) {
	store := &fakeAnalysisStore{recent: []models.AnalysisSummary{{ASIN: "B0TEST0001", Marketplace: "com"}}}
	w := NewWatchlistRescan(&recordingAnalyzer{err: errBoom}, store, nil, 0, 0, nil)
	rep, err := w.Run(context.Background())
	if err != nil || rep.Failed != 1 {
		t.Fatalf("expected one failure, got %+v %v", rep, err)
	}
	if _, err := NewWatchlistRescan(&recordingAnalyzer{}, &fakeAnalysisStore{err: errBoom}, nil, 0, 0, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestWatchlistRescanKeepsListingInputs(t *testing.T) {
	history := &fakeHistory{}
	for i, p := range []float64{99.99, 89.99, 94.99, 84.99, 79.99} {
		history.series = append(history.series, models.PricePoint{
			Timestamp: testNow.AddDate(0, 0, -(120 - 25*i)),
			Price:     p,
		})
	}
	store := &fakeAnalysisStore{}
	a := NewProductAnalyzer(testEngine(), history, nil, WithAnalysisStore(store), WithClock(fixedClock))

	first, err := a.Analyze(context.Background(), AnalyzeParams{
		ASIN: "B0TEST0001",
		Product: models.ProductData{
			Title:        "Flash Sale Wireless Earbuds",
			Price:        "$82.50",
			ReviewCount:  "12",
			Availability: "Only 2 left in stock",
		},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if first.ImpulseFactors.ScarcityTactics == 0 || first.ImpulseFactors.UrgencyLanguage == 0 {
		t.Fatalf("listing text should drive the factors: %+v", first.ImpulseFactors)
	}
	store.recent = []models.AnalysisSummary{first.Summary()}

	w := NewWatchlistRescan(a, store, nil, time.Hour, 10, nil)
	w.now = fixedClock
	rep, err := w.Run(context.Background())
	if err != nil || rep.Analysed != 1 {
		t.Fatalf("rescan: %+v %v", rep, err)
	}
	if len(store.saved) != 2 {
		t.Fatalf("saved = %d", len(store.saved))
	}
	again := store.saved[1]
	if again.ImpulseScore != first.ImpulseScore || again.ImpulseFactors != first.ImpulseFactors {
		t.Fatalf("impulse changed without new prices: %d %+v -> %d %+v",
			first.ImpulseScore, first.ImpulseFactors, again.ImpulseScore, again.ImpulseFactors)
	}
	if again.Verdict != first.Verdict || again.Deal.CurrentPrice != 82.5 || again.Product != first.Product {
		t.Fatalf("rescan drifted: verdict %s -> %s, price %v, product %+v", first.Verdict, again.Verdict, again.Deal.CurrentPrice, again.Product)
	}
}
