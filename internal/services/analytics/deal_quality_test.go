package analytics

import (
	"math"
	"strings"
	"testing"
	"time"

	"ImpulseSaver/internal/domain/models"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func daysAgo(d int) time.Time { return testNow.AddDate(0, 0, -d) }

func seriesOf(prices []float64, ages []int) models.PriceSeries {
	s := make(models.PriceSeries, len(prices))
	for i := range prices {
		s[i] = models.PricePoint{Timestamp: daysAgo(ages[i]), Price: prices[i]}
	}
	return s
}

// flatSeries spreads prices one day apart ending 100 days ago, outside the trend window.
func flatSeries(prices ...float64) models.PriceSeries {
	s := make(models.PriceSeries, len(prices))
	for i, p := range prices {
		s[i] = models.PricePoint{Timestamp: daysAgo(100 + len(prices) - i), Price: p}
	}
	return s
}

func TestDealQualityGoodScenario(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	series := seriesOf(
		[]float64{349.99, 129.99, 316.79, 199.99, 259.99, 279.99, 289.99, 299.99, 299.99, 299.99},
		[]int{300, 270, 240, 210, 180, 150, 120, 90, 20, 5},
	)
	dq := scorer.Score(228, series)
	if dq.Quality != models.QualityGood {
		t.Fatalf("expected good, got %s", dq.Quality)
	}
	if dq.Score != 78 {
		t.Fatalf("expected score 78, got %d", dq.Score)
	}
	if dq.SavingsPercent != 16.4 {
		t.Fatalf("expected savings 16.4, got %v", dq.SavingsPercent)
	}
	if dq.Percentile != 20 {
		t.Fatalf("expected percentile 20, got %v", dq.Percentile)
	}
	if dq.Trend != models.TrendStable {
		t.Fatalf("expected stable trend, got %s", dq.Trend)
	}
	if dq.MinPrice != 129.99 || dq.MaxPrice != 349.99 {
		t.Fatalf("unexpected min/max %v/%v", dq.MinPrice, dq.MaxPrice)
	}
	if math.Abs(dq.AveragePrice-272.67) > 0.01 {
		t.Fatalf("unexpected average %v", dq.AveragePrice)
	}
	if !strings.HasPrefix(dq.Analysis, "Good deal.") {
		t.Fatalf("unexpected analysis %q", dq.Analysis)
	}
}

func TestDealQualityDegenerate(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	dq := scorer.Score(50, nil)
	if dq.Quality != models.QualityUnknown || dq.Score != 0 || dq.Percentile != 50 {
		t.Fatalf("unexpected degenerate result %+v", dq)
	}
	if dq.Trend != models.TrendUnknown || dq.AveragePrice != 50 || dq.MinPrice != 50 || dq.MaxPrice != 50 {
		t.Fatalf("unexpected degenerate fields %+v", dq)
	}

	dq = scorer.Score(-3, flatSeries(10, 20))
	if dq.Quality != models.QualityUnknown || dq.CurrentPrice != -3 {
		t.Fatalf("negative price should be degenerate, got %+v", dq)
	}

	dq = scorer.Score(math.NaN(), flatSeries(10, 20))
	if dq.Quality != models.QualityUnknown || dq.CurrentPrice != 0 {
		t.Fatalf("NaN price should be degenerate with zero price, got %+v", dq)
	}
}

func TestDealQualityNoValidPrices(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	dq := scorer.Score(10, models.PriceSeries{{Timestamp: daysAgo(3), Price: 0}})
	if dq.Quality != models.QualityUnknown || dq.Analysis != "no valid price data." {
		t.Fatalf("unexpected result %+v", dq)
	}
}

func TestDealQualityBandBoundaries(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	// 20 points 1..20; current price k yields percentile k/20.
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	series := flatSeries(prices...)
	cases := []struct {
		current float64
		want    models.Quality
	}{
		{1, models.QualityExcellent}, // 0.05
		{2, models.QualityVeryGood},  // 0.10
		{3, models.QualityVeryGood},  // 0.15
		{4, models.QualityGood},      // 0.20
		{6, models.QualityGood},      // 0.30
		{7, models.QualityFair},      // 0.35
		{12, models.QualityFair},     // 0.60
		{13, models.QualityPoor},     // 0.65
		{20, models.QualityPoor},     // 1.00
	}
	for _, c := range cases {
		if got := scorer.Score(c.current, series).Quality; got != c.want {
			t.Fatalf("current %v: expected %s, got %s", c.current, c.want, got)
		}
	}
}

func TestDealQualityMonotonicPercentile(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	series := flatSeries(12, 15, 15, 18, 22, 30, 31)
	prev := -1.0
	for p := 10.0; p <= 35; p += 0.5 {
		dq := scorer.Score(p, series)
		if dq.Percentile < prev {
			t.Fatalf("percentile decreased at %v", p)
		}
		prev = dq.Percentile
		if dq.Score < 0 || dq.Score > 100 {
			t.Fatalf("score out of range: %d", dq.Score)
		}
	}
}

func TestDealQualityScoreBoundsExtreme(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	series := flatSeries(1e6, 2e6, 3e6)
	for _, p := range []float64{0.01, 1e9, 1e-9} {
		dq := scorer.Score(p, series)
		if dq.Score < 0 || dq.Score > 100 {
			t.Fatalf("score out of range for %v: %d", p, dq.Score)
		}
	}
}

func TestDealQualityConstantSeries(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	series := seriesOf([]float64{25, 25, 25, 25}, []int{40, 20, 10, 1})
	dq := scorer.Score(25, series)
	if dq.Volatility != 0 || dq.Trend != models.TrendStable {
		t.Fatalf("expected zero volatility and stable trend, got %v %s", dq.Volatility, dq.Trend)
	}
	if dq.Percentile != 100 {
		t.Fatalf("equal price should be percentile 100, got %v", dq.Percentile)
	}
}

func TestDealQualityTrendAdjustment(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	rising := seriesOf([]float64{50, 50, 40, 60}, []int{90, 60, 20, 2})
	dq := scorer.Score(40, rising)
	if dq.Trend != models.TrendIncreasing {
		t.Fatalf("expected increasing, got %s", dq.Trend)
	}
	falling := seriesOf([]float64{50, 50, 60, 40}, []int{90, 60, 20, 2})
	dq = scorer.Score(60, falling)
	if dq.Trend != models.TrendDecreasing {
		t.Fatalf("expected decreasing, got %s", dq.Trend)
	}
	// poor band: max(10, 30-(1-0.6)*50) = 10, +5 for falling prices
	if dq.Quality != models.QualityPoor || dq.Score != 15 {
		t.Fatalf("expected poor/15, got %s/%d", dq.Quality, dq.Score)
	}
}

func TestDealQualitySavingsCallout(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	dq := scorer.Score(50, flatSeries(100, 100, 100, 50))
	if !strings.Contains(dq.Analysis, "You save") {
		t.Fatalf("expected savings callout, got %q", dq.Analysis)
	}
	dq = scorer.Score(200, flatSeries(100, 100, 100, 100))
	if !strings.Contains(dq.Analysis, "above the average") {
		t.Fatalf("expected premium callout, got %q", dq.Analysis)
	}
}

func TestDealQualityTrendWindowEndsAtClock(t *testing.T) {
	scorer := NewDealQualityScorer(DefaultThresholds(), WithClock(fixedClock))
	stale := seriesOf([]float64{100, 110, 120, 130}, []int{200, 90, 85, 61})
	if dq := scorer.Score(115, stale); dq.Trend != models.TrendStable {
		t.Fatalf("no points in the last 30 days, trend = %s", dq.Trend)
	}
	fresh := seriesOf([]float64{100, 110, 120, 130}, []int{200, 25, 15, 2})
	if dq := scorer.Score(115, fresh); dq.Trend != models.TrendIncreasing {
		t.Fatalf("recent run-up, trend = %s", dq.Trend)
	}
}
