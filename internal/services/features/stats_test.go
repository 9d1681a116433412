package features

import (
	"math"
	"testing"
	"time"

	"ImpulseSaver/internal/domain/models"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.N != 8 || s.Mean != 5 || s.Min != 2 || s.Max != 9 {
		t.Fatalf("unexpected summary %+v", s)
	}
	// sample stddev of the set is sqrt(32/7)
	if math.Abs(s.StdDev-math.Sqrt(32.0/7.0)) > 1e-9 {
		t.Fatalf("unexpected stddev %v", s.StdDev)
	}
}

func TestSummarizeSingle(t *testing.T) {
	s := Summarize([]float64{42})
	if s.StdDev != 0 || s.Mean != 42 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if CoefficientOfVariation(s) != 0 {
		t.Fatalf("expected zero cv")
	}
}

func TestPercentileRankMonotonic(t *testing.T) {
	xs := []float64{10, 20, 20, 30, 40}
	prev := -1.0
	for x := 0.0; x <= 50; x += 2.5 {
		p := PercentileRank(xs, x)
		if p < prev {
			t.Fatalf("percentile decreased at %v: %v < %v", x, p, prev)
		}
		prev = p
	}
	if PercentileRank(xs, 40) != 1 {
		t.Fatalf("expected 1 at max")
	}
	if PercentileRank(xs, 20) != 0.6 {
		t.Fatalf("ties should count as <=")
	}
}

func TestPercentChange(t *testing.T) {
	if PercentChange(100, 120) != 20 {
		t.Fatalf("expected 20")
	}
	if PercentChange(0, 10) != 0 {
		t.Fatalf("expected 0 for zero base")
	}
}

func TestRoundAndClamp(t *testing.T) {
	if Round1(16.3795) != 16.4 {
		t.Fatalf("round1 mismatch: %v", Round1(16.3795))
	}
	if Clamp(math.NaN(), 0, 100) != 0 || Clamp(150, 0, 100) != 100 || Clamp(-3, 0, 100) != 0 {
		t.Fatalf("clamp mismatch")
	}
	if ClampInt(-5, 0, 100) != 0 || ClampInt(105, 0, 100) != 100 {
		t.Fatalf("clampInt mismatch")
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	series := models.PriceSeries{
		{Timestamp: now.AddDate(0, 0, -40), Price: 1},
		{Timestamp: now.AddDate(0, 0, -10), Price: 2},
		{Timestamp: now.AddDate(0, 0, -1), Price: 3},
	}
	w := Window(series, now, 30)
	if len(w) != 2 || w[0].Price != 2 {
		t.Fatalf("unexpected window %+v", w)
	}
	if Window(series, now, 0) != nil {
		t.Fatalf("expected nil window for zero days")
	}
}
