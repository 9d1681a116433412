package features

import (
	"math"
	"time"

	"ImpulseSaver/internal/domain/models"
)

// PositivePrices returns the strictly positive prices of the series, in order.
func PositivePrices(series models.PriceSeries) []float64 {
	out := make([]float64, 0, len(series))
	for _, p := range series {
		if p.Price > 0 {
			out = append(out, p.Price)
		}
	}
	return out
}

// Summary holds the basic moments of a price set.
type Summary struct {
	N      int
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64
}

// Summarize computes mean, min, max and sample standard deviation in one pass.
// StdDev is 0 with fewer than 2 values.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := Summary{N: len(xs), Min: xs[0], Max: xs[0]}
	sum := 0.0
	sum2 := 0.0
	for _, x := range xs {
		sum += x
		sum2 += x * x
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
	}
	n := float64(len(xs))
	s.Mean = sum / n
	if len(xs) < 2 {
		return s
	}
	variance := (sum2 - n*s.Mean*s.Mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	s.StdDev = math.Sqrt(variance)
	return s
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 { return Summarize(xs).Mean }

// PercentileRank returns the fraction of xs that are <= x, in [0,1].
// Ties count as <=, so x equal to every value yields 1.
func PercentileRank(xs []float64, x float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	c := 0
	for _, v := range xs {
		if v <= x {
			c++
		}
	}
	return float64(c) / float64(len(xs))
}

// PercentChange returns (to-from)/from*100, or 0 when from is not positive.
func PercentChange(from, to float64) float64 {
	if from <= 0 {
		return 0
	}
	return (to - from) / from * 100
}

// CoefficientOfVariation returns stddev/mean*100, 0 when undefined.
func CoefficientOfVariation(s Summary) float64 {
	if s.N < 2 || s.Mean <= 0 {
		return 0
	}
	return s.StdDev / s.Mean * 100
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Clamp bounds x to [lo, hi]. NaN maps to lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ClampInt bounds x to [lo, hi].
func ClampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Window returns the points no older than days before now.
func Window(series models.PriceSeries, now time.Time, days int) models.PriceSeries {
	if days <= 0 {
		return nil
	}
	return series.Since(now.Add(-time.Duration(days) * 24 * time.Hour))
}
