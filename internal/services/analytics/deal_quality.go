package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"ImpulseSaver/internal/domain/models"
	domsvc "ImpulseSaver/internal/domain/service"
	"ImpulseSaver/internal/services/features"
)

// Option configures an engine component.
type Option func(*engineOptions)

type engineOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for trailing windows.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) engineOptions {
	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DealQualityScorer bands the current price by its historical percentile.
type DealQualityScorer struct {
	t   Thresholds
	now func() time.Time
}

func NewDealQualityScorer(t Thresholds, opts ...Option) *DealQualityScorer {
	o := buildOptions(opts)
	return &DealQualityScorer{t: t.withDefaults(), now: o.now}
}

func (s *DealQualityScorer) Score(currentPrice float64, series models.PriceSeries) models.DealQuality {
	if len(series) == 0 || !(currentPrice > 0) || math.IsInf(currentPrice, 0) {
		return degenerateDeal(currentPrice, "Insufficient price history to evaluate this deal.")
	}
	valid := make(models.PriceSeries, 0, len(series))
	for _, p := range series {
		if p.Price > 0 {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return degenerateDeal(currentPrice, "no valid price data.")
	}

	prices := valid.Prices()
	sum := features.Summarize(prices)
	pct := features.PercentileRank(prices, currentPrice)
	trend := s.trend(valid)
	volatility := features.CoefficientOfVariation(sum)
	savings := (sum.Mean - currentPrice) / sum.Mean * 100

	quality, score := s.band(pct, savings)
	switch trend {
	case models.TrendIncreasing:
		score = math.Max(score-10, 10)
	case models.TrendDecreasing:
		score = math.Min(score+5, 100)
	}
	score = features.Clamp(score, 0, 100)

	return models.DealQuality{
		Quality:        quality,
		Score:          int(score),
		CurrentPrice:   currentPrice,
		AveragePrice:   sum.Mean,
		MinPrice:       sum.Min,
		MaxPrice:       sum.Max,
		Percentile:     features.Round1(pct * 100),
		SavingsPercent: features.Round1(savings),
		Trend:          trend,
		Volatility:     features.Round1(volatility),
		Analysis:       s.describe(quality, trend, savings, sum.Mean),
	}
}

// band maps a percentile fraction in [0,1] to a quality and raw score.
func (s *DealQualityScorer) band(pct, savings float64) (models.Quality, float64) {
	switch {
	case pct <= s.t.ExcellentPercentile:
		return models.QualityExcellent, 95 + math.Min(5, savings*0.2)
	case pct <= s.t.VeryGoodPercentile:
		return models.QualityVeryGood, 85 + math.Min(10, savings*0.3)
	case pct <= s.t.GoodPercentile:
		return models.QualityGood, 70 + math.Min(15, savings*0.5)
	case pct <= s.t.FairPercentile:
		return models.QualityFair, 50 + math.Min(20, savings*0.7)
	default:
		return models.QualityPoor, math.Max(10, 30-(pct-s.t.FairPercentile)*50)
	}
}

func (s *DealQualityScorer) trend(series models.PriceSeries) models.Trend {
	recent := features.Window(series, s.now(), s.t.TrendWindowDays)
	if len(recent) < 2 {
		return models.TrendStable
	}
	change := features.PercentChange(recent[0].Price, recent[len(recent)-1].Price)
	switch {
	case change > s.t.TrendPercent:
		return models.TrendIncreasing
	case change < -s.t.TrendPercent:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

func (s *DealQualityScorer) describe(q models.Quality, trend models.Trend, savings, avg float64) string {
	var b strings.Builder
	switch q {
	case models.QualityExcellent:
		fmt.Fprintf(&b, "Excellent deal! Current price is in the bottom %.0f%% of historical prices.", s.t.ExcellentPercentile*100)
	case models.QualityVeryGood:
		fmt.Fprintf(&b, "Very good deal. Current price is in the bottom %.0f%% of historical prices.", s.t.VeryGoodPercentile*100)
	case models.QualityGood:
		b.WriteString("Good deal. Current price is below most historical prices.")
	case models.QualityFair:
		b.WriteString("Fair price. Current price is close to the typical historical price.")
	default:
		b.WriteString("Poor deal. Current price is higher than usual.")
	}
	switch trend {
	case models.TrendIncreasing:
		fmt.Fprintf(&b, " Prices have been rising over the last %d days.", s.t.TrendWindowDays)
	case models.TrendDecreasing:
		fmt.Fprintf(&b, " Prices have been falling over the last %d days and may drop further.", s.t.TrendWindowDays)
	default:
		b.WriteString(" Prices have been stable recently.")
	}
	if math.Abs(savings) > s.t.SavingsCalloutPercent {
		if savings > 0 {
			fmt.Fprintf(&b, " You save %.1f%% versus the average price of $%.2f.", savings, avg)
		} else {
			fmt.Fprintf(&b, " This is %.1f%% above the average price of $%.2f.", -savings, avg)
		}
	}
	return b.String()
}

func degenerateDeal(currentPrice float64, analysis string) models.DealQuality {
	if math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		currentPrice = 0
	}
	return models.DealQuality{
		Quality:        models.QualityUnknown,
		Score:          0,
		CurrentPrice:   currentPrice,
		AveragePrice:   currentPrice,
		MinPrice:       currentPrice,
		MaxPrice:       currentPrice,
		Percentile:     50.0,
		SavingsPercent: 0.0,
		Trend:          models.TrendUnknown,
		Volatility:     0.0,
		Analysis:       analysis,
	}
}

var _ domsvc.DealScorer = (*DealQualityScorer)(nil)
