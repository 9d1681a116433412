package analytics

import (
	"fmt"

	"github.com/creasty/defaults"
)

// Thresholds are the tunable cutoffs of the scoring engine. The defaults
// reproduce the production behaviour; change them only with a backtest.
type Thresholds struct {
	// Deal quality
	TrendWindowDays       int     `yaml:"trend_window_days" default:"30"`
	TrendPercent          float64 `yaml:"trend_percent" default:"10"`
	ExcellentPercentile   float64 `yaml:"excellent_percentile" default:"0.05"`
	VeryGoodPercentile    float64 `yaml:"very_good_percentile" default:"0.15"`
	GoodPercentile        float64 `yaml:"good_percentile" default:"0.30"`
	FairPercentile        float64 `yaml:"fair_percentile" default:"0.60"`
	SavingsCalloutPercent float64 `yaml:"savings_callout_percent" default:"20"`

	// Manipulation
	InflationWindowDays  int     `yaml:"inflation_window_days" default:"30"`
	InflationRatePercent float64 `yaml:"inflation_rate_percent" default:"15"`
	SpikeFactorPercent   float64 `yaml:"spike_factor_percent" default:"25"`
	SevereSpikePercent   float64 `yaml:"severe_spike_percent" default:"30"`

	// Impulse
	HighVolatility     float64 `yaml:"high_volatility" default:"20"`
	ModerateVolatility float64 `yaml:"moderate_volatility" default:"10"`
	LowReviewCount     int     `yaml:"low_review_count" default:"50"`

	// Alternatives
	MaxAlternatives int     `yaml:"max_alternatives" default:"3"`
	ExcellentRating float64 `yaml:"excellent_rating" default:"4.5"`
	VeryGoodRating  float64 `yaml:"very_good_rating" default:"4.0"`
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	var t Thresholds
	_ = defaults.Set(&t)
	return t
}

// Validate rejects cutoffs that withDefaults would treat as unset. A zero
// in config is an error rather than a silent fallback to the default.
func (t Thresholds) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"trend_window_days", float64(t.TrendWindowDays)},
		{"trend_percent", t.TrendPercent},
		{"excellent_percentile", t.ExcellentPercentile},
		{"savings_callout_percent", t.SavingsCalloutPercent},
		{"inflation_window_days", float64(t.InflationWindowDays)},
		{"inflation_rate_percent", t.InflationRatePercent},
		{"spike_factor_percent", t.SpikeFactorPercent},
		{"severe_spike_percent", t.SevereSpikePercent},
		{"high_volatility", t.HighVolatility},
		{"moderate_volatility", t.ModerateVolatility},
		{"low_review_count", float64(t.LowReviewCount)},
		{"max_alternatives", float64(t.MaxAlternatives)},
		{"excellent_rating", t.ExcellentRating},
		{"very_good_rating", t.VeryGoodRating},
	}
	for _, p := range positive {
		if !(p.value > 0) {
			return fmt.Errorf("%s must be positive, got %v", p.name, p.value)
		}
	}
	if !(t.ExcellentPercentile < t.VeryGoodPercentile && t.VeryGoodPercentile < t.GoodPercentile &&
		t.GoodPercentile < t.FairPercentile && t.FairPercentile <= 1) {
		return fmt.Errorf("percentile bands must be strictly increasing and at most 1")
	}
	if t.ModerateVolatility >= t.HighVolatility {
		return fmt.Errorf("moderate_volatility must be below high_volatility")
	}
	if t.VeryGoodRating >= t.ExcellentRating {
		return fmt.Errorf("very_good_rating must be below excellent_rating")
	}
	return nil
}

// withDefaults fills zero fields, so a partially populated struct still works.
func (t Thresholds) withDefaults() Thresholds {
	_ = defaults.Set(&t)
	return t
}
