package analytics

import (
	"fmt"
	"strings"
	"time"

	"ImpulseSaver/internal/domain/models"
	domsvc "ImpulseSaver/internal/domain/service"
	"ImpulseSaver/internal/services/features"
)

// InflationDetector looks for a run-up inside a trailing window that would
// make a later "discount" look larger than it is.
type InflationDetector struct {
	t   Thresholds
	now func() time.Time
}

func NewInflationDetector(t Thresholds, opts ...Option) *InflationDetector {
	o := buildOptions(opts)
	return &InflationDetector{t: t.withDefaults(), now: o.now}
}

func (d *InflationDetector) Detect(series models.PriceSeries, days int) models.InflationReport {
	if days <= 0 {
		days = d.t.InflationWindowDays
	}
	insufficient := models.InflationReport{
		Analysis: fmt.Sprintf("Insufficient data to check for price manipulation over the last %d days.", days),
	}
	if len(series) < 2 {
		return insufficient
	}
	window := features.Window(series, d.now(), days)
	if len(window) < 2 {
		return insufficient
	}

	start := window[0].Price
	end := window[len(window)-1].Price
	rate := features.PercentChange(start, end)
	spike := features.PercentChange(features.Mean(series.Prices()), features.Mean(window.Prices()))

	var reasons []string
	if rate > d.t.InflationRatePercent {
		reasons = append(reasons, fmt.Sprintf("price rose %.1f%% over the last %d days", rate, days))
	}
	if spike > d.t.SpikeFactorPercent {
		reasons = append(reasons, fmt.Sprintf("the %d-day average is %.1f%% above the all-time average", days, spike))
	}

	report := models.InflationReport{
		InflationDetected: len(reasons) > 0,
		InflationRate:     features.Round1(rate),
		SpikeFactor:       features.Round1(spike),
		PeriodDays:        days,
		StartPrice:        start,
		EndPrice:          end,
	}
	if report.InflationDetected {
		report.Analysis = "Possible artificial inflation before a sale: " + strings.Join(reasons, "; ") + "."
	} else {
		report.Analysis = fmt.Sprintf("No manipulation detected: price moved %.1f%% over the last %d days.", rate, days)
	}
	return report
}

var _ domsvc.ManipulationDetector = (*InflationDetector)(nil)
