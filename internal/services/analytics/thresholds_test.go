package analytics

import (
	"strings"
	"testing"
)

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	zero := DefaultThresholds()
	zero.TrendPercent = 0
	err := zero.Validate()
	if err == nil || !strings.Contains(err.Error(), "trend_percent") {
		t.Fatalf("zero trend_percent: err = %v", err)
	}

	bands := DefaultThresholds()
	bands.FairPercentile = 1.5
	if bands.Validate() == nil {
		t.Fatalf("fair percentile above 1 must fail")
	}

	vol := DefaultThresholds()
	vol.ModerateVolatility = vol.HighVolatility
	if vol.Validate() == nil {
		t.Fatalf("moderate volatility must stay below high")
	}
}
