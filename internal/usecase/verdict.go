package usecase

import "ImpulseSaver/internal/domain/models"

// Verdict turns the scored artifacts into a recommendation. An inflated
// price always waits; otherwise the deal band sets how much impulse
// pressure is tolerated.
func Verdict(deal models.DealQuality, inflation models.InflationReport, impulse int) models.Verdict {
	if inflation.InflationDetected {
		return models.VerdictWait
	}
	switch deal.Quality {
	case models.QualityPoor:
		if impulse >= 50 {
			return models.VerdictSkip
		}
		return models.VerdictWait
	case models.QualityExcellent, models.QualityVeryGood:
		if impulse < 60 {
			return models.VerdictBuy
		}
		return models.VerdictWait
	case models.QualityGood:
		if impulse < 40 {
			return models.VerdictBuy
		}
		return models.VerdictWait
	default:
		return models.VerdictWait
	}
}

// Confidence grows with the amount of history behind the verdict.
func Confidence(points int) int {
	if points <= 0 {
		return 30
	}
	if c := 50 + points; c < 95 {
		return c
	}
	return 95
}
