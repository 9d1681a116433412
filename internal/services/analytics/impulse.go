package analytics

import (
	"strings"

	"ImpulseSaver/internal/domain/models"
	domsvc "ImpulseSaver/internal/domain/service"
	"ImpulseSaver/internal/services/category"
	"ImpulseSaver/internal/services/features"
	"ImpulseSaver/pkg/util"
)

// ImpulseScorer sums six bounded factors plus small category and listing
// adjustments into a 0-100 score.
type ImpulseScorer struct {
	t Thresholds
}

func NewImpulseScorer(t Thresholds) *ImpulseScorer {
	return &ImpulseScorer{t: t.withDefaults()}
}

func (s *ImpulseScorer) Compose(in domsvc.ImpulseInput) models.ImpulseResult {
	title := strings.ToLower(in.Title)
	listing := title + " " + strings.ToLower(in.Availability)

	f := models.ImpulseFactors{
		PriceManipulation: s.manipulation(in.Inflation),
		ScarcityTactics:   features.ClampInt(5*countKeywords(listing, scarcityKeywords), 0, 20),
		UrgencyLanguage:   features.ClampInt(5*countKeywords(listing, urgencyKeywords), 0, 15),
		EmotionalTriggers: features.ClampInt(2*countKeywords(title, emotionalKeywords[category.GroupOf(in.Category)]), 0, 10),
		DealAuthenticity:  dealAuthenticity(in.Deal.Quality),
		VolatilityFactor:  s.volatility(in.Deal.Volatility),
	}

	score := f.Sum() + s.adjustment(title, in.Category, in.ReviewCount)
	return models.ImpulseResult{
		Score:   features.ClampInt(score, 0, 100),
		Factors: f,
	}
}

func (s *ImpulseScorer) manipulation(r models.InflationReport) int {
	switch {
	case !r.InflationDetected:
		return 0
	case r.SpikeFactor > s.t.SevereSpikePercent:
		return 30
	default:
		return 25
	}
}

func (s *ImpulseScorer) volatility(v float64) int {
	switch {
	case v > s.t.HighVolatility:
		return 10
	case v > s.t.ModerateVolatility:
		return 5
	default:
		return 0
	}
}

// dealAuthenticity is inverted: the worse the deal, the higher the pressure.
func dealAuthenticity(q models.Quality) int {
	switch q {
	case models.QualityPoor:
		return 25
	case models.QualityFair:
		return 15
	case models.QualityGood, models.QualityVeryGood:
		return 5
	default:
		return 0
	}
}

func (s *ImpulseScorer) adjustment(title, cat, reviews string) int {
	adj := 0
	if containsAny(title, "sale", "deal") {
		adj += 5
	}
	switch {
	case cat == category.Books:
		adj -= 5
	case cat == category.Beauty || cat == category.Skincare || cat == category.Supplements:
		adj += 3
	case category.GroupOf(cat) == category.GroupElectronics && containsAny(title, "new", "latest"):
		adj += 3
	}
	if n, ok := util.ParseCount(reviews); ok && n < s.t.LowReviewCount {
		adj += 5
	}
	return adj
}

var _ domsvc.ImpulseComposer = (*ImpulseScorer)(nil)
