package models

// ImpulseFactors is the per-factor breakdown of an impulse score.
type ImpulseFactors struct {
	PriceManipulation int `json:"price_manipulation"` // 0-30
	ScarcityTactics   int `json:"scarcity_tactics"`   // 0-20
	UrgencyLanguage   int `json:"urgency_language"`   // 0-15
	EmotionalTriggers int `json:"emotional_triggers"` // 0-10
	DealAuthenticity  int `json:"deal_authenticity"`  // 0-25
	VolatilityFactor  int `json:"volatility_factor"`  // 0-10
}

// Sum adds the six factors.
func (f ImpulseFactors) Sum() int {
	return f.PriceManipulation + f.ScarcityTactics + f.UrgencyLanguage +
		f.EmotionalTriggers + f.DealAuthenticity + f.VolatilityFactor
}

// ImpulseResult is the composite score plus its breakdown.
type ImpulseResult struct {
	Score   int            `json:"impulse_score"`
	Factors ImpulseFactors `json:"impulse_factors"`
}
