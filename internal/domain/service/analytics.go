package service

import "ImpulseSaver/internal/domain/models"

// DealScorer places a current price within its price history.
type DealScorer interface {
	Score(currentPrice float64, series models.PriceSeries) models.DealQuality
}

// ManipulationDetector flags suspicious recent price run-ups. days <= 0 uses the default window.
type ManipulationDetector interface {
	Detect(series models.PriceSeries, days int) models.InflationReport
}

// CategoryClassifier maps a free-text title to one category tag.
type CategoryClassifier interface {
	Classify(title string) string
}

// ImpulseInput is everything the impulse composer reads.
type ImpulseInput struct {
	Title        string
	Availability string
	Category     string
	ReviewCount  string
	Deal         models.DealQuality
	Inflation    models.InflationReport
}

// ImpulseComposer produces the 0-100 impulse risk score.
type ImpulseComposer interface {
	Compose(in ImpulseInput) models.ImpulseResult
}

// RankInput is the ranker's view of the product being replaced.
type RankInput struct {
	ExcludeASIN  string
	CurrentPrice float64
	Marketplace  string
	Candidates   []models.Candidate
}

// AlternativeRanker picks cheaper candidates, best savings first.
type AlternativeRanker interface {
	Rank(in RankInput) []models.Alternative
}
