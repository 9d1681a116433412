package models

// Quality is the deal-quality band of a current price.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityVeryGood  Quality = "very_good"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
	QualityUnknown   Quality = "unknown"
)

// Trend is the recent price direction.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendUnknown    Trend = "unknown"
)

// DealQuality describes where the current price sits in its history.
// Percentile, SavingsPercent and Volatility are percentages rounded to one decimal.
type DealQuality struct {
	Quality        Quality `json:"quality"`
	Score          int     `json:"score"`
	CurrentPrice   float64 `json:"current_price"`
	AveragePrice   float64 `json:"average_price"`
	MinPrice       float64 `json:"min_price"`
	MaxPrice       float64 `json:"max_price"`
	Percentile     float64 `json:"percentile"`
	SavingsPercent float64 `json:"savings_percent"`
	Trend          Trend   `json:"trend"`
	Volatility     float64 `json:"volatility"`
	Analysis       string  `json:"analysis"`
}

// InflationReport flags a suspicious recent run-up in price.
type InflationReport struct {
	InflationDetected bool    `json:"inflation_detected"`
	InflationRate     float64 `json:"inflation_rate"`
	SpikeFactor       float64 `json:"spike_factor"`
	PeriodDays        int     `json:"period_days"`
	StartPrice        float64 `json:"start_price"`
	EndPrice          float64 `json:"end_price"`
	Analysis          string  `json:"analysis"`
}
