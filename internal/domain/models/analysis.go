package models

import "time"

// Verdict is the buy/wait/skip recommendation.
type Verdict string

const (
	VerdictBuy  Verdict = "BUY"
	VerdictWait Verdict = "WAIT"
	VerdictSkip Verdict = "SKIP"
)

// ProductData is what the catalog scraper knows about a listing.
type ProductData struct {
	Title        string `json:"title"`
	Price        string `json:"price,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Rating       string `json:"rating,omitempty"`
	ReviewCount  string `json:"review_count,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// ProductAnalysis bundles every artifact produced for one request.
// Note: no transport concerns beyond json tags.
type ProductAnalysis struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	ASIN            string            `json:"asin"`
	Marketplace     string            `json:"marketplace"`
	Product         ProductData       `json:"product_data"`
	Category        string            `json:"category"`
	PriceHistory    PriceSeries       `json:"price_history"`
	Deal            DealQuality       `json:"deal_analysis"`
	Inflation       InflationReport   `json:"inflation_analysis"`
	Alternatives    []Alternative     `json:"alternatives"`
	Verdict         Verdict           `json:"verdict"`
	ImpulseScore    int               `json:"impulse_score"`
	ImpulseFactors  ImpulseFactors    `json:"impulse_factors"`
	ConfidenceScore int               `json:"confidence_score"`
	Timestamp       time.Time         `json:"timestamp"`
	Errors          map[string]string `json:"errors,omitempty"`
}

// AnalysisSummary is the compact record kept by the analysis store.
type AnalysisSummary struct {
	ID           string    `json:"id"`
	ASIN         string    `json:"asin"`
	Marketplace  string    `json:"marketplace"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	CurrentPrice float64   `json:"current_price"`
	Quality      Quality   `json:"quality"`
	ImpulseScore int       `json:"impulse_score"`
	Verdict      Verdict   `json:"verdict"`
	Timestamp    time.Time `json:"timestamp"`

	// Listing is the scraped input the analysis ran on, kept for rescans.
	Listing ProductData `json:"-"`
}

// Summary projects an analysis into its stored summary.
func (a *ProductAnalysis) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:           a.ID,
		ASIN:         a.ASIN,
		Marketplace:  a.Marketplace,
		Title:        a.Product.Title,
		Category:     a.Category,
		CurrentPrice: a.Deal.CurrentPrice,
		Quality:      a.Deal.Quality,
		ImpulseScore: a.ImpulseScore,
		Verdict:      a.Verdict,
		Timestamp:    a.Timestamp,
		Listing:      a.Product,
	}
}
