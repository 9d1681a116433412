package models

// Candidate is a catalog product that may replace the analysed one.
type Candidate struct {
	ASIN        string   `json:"asin"`
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// Alternative is a cheaper candidate with savings math applied.
type Alternative struct {
	ASIN           string   `json:"asin"`
	Title          string   `json:"title"`
	Price          float64  `json:"price"`
	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	ProductURL     string   `json:"amazon_url,omitempty"`
	AffiliateURL   string   `json:"affiliate_url,omitempty"`
	Savings        float64  `json:"savings"`
	SavingsPercent float64  `json:"savings_percent"`
	WhyBetter      string   `json:"why_better"`
}
