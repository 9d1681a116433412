package models

import "encoding/json"

// Requests for the analysis HTTP endpoints. Defined in domain for reuse by the
// Kafka and scheduler entry points.

type AnalyzeRequest struct {
	URL          string            `json:"amazon_url" validate:"required_without=ASIN,omitempty,url"`
	ASIN         string            `json:"asin" validate:"omitempty,asin"`
	Marketplace  string            `json:"marketplace" default:"com"`
	Title        string            `json:"title" validate:"required,max=500"`
	Price        string            `json:"price" validate:"max=32"`
	CurrentPrice float64           `json:"current_price" validate:"gte=0"`
	Rating       string            `json:"rating" validate:"max=16"`
	ReviewCount  string            `json:"review_count" validate:"max=32"`
	Availability string            `json:"availability" validate:"max=500"`
	ImageURL     string            `json:"image_url" validate:"omitempty,url"`
	History      []json.RawMessage `json:"csv" validate:"max=20000"`
	WindowDays   int               `json:"window_days" default:"30" validate:"gte=1,lte=365"`
}

type RecentRequest struct {
	Limit int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
	Since string `query:"since" json:"since"`
}

type CategoryRequest struct {
	Title string `query:"title" json:"title" validate:"required,max=500"`
}
