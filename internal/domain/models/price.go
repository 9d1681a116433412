package models

import "time"

// PricePoint is a single observed price. Price is in major currency units.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// PriceSeries is ascending by timestamp with strictly positive prices.
// Only the normalizer builds one; callers must not mutate it.
type PriceSeries []PricePoint

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s) }

// Prices returns the prices in series order.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// Last returns the newest point, or false when the series is empty.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Since returns the points at or after t. The result shares the backing array.
func (s PriceSeries) Since(t time.Time) PriceSeries {
	for i, p := range s {
		if !p.Timestamp.Before(t) {
			return s[i:]
		}
	}
	return nil
}
