package repository

import (
	"context"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
)

func ratingOf(v float64) *float64 { return &v }
func reviewsOf(v int) *int        { return &v }

// builtinCatalog seeds the candidate source. Keys are classifier categories.
var builtinCatalog = map[string][]models.Candidate{
	"headphones": {
		{ASIN: "B0BQPNMXQV", Title: "Soundcore Q20i Hybrid Active Noise Cancelling Headphones", Price: 49.99, Rating: ratingOf(4.5), ReviewCount: reviewsOf(38214)},
		{ASIN: "B07Q9MJKBV", Title: "JLab Go Air Pop True Wireless Earbuds", Price: 19.88, Rating: ratingOf(4.3), ReviewCount: reviewsOf(101532)},
		{ASIN: "B0863TXGM3", Title: "Sony WH-CH520 Wireless On-Ear Headphones", Price: 38.00, Rating: ratingOf(4.5), ReviewCount: reviewsOf(25410)},
	},
	"speakers": {
		{ASIN: "B07MWPDR4Y", Title: "Anker Soundcore 2 Portable Bluetooth Speaker", Price: 39.99, Rating: ratingOf(4.6), ReviewCount: reviewsOf(86201)},
		{ASIN: "B0BT8L8T3Q", Title: "Tribit StormBox Micro 2 Portable Speaker", Price: 59.99, Rating: ratingOf(4.5), ReviewCount: reviewsOf(9120)},
	},
	"laptop": {
		{ASIN: "B0CRDCMC5Z", Title: "Acer Aspire 3 Slim Laptop 15.6 inch", Price: 299.99, Rating: ratingOf(4.3), ReviewCount: reviewsOf(4211)},
		{ASIN: "B0C3RDV2Y4", Title: "Lenovo IdeaPad Slim 3 Laptop 15.6 inch", Price: 449.00, Rating: ratingOf(4.4), ReviewCount: reviewsOf(2760)},
		{ASIN: "B0B8TS3Y7B", Title: "ASUS Vivobook Go 15 Laptop", Price: 279.99, Rating: ratingOf(4.1), ReviewCount: reviewsOf(3318)},
	},
	"smartwatch": {
		{ASIN: "B0B4N7SLGQ", Title: "Amazfit Bip 3 Pro Smart Watch", Price: 59.99, Rating: ratingOf(4.3), ReviewCount: reviewsOf(15902)},
		{ASIN: "B0B5TJ6FKX", Title: "Fitbit Inspire 3 Health and Fitness Tracker", Price: 69.95, Rating: ratingOf(4.2), ReviewCount: reviewsOf(21087)},
	},
	"coffee": {
		{ASIN: "B00EI7DPI0", Title: "Mr. Coffee 12-Cup Programmable Coffee Maker", Price: 34.99, Rating: ratingOf(4.4), ReviewCount: reviewsOf(44870)},
		{ASIN: "B00LU2I8M6", Title: "Bodum Chambord French Press Coffee Maker", Price: 29.95, Rating: ratingOf(4.6), ReviewCount: reviewsOf(30215)},
	},
	"kitchen": {
		{ASIN: "B07W55DDFB", Title: "Instant Pot Duo 7-in-1 Electric Pressure Cooker", Price: 79.95, Rating: ratingOf(4.7), ReviewCount: reviewsOf(160231)},
		{ASIN: "B07VM28XTR", Title: "COSORI Air Fryer 5.8 QT", Price: 89.99, Rating: ratingOf(4.6), ReviewCount: reviewsOf(58930)},
	},
	"vacuum": {
		{ASIN: "B08SP5GYJP", Title: "eufy RoboVac 11S MAX Robot Vacuum", Price: 139.99, Rating: ratingOf(4.4), ReviewCount: reviewsOf(50122)},
		{ASIN: "B07DLBRY2Y", Title: "BISSELL CleanView Compact Upright Vacuum", Price: 79.99, Rating: ratingOf(4.3), ReviewCount: reviewsOf(12004)},
	},
	"skincare": {
		{ASIN: "B00TTD9BRC", Title: "CeraVe Moisturizing Cream 19 oz", Price: 17.78, Rating: ratingOf(4.8), ReviewCount: reviewsOf(112493)},
		{ASIN: "B01MSSDEPK", Title: "The Ordinary Niacinamide 10% + Zinc 1%", Price: 6.00, Rating: ratingOf(4.3), ReviewCount: reviewsOf(91840)},
	},
	"fitness": {
		{ASIN: "B01LP0U5X0", Title: "Amazon Basics 1/2 inch Extra Thick Exercise Yoga Mat", Price: 21.99, Rating: ratingOf(4.5), ReviewCount: reviewsOf(88650)},
		{ASIN: "B07DWSBX7K", Title: "Fit Simplify Resistance Loop Exercise Bands", Price: 10.95, Rating: ratingOf(4.5), ReviewCount: reviewsOf(120311)},
	},
	"books": {
		{ASIN: "0735211299", Title: "Atomic Habits by James Clear (Paperback)", Price: 13.79, Rating: ratingOf(4.8), ReviewCount: reviewsOf(150002)},
	},
	"general": {
		{ASIN: "B00KC4CSRU", Title: "Amazon Basics Reusable Shopping Tote Bags", Price: 14.99, Rating: ratingOf(4.7), ReviewCount: reviewsOf(20466)},
	},
}

// StaticCatalog serves the built-in table directly. Used when no catalog
// database is configured.
type StaticCatalog struct {
	items map[string][]models.Candidate
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{items: builtinCatalog}
}

// Candidates returns a copy of the category's candidates; unknown
// categories yield an empty list.
func (c *StaticCatalog) Candidates(_ context.Context, category string) ([]models.Candidate, error) {
	src := c.items[category]
	out := make([]models.Candidate, len(src))
	copy(out, src)
	return out, nil
}

// BuiltinCatalog exposes the seed table for catalog backends.
func BuiltinCatalog() map[string][]models.Candidate { return builtinCatalog }

var _ domrepo.CandidateSource = (*StaticCatalog)(nil)
