package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"ImpulseSaver/internal/domain/models"
	"ImpulseSaver/internal/domain/repository"
	domsvc "ImpulseSaver/internal/domain/service"
)

var hundred = decimal.NewFromInt(100)

// AlternativeRanker keeps candidates cheaper than the current product and
// orders them by absolute savings.
type AlternativeRanker struct {
	t            Thresholds
	affiliateTag string
}

func NewAlternativeRanker(t Thresholds, affiliateTag string) *AlternativeRanker {
	return &AlternativeRanker{t: t.withDefaults(), affiliateTag: affiliateTag}
}

func (r *AlternativeRanker) Rank(in domsvc.RankInput) []models.Alternative {
	out := make([]models.Alternative, 0, r.t.MaxAlternatives)
	if !(in.CurrentPrice > 0) {
		return out
	}
	mp := repository.NormalizeMarketplace(in.Marketplace)
	current := decimal.NewFromFloat(in.CurrentPrice)

	for _, c := range in.Candidates {
		if c.ASIN == "" || strings.EqualFold(c.ASIN, in.ExcludeASIN) {
			continue
		}
		if !(c.Price > 0) || c.Price >= in.CurrentPrice {
			continue
		}
		savings := current.Sub(decimal.NewFromFloat(c.Price)).Round(2)
		if !savings.IsPositive() {
			continue
		}
		amount, _ := savings.Float64()
		pct, _ := savings.Div(current).Mul(hundred).Round(1).Float64()
		alt := models.Alternative{
			ASIN:           c.ASIN,
			Title:          c.Title,
			Price:          c.Price,
			Rating:         c.Rating,
			ReviewCount:    c.ReviewCount,
			ImageURL:       c.ImageURL,
			ProductURL:     mp.ProductURL(c.ASIN, ""),
			Savings:        amount,
			SavingsPercent: pct,
			WhyBetter:      r.whyBetter(savings, pct, c),
		}
		if r.affiliateTag != "" {
			alt.AffiliateURL = mp.ProductURL(c.ASIN, r.affiliateTag)
		}
		out = append(out, alt)
	}

	slices.SortStableFunc(out, func(a, b models.Alternative) int {
		return cmp.Compare(b.Savings, a.Savings)
	})
	if len(out) > r.t.MaxAlternatives {
		out = out[:r.t.MaxAlternatives]
	}
	return out
}

func (r *AlternativeRanker) whyBetter(savings decimal.Decimal, pct float64, c models.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Save $%s (%.1f%% less)", savings.StringFixed(2), pct)
	if c.Rating != nil {
		fmt.Fprintf(&b, " with %s ratings (%.1f/5)", r.ratingTier(*c.Rating), *c.Rating)
	}
	if c.ReviewCount != nil && *c.ReviewCount > 0 {
		fmt.Fprintf(&b, " from %s reviews", humanize.Comma(int64(*c.ReviewCount)))
	}
	return b.String()
}

func (r *AlternativeRanker) ratingTier(rating float64) string {
	switch {
	case rating >= r.t.ExcellentRating:
		return "excellent"
	case rating >= r.t.VeryGoodRating:
		return "very good"
	default:
		return "good"
	}
}

var _ domsvc.AlternativeRanker = (*AlternativeRanker)(nil)
