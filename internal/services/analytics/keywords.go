package analytics

import (
	"strings"

	"ImpulseSaver/internal/services/category"
)

var scarcityKeywords = []string{
	"limited", "limited time", "only", "left", "left in stock", "few left",
	"almost gone", "selling fast", "low stock", "while supplies last",
	"last chance", "exclusive", "rare", "limited edition",
}

var urgencyKeywords = []string{
	"flash", "sale", "limited time", "today only", "hurry", "ends soon",
	"ending soon", "deal of the day", "lightning", "act fast", "act now",
	"don't miss", "countdown", "expires", "last day",
}

var emotionalKeywords = map[category.Group][]string{
	category.GroupBeautyHealth: {
		"glow", "radiant", "youthful", "anti-aging", "flawless", "miracle",
		"transform", "natural", "luxury", "pamper", "confidence", "beautiful",
	},
	category.GroupFitness: {
		"transform", "results", "burn", "shred", "power", "beast", "extreme",
		"ultimate", "performance", "sculpt", "energy", "champion",
	},
	category.GroupElectronics: {
		"ultimate", "premium", "immersive", "next-gen", "revolutionary",
		"cutting-edge", "powerful", "elite", "epic", "advanced", "pro-grade", "flagship",
	},
	category.GroupBooks: {
		"bestseller", "best seller", "life-changing", "must-read", "inspiring",
		"secrets", "award-winning", "masterpiece", "unforgettable",
	},
	category.GroupGeneric: {
		"amazing", "best", "perfect", "incredible", "must-have", "premium",
		"luxury", "ultimate", "love", "gift", "favorite", "stunning",
	},
}

// countKeywords counts distinct keywords present as substrings of text.
// text must already be lowercase.
func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
