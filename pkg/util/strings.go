package util

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// ParseCount extracts the first integer from text like "1,234 ratings".
// Thousands separators are ignored.
func ParseCount(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 && r != ',' {
			break
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePrice extracts a major-unit price from display text such as
// "$1,299.99" or "EUR 49.90". Returns false when no positive amount is found.
func ParsePrice(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
