package repository

import (
	"net/url"
	"regexp"
	"strings"
)

// Marketplace is the storefront host suffix, e.g. "com" or "co.uk".
type Marketplace string

const (
	MarketplaceUS Marketplace = "com"
	MarketplaceUK Marketplace = "co.uk"
	MarketplaceDE Marketplace = "de"
	MarketplaceFR Marketplace = "fr"
	MarketplaceJP Marketplace = "co.jp"
	MarketplaceCA Marketplace = "ca"
	MarketplaceIT Marketplace = "it"
	MarketplaceES Marketplace = "es"
	MarketplaceIN Marketplace = "in"
	MarketplaceMX Marketplace = "com.mx"
)

var marketplaceDomains = map[Marketplace]int{
	MarketplaceUS: 1,
	MarketplaceUK: 2,
	MarketplaceDE: 3,
	MarketplaceFR: 4,
	MarketplaceJP: 5,
	MarketplaceCA: 6,
	MarketplaceIT: 8,
	MarketplaceES: 9,
	MarketplaceIN: 10,
	MarketplaceMX: 11,
}

// IsValidMarketplace returns true if mp is a supported storefront.
func IsValidMarketplace(mp Marketplace) bool {
	_, ok := marketplaceDomains[mp]
	return ok
}

// DefaultMarketplace returns the default storefront.
func DefaultMarketplace() Marketplace { return MarketplaceUS }

// NormalizeMarketplace converts raw string to a valid marketplace (or default).
// A leading "amazon." or "." is tolerated.
func NormalizeMarketplace(s string) Marketplace {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "amazon")
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return DefaultMarketplace()
	}
	mp := Marketplace(s)
	if IsValidMarketplace(mp) {
		return mp
	}
	return DefaultMarketplace()
}

// MarketplaceFromDomainID maps a numeric market-data domain id.
func MarketplaceFromDomainID(id int) (Marketplace, bool) {
	for mp, d := range marketplaceDomains {
		if d == id {
			return mp, true
		}
	}
	return "", false
}

// DomainID returns the numeric market-data domain id, 0 if unknown.
func (m Marketplace) DomainID() int { return marketplaceDomains[m] }

// Host returns the storefront host, e.g. "www.amazon.co.uk".
func (m Marketplace) Host() string { return "www.amazon." + string(m) }

// ProductURL builds the canonical product page link. A non-empty tag is
// appended as the affiliate query parameter.
func (m Marketplace) ProductURL(asin, tag string) string {
	u := "https://" + m.Host() + "/dp/" + asin
	if tag != "" {
		u += "?tag=" + tag
	}
	return u
}

var asinPath = regexp.MustCompile(`/(?:dp|gp/product)/([A-Za-z0-9]{10})(?:[/?]|$)`)

// IsAmazonURL reports whether raw points at an amazon storefront.
func IsAmazonURL(raw string) bool {
	return strings.Contains(strings.ToLower(raw), "amazon.")
}

// ParseProductURL extracts the ASIN from a /dp/ or /gp/product/ link and the
// marketplace from its host. ok is false when no ASIN is present.
func ParseProductURL(raw string) (asin string, mp Marketplace, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", false
	}
	m := asinPath.FindStringSubmatch(u.EscapedPath())
	if m == nil {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	mp = DefaultMarketplace()
	if i := strings.Index(host, "amazon."); i >= 0 {
		mp = NormalizeMarketplace(host[i:])
	}
	return strings.ToUpper(m[1]), mp, true
}
