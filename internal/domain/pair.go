package domain

import "strings"

// Pair is a six-letter currency pair, base followed by quote ("USDJPY").
// Override transactions use the sentinel form "XXX/OVERRIDE" instead.
type Pair string

const overrideSuffix = "/OVERRIDE"

// Base returns the first three letters of the pair.
func (p Pair) Base() string {
	if len(p) < 3 {
		return ""
	}
	return string(p[:3])
}

// Quote returns the last three letters of the pair.
func (p Pair) Quote() string {
	if len(p) < 6 {
		return ""
	}
	return string(p[3:6])
}

// IsOverride reports whether the pair is the override sentinel.
func (p Pair) IsOverride() bool {
	return strings.HasSuffix(string(p), overrideSuffix)
}

// Validate checks that the pair is six letters and both legs are drawn from
// the supported currency set.
func (p Pair) Validate(c Currencies) error {
	if len(p) != 6 {
		return ErrUnsupportedPair
	}
	if !c.IsSupported(p.Base()) || !c.IsSupported(p.Quote()) {
		return ErrUnsupportedPair
	}
	return nil
}

// OverridePair returns the sentinel pair recorded on balance overrides.
func OverridePair(currency string) Pair {
	return Pair(currency + overrideSuffix)
}

// ValidCurrencyCode reports whether code looks like a three-letter ISO code.
func ValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
