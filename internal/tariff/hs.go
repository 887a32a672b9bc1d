// Package tariff resolves duty rates for harmonized-system codes.
package tariff

import (
	"strings"
)

// NormalizeHS canonicalizes a raw HS code. Only digits are considered:
// six or more become "DDDD.DD", four or five become the first four digits,
// one to three are returned as-is. Input with no digits at all is returned
// trimmed and otherwise untouched.
func NormalizeHS(raw string) string {
	digits := digitsOf(raw)

	switch {
	case len(digits) >= 6:
		return digits[:4] + "." + digits[4:6]
	case len(digits) >= 4:
		return digits[:4]
	case len(digits) > 0:
		return digits
	default:
		return strings.TrimSpace(raw)
	}
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
