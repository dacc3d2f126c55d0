package domain

import "math"

// RoundPrice rounds a price to the exchange tick (2 decimal places).
// Rounding happens after multiplying by 100 to absorb floating-point
// representation artifacts.
func RoundPrice(p float64) float64 {
	return math.Round(p*100.0) / 100.0
}

// ValidTick reports whether a price is positive and aligned to the
// exchange tick.
func ValidTick(p float64) bool {
	return p > 0 && p == RoundPrice(p)
}
