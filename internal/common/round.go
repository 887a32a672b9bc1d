package common

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Round2 rounds the exact binary value of v to two decimal places, with ties
// going to the even digit. 1/800*100 becomes 0.12 and 1.005 becomes 1 because
// neither is a tie once the float's true value is considered.
// Non-finite values are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return Money(v).InexactFloat64()
}

// Money converts v to a decimal rounded to cents the same way as Round2.
// Non-finite values become zero.
func Money(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	// FormatFloat rounds the exact binary expansion, half to even.
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 2, 64))
	if err != nil {
		return decimal.Zero
	}
	return d
}
