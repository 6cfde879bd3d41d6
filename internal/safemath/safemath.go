// Package safemath holds the numeric guards used wherever a metric is
// derived: no division result or percentage may carry NaN or Inf into
// storage.
package safemath

import "math"

// Div returns num/den, or 0 when den is zero or either operand is not finite.
func Div(num, den float64) float64 {
	if den == 0 || !Finite(num) || !Finite(den) {
		return 0
	}
	out := num / den
	if !Finite(out) {
		return 0
	}
	return out
}

// Percent returns part/whole*100 clamped to [0,100].
func Percent(part, whole float64) float64 {
	return ClampPercent(Div(part, whole) * 100)
}

// ClampPercent clamps v to [0,100]. Non-finite input yields 0.
func ClampPercent(v float64) float64 {
	return Clamp(v, 0, 100)
}

// Clamp bounds v to [lo,hi]. Non-finite input yields lo.
func Clamp(v, lo, hi float64) float64 {
	if !Finite(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NonNegative returns v, or 0 when v is negative or not finite.
func NonNegative(v float64) float64 {
	if !Finite(v) || v < 0 {
		return 0
	}
	return v
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	if !Finite(v) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
