// Package scoring holds the numeric guards shared by the analytics and skill calculators.
// Nothing produced here is ever NaN or infinite.
package scoring

import "math"

// Finite returns v, or 0 when v is NaN or infinite
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Ratio returns num/den, or 0 when den is zero
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Finite(num / den)
}

// Percent returns num/den*100, or 0 when den is zero.
// The multiplication happens first so whole percentages stay exact.
func Percent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Finite(num * 100 / den)
}

// Clamp bounds v to [lo, hi]; NaN becomes lo
func Clamp(v, lo, hi float64) float64 {
	v = Finite(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp100 bounds v to [0, 100]
func Clamp100(v float64) float64 {
	return Clamp(v, 0, 100)
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return Finite(math.Round(v*p) / p)
}
