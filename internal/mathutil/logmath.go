package mathutil

import "math"

// NegLogAdd returns -log(exp(-a) + exp(-b)) in a numerically stable way.
// +Inf is the identity (it stands for probability zero). Uses the same
// threshold-based early exit as the positive-log variant: once the larger
// cost is more than 36 nats away the smaller one dominates completely.
func NegLogAdd(a, b float64) float64 {
	if math.IsInf(a, 1) {
		return b
	}
	if math.IsInf(b, 1) {
		return a
	}
	if a > b {
		a, b = b, a
	}
	d := a - b
	if d < -36.0 {
		return a
	}
	return a - math.Log1p(math.Exp(d))
}

// Quantize rounds w to the nearest multiple of delta. Infinite and NaN
// values are returned unchanged.
func Quantize(w, delta float64) float64 {
	if delta <= 0 || math.IsInf(w, 0) || math.IsNaN(w) {
		return w
	}
	return math.Floor(w/delta+0.5) * delta
}

// Round rounds w to the given number of decimal places.
func Round(w float64, places int) float64 {
	if math.IsInf(w, 0) || math.IsNaN(w) {
		return w
	}
	p := math.Pow(10, float64(places))
	return math.Round(w*p) / p
}
