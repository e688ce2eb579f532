package semiring

import "math"

// Probability is the (+, *) semiring over non-negative reals.
type Probability struct{}

func (Probability) Name() string { return "probability" }

func (Probability) Zero() Weight { return 0 }

func (Probability) One() Weight { return 1 }

func (s Probability) Plus(a, b Weight) Weight {
	if !s.IsMember(a) || !s.IsMember(b) {
		return Undefined
	}
	return a + b
}

func (s Probability) Times(a, b Weight) Weight {
	if !s.IsMember(a) || !s.IsMember(b) {
		return Undefined
	}
	return a * b
}

func (s Probability) Divide(w, b Weight) Weight {
	if !s.IsMember(w) || !s.IsMember(b) {
		return Undefined
	}
	if b == s.Zero() {
		return Undefined
	}
	return w / b
}

func (Probability) Reverse(w Weight) Weight { return w }

// IsMember rejects NaN, negative values and +Inf.
func (Probability) IsMember(w Weight) bool {
	return !isNaN(w) && w >= 0 && !math.IsInf(float64(w), 1)
}

func (Probability) Properties() Property {
	return Commutative
}
