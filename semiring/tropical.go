package semiring

import "math"

// Tropical is the (min, +) semiring over costs. Zero is +Inf, One is 0.
type Tropical struct{}

func (Tropical) Name() string { return "tropical" }

func (Tropical) Zero() Weight { return Weight(math.Inf(1)) }

func (Tropical) One() Weight { return 0 }

func (s Tropical) Plus(a, b Weight) Weight {
	if !s.IsMember(a) || !s.IsMember(b) {
		return Undefined
	}
	if a < b {
		return a
	}
	return b
}

func (s Tropical) Times(a, b Weight) Weight {
	if !s.IsMember(a) || !s.IsMember(b) {
		return Undefined
	}
	return a + b
}

func (s Tropical) Divide(w, b Weight) Weight {
	if !s.IsMember(w) || !s.IsMember(b) {
		return Undefined
	}
	if b == s.Zero() {
		return Undefined
	}
	if w == s.Zero() {
		return s.Zero()
	}
	return w - b
}

func (Tropical) Reverse(w Weight) Weight { return w }

// IsMember rejects NaN and -Inf.
func (Tropical) IsMember(w Weight) bool {
	return !isNaN(w) && !math.IsInf(float64(w), -1)
}

func (Tropical) Properties() Property {
	return Commutative | Idempotent | Path
}
