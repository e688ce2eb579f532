package semiring

import (
	"math"

	"github.com/ieee0824/g2p-go/internal/mathutil"
)

// Log is the log semiring over negative log probabilities:
// Plus(a, b) = -log(exp(-a) + exp(-b)), Times = +.
type Log struct{}

func (Log) Name() string { return "log" }

func (Log) Zero() Weight { return Weight(math.Inf(1)) }

func (Log) One() Weight { return 0 }

func (s Log) Plus(a, b Weight) Weight {
	if !s.IsMember(a) || !s.IsMember(b) {
		return Undefined
	}
	return Weight(mathutil.NegLogAdd(float64(a), float64(b)))
}

func (s Log) Times(a, b Weight) Weight {
	if !s.IsMember(a) || !s.IsMember(b) {
		return Undefined
	}
	return a + b
}

func (s Log) Divide(w, b Weight) Weight {
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

func (Log) Reverse(w Weight) Weight { return w }

func (Log) IsMember(w Weight) bool {
	return !isNaN(w) && !math.IsInf(float64(w), -1)
}

func (Log) Properties() Property {
	return Commutative
}
