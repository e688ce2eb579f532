// Package semiring defines the weight algebra shared by every automaton
// operation. Algorithms never combine weights with raw arithmetic; they go
// through a Semiring so that swapping the semiring changes what "shortest"
// and "total" mean without touching the algorithm.
package semiring

import (
	"fmt"
	"math"
)

// Weight is a value drawn from a semiring's domain.
type Weight float64

// Undefined is returned by semiring operations whose operands are not
// members of the semiring. Callers must check for it with IsUndefined.
var Undefined = Weight(math.Inf(-1))

// IsUndefined reports whether w is the Undefined sentinel.
func IsUndefined(w Weight) bool {
	return math.IsInf(float64(w), -1)
}

// Property describes algebraic properties of a semiring.
type Property uint8

const (
	// Commutative: Times(a, b) == Times(b, a).
	Commutative Property = 1 << iota
	// Idempotent: Plus(a, a) == a.
	Idempotent
	// Path: Plus(a, b) is always a or b, so NaturalLess is a total order.
	Path
)

// Semiring is the algebraic contract parameterizing every automaton.
type Semiring interface {
	// Name identifies the semiring in serialized models.
	Name() string
	Zero() Weight
	One() Weight
	Plus(a, b Weight) Weight
	Times(a, b Weight) Weight
	// Divide returns a such that Times(a, b) == w (left division).
	Divide(w, b Weight) Weight
	// Reverse maps a weight onto the reversed semiring.
	Reverse(w Weight) Weight
	IsMember(w Weight) bool
	Properties() Property
}

// NaturalLess is the strict natural order: a < b iff a + b == a and a != b.
// It is a total order only for semirings with the Path property.
func NaturalLess[S Semiring](s S, a, b Weight) bool {
	return s.Plus(a, b) == a && a != b
}

// ApproxEqual reports whether a and b are within delta of each other.
// Equal infinities compare equal.
func ApproxEqual(a, b Weight, delta float64) bool {
	if a == b {
		return true
	}
	return math.Abs(float64(a)-float64(b)) <= delta
}

// ByName returns the shipped semiring with the given name.
func ByName(name string) (Semiring, error) {
	switch name {
	case Tropical{}.Name():
		return Tropical{}, nil
	case Probability{}.Name():
		return Probability{}, nil
	case Log{}.Name():
		return Log{}, nil
	}
	return nil, fmt.Errorf("unknown semiring %q", name)
}

func isNaN(w Weight) bool {
	return math.IsNaN(float64(w))
}
