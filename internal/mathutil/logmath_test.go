package mathutil

import (
	"math"
	"testing"
)

func TestNegLogAdd(t *testing.T) {
	// -log(exp(-(-log 2)) + exp(-(-log 3))) = -log(5)
	a := -math.Log(2)
	b := -math.Log(3)
	got := NegLogAdd(a, b)
	want := -math.Log(5)
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("NegLogAdd(-log(2), -log(3)) = %f, want %f", got, want)
	}
}

func TestNegLogAddWithInf(t *testing.T) {
	a := -math.Log(5)
	inf := math.Inf(1)
	if got := NegLogAdd(inf, a); math.Abs(got-a) > 1e-10 {
		t.Errorf("NegLogAdd(+Inf, %f) = %f, want %f", a, got, a)
	}
	if got := NegLogAdd(a, inf); math.Abs(got-a) > 1e-10 {
		t.Errorf("NegLogAdd(%f, +Inf) = %f, want %f", a, got, a)
	}
}

func TestNegLogAddFarApart(t *testing.T) {
	if got := NegLogAdd(1, 100); got != 1 {
		t.Errorf("NegLogAdd(1, 100) = %f, want 1", got)
	}
}

func TestQuantize(t *testing.T) {
	if got := Quantize(0.30000000000000004, 1.0/1024); math.Abs(got-0.2998046875) > 1e-12 {
		t.Errorf("Quantize = %v", got)
	}
	if got := Quantize(math.Inf(1), 0.1); !math.IsInf(got, 1) {
		t.Errorf("Quantize(+Inf) = %v, want +Inf", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(1.23456789, 4); got != 1.2346 {
		t.Errorf("Round = %v, want 1.2346", got)
	}
}
