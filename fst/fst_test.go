package fst

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/g2p-go/semiring"
)

// chain builds 0 -a-> 1 -b-> 2 -c-> 3 with 3 final.
func chain(t *testing.T) *Fst[semiring.Tropical] {
	t.Helper()
	syms := NewSymbolTable(Epsilon, "a", "b", "c")
	f := New[semiring.Tropical](syms, nil)
	for i := 0; i < 4; i++ {
		f.AddState()
	}
	require.NoError(t, f.SetStart(0))
	require.NoError(t, f.AddArc(0, Arc{ILabel: 1, OLabel: 1, Weight: 0.5, NextState: 1}))
	require.NoError(t, f.AddArc(1, Arc{ILabel: 2, OLabel: 2, Weight: 1, NextState: 2}))
	require.NoError(t, f.AddArc(2, Arc{ILabel: 3, OLabel: 3, Weight: 1.5, NextState: 3}))
	require.NoError(t, f.SetFinal(3, 0.25))
	return f
}

func TestNew_SharesSymbolTable(t *testing.T) {
	syms := NewSymbolTable(Epsilon)
	f := New[semiring.Tropical](syms, nil)
	assert.Same(t, f.InputSymbols(), f.OutputSymbols())
	assert.Equal(t, NoState, f.Start())
	assert.False(t, f.HasStart())
}

func TestAddState_NonFinal(t *testing.T) {
	f := New[semiring.Tropical](nil, nil)
	id := f.AddState()
	assert.Equal(t, 0, id)
	assert.False(t, f.IsFinal(id))
	assert.Equal(t, semiring.Weight(math.Inf(1)), f.Final(id))
}

func TestStructuralRefusals(t *testing.T) {
	f := chain(t)
	before := f.Copy()

	assert.ErrorIs(t, f.SetStart(9), ErrUnknownState)
	assert.ErrorIs(t, f.SetFinal(9, 0), ErrUnknownState)
	assert.ErrorIs(t, f.SetFinal(1, semiring.Weight(math.NaN())), ErrUndefinedWeight)
	assert.ErrorIs(t, f.AddArc(9, Arc{NextState: 0}), ErrUnknownState)
	assert.ErrorIs(t, f.AddArc(0, Arc{NextState: 9}), ErrUnknownState)
	assert.ErrorIs(t, f.AddArc(0, Arc{NextState: 1, Weight: semiring.Weight(math.Inf(-1))}), ErrUndefinedWeight)
	assert.ErrorIs(t, f.DeleteState(0), ErrDeleteStart)
	assert.ErrorIs(t, f.DeleteStates(1, 42), ErrUnknownState)

	assert.True(t, f.Equal(before), "refused operations must leave the automaton unchanged")
}

func TestDeleteState_Remaps(t *testing.T) {
	f := chain(t)
	// extra arc 0 -> 3 so that something survives past the deleted state
	require.NoError(t, f.AddArc(0, Arc{ILabel: 3, OLabel: 3, Weight: 2, NextState: 3}))

	require.NoError(t, f.DeleteState(1))

	require.Equal(t, 3, f.NumStates())
	for i, s := range f.States() {
		assert.Equal(t, i, s.ID)
	}
	// state 0 lost its arc to the deleted state but kept the one to old 3 (now 2)
	arcs := f.State(0).Arcs
	require.Len(t, arcs, 1)
	assert.Equal(t, 2, arcs[0].NextState)
	assert.True(t, f.IsFinal(2))
	assert.Equal(t, semiring.Weight(0.25), f.Final(2))

	for _, s := range f.States() {
		for _, a := range s.Arcs {
			assert.NotNil(t, f.State(a.NextState), "dangling arc from %d", s.ID)
		}
	}
}

func TestDeleteStates_Batch(t *testing.T) {
	f := chain(t)
	require.NoError(t, f.DeleteStates(1, 2))
	assert.Equal(t, 2, f.NumStates())
	assert.Equal(t, 0, f.NumArcs())
	assert.Equal(t, 0, f.Start())
	assert.True(t, f.IsFinal(1))
}

func TestCopy_Independent(t *testing.T) {
	f := chain(t)
	c := f.Copy()
	require.True(t, f.Equal(c))

	c.State(0).Arcs[0].Weight = 7
	require.NoError(t, c.SetFinal(0, 1))
	c.InputSymbols().Add("z")

	assert.Equal(t, semiring.Weight(0.5), f.State(0).Arcs[0].Weight)
	assert.False(t, f.IsFinal(0))
	_, ok := f.InputSymbols().Find("z")
	assert.False(t, ok)
	assert.Same(t, c.InputSymbols(), c.OutputSymbols())
}

func TestIsAcceptor(t *testing.T) {
	f := chain(t)
	assert.True(t, f.IsAcceptor())
	require.NoError(t, f.AddArc(0, Arc{ILabel: 1, OLabel: 2, NextState: 1}))
	assert.False(t, f.IsAcceptor())
}

func TestSortArcs_Stable(t *testing.T) {
	f := New[semiring.Tropical](nil, nil)
	f.AddState()
	f.AddState()
	require.NoError(t, f.AddArc(0, Arc{ILabel: 2, OLabel: 1, NextState: 1}))
	require.NoError(t, f.AddArc(0, Arc{ILabel: 1, OLabel: 2, NextState: 1}))
	require.NoError(t, f.AddArc(0, Arc{ILabel: 2, OLabel: 0, NextState: 1}))

	f.SortArcs(func(a, b Arc) bool { return a.ILabel < b.ILabel })

	arcs := f.State(0).Arcs
	assert.Equal(t, []int{1, 2, 2}, []int{arcs[0].ILabel, arcs[1].ILabel, arcs[2].ILabel})
	assert.Equal(t, 1, arcs[1].OLabel)
	assert.Equal(t, 0, arcs[2].OLabel)
}

func TestString(t *testing.T) {
	s := chain(t).String()
	assert.Contains(t, s, "semiring=tropical")
	assert.Contains(t, s, "-> 1 a:a/0.5")
}
