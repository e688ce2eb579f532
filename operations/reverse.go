package operations

import (
	"fmt"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/semiring"
)

// Reverse builds the reversal of f. State q of f becomes state q+1; the new
// state 0 is the start state and has an epsilon arc to every former final
// state. The former start state is the only final state.
func Reverse[S semiring.Semiring](f *fst.Fst[S]) (*fst.Fst[S], error) {
	if !f.HasStart() {
		return nil, fmt.Errorf("reverse: %w", ErrNoStart)
	}
	var sr S
	res := fst.New[S](f.InputSymbols(), f.OutputSymbols())
	for i := 0; i <= f.NumStates(); i++ {
		res.AddState()
	}
	res.SetStart(0)
	res.State(f.Start() + 1).Final = sr.One()

	super := res.State(0)
	for _, s := range f.States() {
		if f.IsFinal(s.ID) {
			super.Arcs = append(super.Arcs, fst.Arc{
				ILabel:    fst.EpsilonID,
				OLabel:    fst.EpsilonID,
				Weight:    sr.Reverse(s.Final),
				NextState: s.ID + 1,
			})
		}
		for _, a := range s.Arcs {
			dst := res.State(a.NextState + 1)
			dst.Arcs = append(dst.Arcs, fst.Arc{
				ILabel:    a.ILabel,
				OLabel:    a.OLabel,
				Weight:    sr.Reverse(a.Weight),
				NextState: s.ID + 1,
			})
		}
	}
	return res, nil
}
