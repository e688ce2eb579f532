package operations

import (
	"fmt"
	"sort"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/semiring"
)

func isEpsilon(a fst.Arc) bool {
	return a.ILabel == fst.EpsilonID && a.OLabel == fst.EpsilonID
}

// epsilonClosure returns the states reachable from q through epsilon arcs
// with the semiring sum of their path weights, q itself included with One.
func epsilonClosure[S semiring.Semiring](f *fst.Fst[S], q int, o options) (map[int]semiring.Weight, error) {
	var sr S
	exact := sr.Properties()&semiring.Idempotent != 0
	d := map[int]semiring.Weight{q: sr.One()}
	r := map[int]semiring.Weight{q: sr.One()}
	queue := []int{q}
	inQueue := map[int]bool{q: true}

	for iter := 0; len(queue) > 0; iter++ {
		if iter >= o.maxIterations {
			return nil, fmt.Errorf("epsilon closure of state %d: %w", q, ErrNonConvergent)
		}
		p := queue[0]
		queue = queue[1:]
		inQueue[p] = false
		residual := r[p]
		r[p] = sr.Zero()

		for _, a := range f.State(p).Arcs {
			if !isEpsilon(a) {
				continue
			}
			old, ok := d[a.NextState]
			if !ok {
				old = sr.Zero()
			}
			w := sr.Times(residual, a.Weight)
			nd := sr.Plus(old, w)
			if semiring.IsUndefined(nd) {
				return nil, fmt.Errorf("epsilon closure of state %d: %w", q, ErrUndefinedWeight)
			}
			if nd == old || (!exact && semiring.ApproxEqual(old, nd, o.delta)) {
				continue
			}
			d[a.NextState] = nd
			prev, ok := r[a.NextState]
			if !ok {
				prev = sr.Zero()
			}
			r[a.NextState] = sr.Plus(prev, w)
			if !inQueue[a.NextState] {
				inQueue[a.NextState] = true
				queue = append(queue, a.NextState)
			}
		}
	}
	return d, nil
}

// RmEpsilon returns an equivalent automaton without arcs labeled epsilon on
// both tapes. Each state takes over the non-epsilon arcs and final weights
// of its epsilon closure; states left unreachable are trimmed.
func RmEpsilon[S semiring.Semiring](f *fst.Fst[S], opts ...Option) (*fst.Fst[S], error) {
	if !f.HasStart() {
		return nil, fmt.Errorf("rmepsilon: %w", ErrNoStart)
	}
	o := applyOptions(opts)
	var sr S

	res := fst.New[S](f.InputSymbols(), f.OutputSymbols())
	for range f.States() {
		res.AddState()
	}
	res.SetStart(f.Start())

	for _, s := range f.States() {
		closure, err := epsilonClosure(f, s.ID, o)
		if err != nil {
			return nil, err
		}
		out := res.State(s.ID)
		final := sr.Zero()
		members := make([]int, 0, len(closure))
		for q := range closure {
			members = append(members, q)
		}
		// State order keeps the arc order deterministic.
		sort.Ints(members)
		for _, q := range members {
			p, w := f.State(q), closure[q]
			if p.Final != sr.Zero() {
				final = sr.Plus(final, sr.Times(w, p.Final))
			}
			for _, a := range p.Arcs {
				if isEpsilon(a) {
					continue
				}
				a.Weight = sr.Times(w, a.Weight)
				if !sr.IsMember(a.Weight) {
					return nil, fmt.Errorf("rmepsilon: arc from state %d: %w", s.ID, ErrUndefinedWeight)
				}
				out.Arcs = append(out.Arcs, a)
			}
		}
		if !sr.IsMember(final) {
			return nil, fmt.Errorf("rmepsilon: final weight of state %d: %w", s.ID, ErrUndefinedWeight)
		}
		out.Final = final
	}
	Connect(res)
	return res, nil
}
