package operations

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/internal/mathutil"
	"github.com/ieee0824/g2p-go/semiring"
)

// subsetElem is one member of a determinized state: an original state and
// the weight still owed on paths through it.
type subsetElem struct {
	state    int
	residual semiring.Weight
}

type subset []subsetElem

// key identifies a subset with residuals quantized to delta.
func (s subset) key(delta float64) string {
	var b strings.Builder
	for i, e := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(e.state))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(mathutil.Quantize(float64(e.residual), delta), 'g', -1, 64))
	}
	return b.String()
}

// Determinize returns an equivalent acceptor with at most one arc per label
// leaving each state, using weighted subset construction. Epsilon is
// treated as an ordinary label. Inputs whose construction exceeds the state
// cap (cyclic automata without the twins property) fail with
// ErrNonConvergent.
func Determinize[S semiring.Semiring](f *fst.Fst[S], opts ...Option) (*fst.Fst[S], error) {
	if !f.IsAcceptor() {
		return nil, fmt.Errorf("determinize: %w", ErrNotAcceptor)
	}
	if !f.HasStart() {
		return nil, fmt.Errorf("determinize: %w", ErrNoStart)
	}
	o := applyOptions(opts)
	var sr S

	res := fst.New[S](f.InputSymbols(), f.OutputSymbols())
	ids := make(map[string]int)
	var subsets []subset

	lookup := func(s subset) (int, error) {
		k := s.key(o.delta)
		if id, ok := ids[k]; ok {
			return id, nil
		}
		if len(subsets) >= o.maxStates {
			return 0, fmt.Errorf("determinize: more than %d states: %w", o.maxStates, ErrNonConvergent)
		}
		id := res.AddState()
		ids[k] = id
		subsets = append(subsets, s)
		return id, nil
	}

	start, _ := lookup(subset{{state: f.Start(), residual: sr.One()}})
	res.SetStart(start)

	for next := 0; next < len(subsets); next++ {
		cur := subsets[next]

		final := sr.Zero()
		for _, e := range cur {
			if fw := f.Final(e.state); fw != sr.Zero() {
				final = sr.Plus(final, sr.Times(e.residual, fw))
			}
		}
		if !sr.IsMember(final) {
			return nil, fmt.Errorf("determinize: final weight: %w", ErrUndefinedWeight)
		}
		res.State(next).Final = final

		// label -> destination -> accumulated residual * arc weight
		byLabel := make(map[int]map[int]semiring.Weight)
		for _, e := range cur {
			for _, a := range f.State(e.state).Arcs {
				dests, ok := byLabel[a.ILabel]
				if !ok {
					dests = make(map[int]semiring.Weight)
					byLabel[a.ILabel] = dests
				}
				w := sr.Times(e.residual, a.Weight)
				if prev, ok := dests[a.NextState]; ok {
					w = sr.Plus(prev, w)
				}
				dests[a.NextState] = w
			}
		}

		labels := make([]int, 0, len(byLabel))
		for l := range byLabel {
			labels = append(labels, l)
		}
		sort.Ints(labels)

		for _, l := range labels {
			dests := byLabel[l]
			states := make([]int, 0, len(dests))
			total := sr.Zero()
			for q, w := range dests {
				states = append(states, q)
				total = sr.Plus(total, w)
			}
			if semiring.IsUndefined(total) {
				return nil, fmt.Errorf("determinize: arc weight: %w", ErrUndefinedWeight)
			}
			if total == sr.Zero() {
				continue
			}
			sort.Ints(states)

			dst := make(subset, 0, len(states))
			for _, q := range states {
				r := sr.Divide(dests[q], total)
				if semiring.IsUndefined(r) {
					return nil, fmt.Errorf("determinize: residual: %w", ErrUndefinedWeight)
				}
				dst = append(dst, subsetElem{state: q, residual: r})
			}
			id, err := lookup(dst)
			if err != nil {
				log.Debugf("%v", err)
				return nil, err
			}
			s := res.State(next)
			s.Arcs = append(s.Arcs, fst.Arc{ILabel: l, OLabel: l, Weight: total, NextState: id})
		}
	}
	return res, nil
}
