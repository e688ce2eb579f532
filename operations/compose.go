// Package operations implements the rational operations on fst automata:
// composition with epsilon filtering, projection, arc sorting, trimming,
// reversal, shortest distance, n-shortest paths, epsilon removal and
// determinization.
//
// Operations that change the shape of an automaton return a fresh automaton
// and never mutate their operands; Project, ArcSort and Connect work in
// place.
package operations

import (
	"fmt"
	"sort"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/semiring"
)

var log = logging.WithComponent("operations")

// AugmentSide selects which tape of a composition operand is augmented.
type AugmentSide int

const (
	// AugmentOutput prepares the left operand: epsilon outputs become <e2>
	// and every state gets a <eps>:<e1> self-loop.
	AugmentOutput AugmentSide = iota
	// AugmentInput prepares the right operand: epsilon inputs become <e1>
	// and every state gets a <e2>:<eps> self-loop.
	AugmentInput
)

// filterLabels registers the filter symbols in t and returns their ids.
func filterLabels(t *fst.SymbolTable) (e1, e2 int) {
	return t.Add(fst.FilterE1), t.Add(fst.FilterE2)
}

// Augment returns a copy of f prepared for filtered composition.
func Augment[S semiring.Semiring](side AugmentSide, f *fst.Fst[S]) (*fst.Fst[S], error) {
	c := f.Copy()
	table := c.OutputSymbols()
	if side == AugmentInput {
		table = c.InputSymbols()
	}
	if table == nil {
		return nil, fmt.Errorf("augment: no symbol table on the shared tape: %w", ErrSymbolMismatch)
	}
	e1, e2 := filterLabels(table)
	one := c.Semiring().One()

	for _, s := range c.States() {
		for i := range s.Arcs {
			a := &s.Arcs[i]
			switch side {
			case AugmentOutput:
				if a.OLabel == fst.EpsilonID {
					a.OLabel = e2
				}
			case AugmentInput:
				if a.ILabel == fst.EpsilonID {
					a.ILabel = e1
				}
			}
		}
		loop := fst.Arc{ILabel: fst.EpsilonID, OLabel: e1, Weight: one, NextState: s.ID}
		if side == AugmentInput {
			loop = fst.Arc{ILabel: e2, OLabel: fst.EpsilonID, Weight: one, NextState: s.ID}
		}
		s.Arcs = append(s.Arcs, loop)
	}
	return c, nil
}

// EpsilonFilter builds the 3-state filter over the symbols of syms, which
// must already contain the filter symbols. Every state is final with One.
func EpsilonFilter[S semiring.Semiring](syms *fst.SymbolTable) *fst.Fst[S] {
	e1, _ := syms.Find(fst.FilterE1)
	e2, _ := syms.Find(fst.FilterE2)

	f := fst.New[S](syms, nil)
	one := f.Semiring().One()
	for i := 0; i < 3; i++ {
		f.AddState()
		f.State(i).Final = one
	}
	f.SetStart(0)

	add := func(src, il, ol, dst int) {
		s := f.State(src)
		s.Arcs = append(s.Arcs, fst.Arc{ILabel: il, OLabel: ol, Weight: one, NextState: dst})
	}
	add(0, e2, e1, 0)
	add(0, e1, e1, 1)
	add(0, e2, e2, 2)
	add(1, e1, e1, 1)
	add(2, e2, e2, 2)
	for _, id := range syms.IDs() {
		if id == fst.EpsilonID || id == e1 || id == e2 {
			continue
		}
		for q := 0; q < 3; q++ {
			add(q, id, id, 0)
		}
	}
	f.SortArcs(byInput)
	return f
}

func byInput(a, b fst.Arc) bool {
	if a.ILabel != b.ILabel {
		return a.ILabel < b.ILabel
	}
	return a.OLabel < b.OLabel
}

func byOutput(a, b fst.Arc) bool {
	if a.OLabel != b.OLabel {
		return a.OLabel < b.OLabel
	}
	return a.ILabel < b.ILabel
}

// arcIndex serves the arcs of one automaton sorted by input label, sorting
// a state's arcs on first use unless they already are.
type arcIndex[S semiring.Semiring] struct {
	f      *fst.Fst[S]
	sorted map[int][]fst.Arc
}

func newArcIndex[S semiring.Semiring](f *fst.Fst[S]) *arcIndex[S] {
	return &arcIndex[S]{f: f, sorted: make(map[int][]fst.Arc)}
}

func (x *arcIndex[S]) arcs(q int) []fst.Arc {
	if arcs, ok := x.sorted[q]; ok {
		return arcs
	}
	arcs := x.f.State(q).Arcs
	if !sort.SliceIsSorted(arcs, func(i, j int) bool { return arcs[i].ILabel < arcs[j].ILabel }) {
		arcs = append([]fst.Arc(nil), arcs...)
		sort.SliceStable(arcs, func(i, j int) bool { return arcs[i].ILabel < arcs[j].ILabel })
	}
	x.sorted[q] = arcs
	return arcs
}

// matches returns the arcs of q whose input label is label.
func (x *arcIndex[S]) matches(q, label int) []fst.Arc {
	arcs := x.arcs(q)
	lo := sort.Search(len(arcs), func(i int) bool { return arcs[i].ILabel >= label })
	hi := lo
	for hi < len(arcs) && arcs[hi].ILabel == label {
		hi++
	}
	return arcs[lo:hi]
}

// Compose builds the plain product of a and b, matching a's output labels
// against b's input labels. Epsilon is matched like any other label; use
// ComposeFiltered for epsilon-correct composition. States are discovered
// breadth-first from the pair of start states; discovery stops with
// ErrTooLarge once the product would exceed WithMaxStates.
func Compose[S semiring.Semiring](a, b *fst.Fst[S], opts ...Option) (*fst.Fst[S], error) {
	if !a.HasStart() || !b.HasStart() {
		return nil, fmt.Errorf("compose: %w", ErrNoStart)
	}
	if err := checkSharedTape(a.OutputSymbols(), b.InputSymbols()); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	o := applyOptions(opts)
	var sr S
	res := fst.New[S](a.InputSymbols(), b.OutputSymbols())
	index := newArcIndex(b)

	type pair struct{ a, b int }
	ids := make(map[pair]int)
	var queue []pair
	tooLarge := fmt.Errorf("compose: more than %d states: %w", o.maxStates, ErrTooLarge)
	lookup := func(p pair) (int, error) {
		if id, ok := ids[p]; ok {
			return id, nil
		}
		if res.NumStates() >= o.maxStates {
			return 0, tooLarge
		}
		id := res.AddState()
		ids[p] = id
		queue = append(queue, p)
		return id, nil
	}

	start, err := lookup(pair{a.Start(), b.Start()})
	if err != nil {
		return nil, err
	}
	res.SetStart(start)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		src := ids[p]

		if fa, fb := a.Final(p.a), b.Final(p.b); fa != sr.Zero() && fb != sr.Zero() {
			w := sr.Times(fa, fb)
			if !sr.IsMember(w) {
				return nil, fmt.Errorf("compose: final weight of (%d,%d): %w", p.a, p.b, ErrUndefinedWeight)
			}
			res.State(src).Final = w
		}

		for _, aa := range a.State(p.a).Arcs {
			for _, ba := range index.matches(p.b, aa.OLabel) {
				w := sr.Times(aa.Weight, ba.Weight)
				if !sr.IsMember(w) {
					return nil, fmt.Errorf("compose: arc from (%d,%d): %w", p.a, p.b, ErrUndefinedWeight)
				}
				dst, err := lookup(pair{aa.NextState, ba.NextState})
				if err != nil {
					return nil, err
				}
				s := res.State(src)
				s.Arcs = append(s.Arcs, fst.Arc{ILabel: aa.ILabel, OLabel: ba.OLabel, Weight: w, NextState: dst})
			}
		}
	}
	return res, nil
}

// checkSharedTape verifies that a's output table and b's input table hold
// the same symbols under the same ids, epsilon at 0. The filter symbols are
// ignored; filtered composition checks them after augmentation.
func checkSharedTape(left, right *fst.SymbolTable) error {
	if left == nil || right == nil {
		return fmt.Errorf("missing symbol table on the shared tape: %w", ErrSymbolMismatch)
	}
	if left == right {
		return nil
	}
	if id, ok := left.Find(fst.Epsilon); !ok || id != fst.EpsilonID {
		return fmt.Errorf("epsilon is not id %d on the shared tape: %w", fst.EpsilonID, ErrSymbolMismatch)
	}
	if n := sharedSymbols(left, right); n < 0 || n != sharedSymbols(right, left) {
		return fmt.Errorf("symbol tables differ on the shared tape: %w", ErrSymbolMismatch)
	}
	return nil
}

// sharedSymbols counts the non-filter symbols of t, or returns -1 when one
// of them is missing from o or has another id there.
func sharedSymbols(t, o *fst.SymbolTable) int {
	n := 0
	for _, id := range t.IDs() {
		sym, _ := t.Symbol(id)
		if sym == fst.FilterE1 || sym == fst.FilterE2 {
			continue
		}
		if other, ok := o.Symbol(id); !ok || other != sym {
			return -1
		}
		n++
	}
	return n
}

// ComposeFiltered composes a and b through the epsilon filter so that each
// combination of epsilon moves on the shared tape yields a single path.
// Dead states are trimmed from the result.
func ComposeFiltered[S semiring.Semiring](a, b *fst.Fst[S], opts ...Option) (*fst.Fst[S], error) {
	if !a.HasStart() || !b.HasStart() {
		return nil, fmt.Errorf("compose filtered: %w", ErrNoStart)
	}
	if err := checkSharedTape(a.OutputSymbols(), b.InputSymbols()); err != nil {
		return nil, fmt.Errorf("compose filtered: %w", err)
	}

	left, err := Augment(AugmentOutput, a)
	if err != nil {
		return nil, err
	}
	right, err := Augment(AugmentInput, b)
	if err != nil {
		return nil, err
	}
	le1, le2 := filterLabels(left.OutputSymbols())
	re1, re2 := filterLabels(right.InputSymbols())
	if le1 != re1 || le2 != re2 {
		return nil, fmt.Errorf("compose filtered: filter symbol ids differ: %w", ErrSymbolMismatch)
	}

	filter := EpsilonFilter[S](left.OutputSymbols())
	tmp, err := Compose(left, filter, opts...)
	if err != nil {
		log.Debugf("compose with filter: %v", err)
		return nil, err
	}
	res, err := Compose(tmp, right, opts...)
	if err != nil {
		log.Debugf("compose with right operand: %v", err)
		return nil, err
	}
	Connect(res)
	return res, nil
}
