package operations

import (
	"container/heap"
	"fmt"
	"strconv"
	"strings"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/semiring"
)

// ShortestDistance returns, per state, the semiring sum of the weights of
// all paths from the start state (or, with reverse, from the state to a
// final state including the final weight). It uses generic queue
// relaxation and stops with ErrNonConvergent after the iteration cap.
func ShortestDistance[S semiring.Semiring](f *fst.Fst[S], reverse bool, opts ...Option) ([]semiring.Weight, error) {
	o := applyOptions(opts)
	if !reverse {
		return shortestDistance(f, o)
	}
	r, err := Reverse(f)
	if err != nil {
		return nil, err
	}
	d, err := shortestDistance(r, o)
	if err != nil {
		return nil, err
	}
	var sr S
	out := make([]semiring.Weight, f.NumStates())
	for q := range out {
		out[q] = sr.Reverse(d[q+1])
	}
	return out, nil
}

func shortestDistance[S semiring.Semiring](f *fst.Fst[S], o options) ([]semiring.Weight, error) {
	if !f.HasStart() {
		return nil, fmt.Errorf("shortest distance: %w", ErrNoStart)
	}
	var sr S
	n := f.NumStates()
	d := make([]semiring.Weight, n)
	r := make([]semiring.Weight, n)
	for i := range d {
		d[i], r[i] = sr.Zero(), sr.Zero()
	}
	inQueue := make([]bool, n)
	// Idempotent semirings settle exactly; the others converge within delta.
	exact := sr.Properties()&semiring.Idempotent != 0

	s := f.Start()
	d[s], r[s] = sr.One(), sr.One()
	queue := []int{s}
	inQueue[s] = true
	for iter := 0; len(queue) > 0; iter++ {
		if iter >= o.maxIterations {
			return nil, fmt.Errorf("shortest distance after %d iterations: %w", iter, ErrNonConvergent)
		}
		q := queue[0]
		queue = queue[1:]
		inQueue[q] = false
		residual := r[q]
		r[q] = sr.Zero()

		for _, a := range f.State(q).Arcs {
			w := sr.Times(residual, a.Weight)
			nd := sr.Plus(d[a.NextState], w)
			if semiring.IsUndefined(nd) {
				return nil, fmt.Errorf("shortest distance at state %d: %w", a.NextState, ErrUndefinedWeight)
			}
			if nd == d[a.NextState] || (!exact && semiring.ApproxEqual(d[a.NextState], nd, o.delta)) {
				continue
			}
			d[a.NextState] = nd
			r[a.NextState] = sr.Plus(r[a.NextState], w)
			if !inQueue[a.NextState] {
				inQueue[a.NextState] = true
				queue = append(queue, a.NextState)
			}
		}
	}
	return d, nil
}

// pathItem is a partial path in the n-best search. state is NoState for
// the super-final node.
type pathItem struct {
	state    int
	weight   semiring.Weight
	priority semiring.Weight
	parent   int
	arc      fst.Arc
	seq      int
}

type pathQueue[S semiring.Semiring] struct {
	sr    S
	items []pathItem
	heap  []int
}

func (q *pathQueue[S]) Len() int { return len(q.heap) }

func (q *pathQueue[S]) Less(i, j int) bool {
	a, b := q.items[q.heap[i]], q.items[q.heap[j]]
	if a.priority == b.priority {
		return a.seq < b.seq
	}
	return semiring.NaturalLess(q.sr, a.priority, b.priority)
}

func (q *pathQueue[S]) Swap(i, j int) { q.heap[i], q.heap[j] = q.heap[j], q.heap[i] }

func (q *pathQueue[S]) Push(x any) { q.heap = append(q.heap, x.(int)) }

func (q *pathQueue[S]) Pop() any {
	last := q.heap[len(q.heap)-1]
	q.heap = q.heap[:len(q.heap)-1]
	return last
}

func (q *pathQueue[S]) push(it pathItem) {
	it.seq = len(q.items)
	q.items = append(q.items, it)
	heap.Push(q, it.seq)
}

// NShortestPaths returns an automaton holding the n best accepting paths of
// f as a tree rooted at the start state. Paths of equal weight are ranked
// by discovery order. With WithUnique, a path whose label sequence equals
// an already selected one is skipped. The semiring must have the path
// property.
func NShortestPaths[S semiring.Semiring](f *fst.Fst[S], n int, opts ...Option) (*fst.Fst[S], error) {
	var sr S
	if sr.Properties()&semiring.Path == 0 {
		return nil, fmt.Errorf("n-shortest paths over %s: %w", sr.Name(), ErrNotPathSemiring)
	}
	if !f.HasStart() {
		return nil, fmt.Errorf("n-shortest paths: %w", ErrNoStart)
	}
	o := applyOptions(opts)
	res := fst.New[S](f.InputSymbols(), f.OutputSymbols())
	if n <= 0 {
		return res, nil
	}

	d, err := ShortestDistance(f, true, opts...)
	if err != nil {
		return nil, err
	}
	if d[f.Start()] == sr.Zero() {
		return res, nil
	}

	pq := &pathQueue[S]{sr: sr}
	pq.push(pathItem{state: f.Start(), weight: sr.One(), priority: d[f.Start()], parent: -1})
	visits := make([]int, f.NumStates())
	seen := make(map[string]bool)
	var finals []int

	for iter := 0; pq.Len() > 0 && len(finals) < n; iter++ {
		if iter >= o.maxIterations {
			return nil, fmt.Errorf("n-shortest paths after %d pops: %w", iter, ErrNonConvergent)
		}
		idx := heap.Pop(pq).(int)
		it := pq.items[idx]

		if it.state == fst.NoState {
			if o.unique {
				key := labelKey(pq.items, it.parent)
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			finals = append(finals, idx)
			continue
		}

		// Without dedup a state never lies on more than n of the best paths.
		if !o.unique && visits[it.state] >= n {
			continue
		}
		visits[it.state]++

		for _, a := range f.State(it.state).Arcs {
			if d[a.NextState] == sr.Zero() {
				continue
			}
			w := sr.Times(it.weight, a.Weight)
			pq.push(pathItem{
				state:    a.NextState,
				weight:   w,
				priority: sr.Times(w, d[a.NextState]),
				parent:   idx,
				arc:      a,
			})
		}
		if fw := f.Final(it.state); fw != sr.Zero() {
			w := sr.Times(it.weight, fw)
			pq.push(pathItem{state: fst.NoState, weight: w, priority: w, parent: idx})
		}
	}

	stateOf := make(map[int]int)
	for _, fi := range finals {
		var chain []int
		for p := pq.items[fi].parent; p >= 0; p = pq.items[p].parent {
			chain = append(chain, p)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			idx := chain[i]
			if _, ok := stateOf[idx]; ok {
				continue
			}
			q := res.AddState()
			stateOf[idx] = q
			it := pq.items[idx]
			if it.parent < 0 {
				res.SetStart(q)
				continue
			}
			arc := it.arc
			arc.NextState = q
			src := res.State(stateOf[it.parent])
			src.Arcs = append(src.Arcs, arc)
		}
		last := pq.items[fi].parent
		res.State(stateOf[last]).Final = f.Final(pq.items[last].state)
	}
	return res, nil
}

// labelKey identifies a path by its non-epsilon input and output labels.
func labelKey(items []pathItem, idx int) string {
	var in, out []string
	for ; idx >= 0 && items[idx].parent >= 0; idx = items[idx].parent {
		a := items[idx].arc
		if a.ILabel != fst.EpsilonID {
			in = append(in, strconv.Itoa(a.ILabel))
		}
		if a.OLabel != fst.EpsilonID {
			out = append(out, strconv.Itoa(a.OLabel))
		}
	}
	return strings.Join(in, " ") + ":" + strings.Join(out, " ")
}
