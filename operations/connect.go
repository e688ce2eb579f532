package operations

import (
	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/semiring"
)

// Connect removes, in place, every state that is not both reachable from
// the start state and able to reach a final state. An automaton whose start
// state cannot reach a final state becomes empty.
func Connect[S semiring.Semiring](f *fst.Fst[S]) {
	if !f.HasStart() {
		f.DeleteAllStates()
		return
	}
	n := f.NumStates()

	access := make([]bool, n)
	stack := []int{f.Start()}
	access[f.Start()] = true
	for len(stack) > 0 {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, a := range f.State(q).Arcs {
			if !access[a.NextState] {
				access[a.NextState] = true
				stack = append(stack, a.NextState)
			}
		}
	}

	incoming := make([][]int, n)
	for _, s := range f.States() {
		for _, a := range s.Arcs {
			incoming[a.NextState] = append(incoming[a.NextState], s.ID)
		}
	}
	coaccess := make([]bool, n)
	for _, s := range f.States() {
		if f.IsFinal(s.ID) {
			coaccess[s.ID] = true
			stack = append(stack, s.ID)
		}
	}
	for len(stack) > 0 {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range incoming[q] {
			if !coaccess[p] {
				coaccess[p] = true
				stack = append(stack, p)
			}
		}
	}

	if !coaccess[f.Start()] {
		f.DeleteAllStates()
		return
	}
	var doomed []int
	for q := 0; q < n; q++ {
		if !access[q] || !coaccess[q] {
			doomed = append(doomed, q)
		}
	}
	if len(doomed) > 0 {
		f.DeleteStates(doomed...)
	}
}
