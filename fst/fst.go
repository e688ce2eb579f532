// Package fst implements weighted finite-state transducers over a
// compile-time semiring, together with their symbol tables and the text and
// binary model formats.
package fst

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/semiring"
)

// NoState marks the absence of a state (e.g. an unset start state).
const NoState = -1

var log = logging.WithComponent("fst")

// Arc is a transition. It refers to its destination by id only; the
// automaton owns the states.
type Arc struct {
	ILabel    int
	OLabel    int
	Weight    semiring.Weight
	NextState int
}

// State owns its outgoing arcs. Arc order is preserved.
type State struct {
	ID    int
	Final semiring.Weight
	Arcs  []Arc
}

// NumArcs returns the number of outgoing arcs.
func (s *State) NumArcs() int {
	return len(s.Arcs)
}

// Fst is a mutable weighted transducer over the semiring S. States are
// stored densely; a state's ID is its index.
type Fst[S semiring.Semiring] struct {
	sr     S
	states []*State
	start  int
	isyms  *SymbolTable
	osyms  *SymbolTable
}

// New creates an empty automaton with no start state. When only isyms is
// given it is used for both tapes.
func New[S semiring.Semiring](isyms, osyms *SymbolTable) *Fst[S] {
	if osyms == nil {
		osyms = isyms
	}
	return &Fst[S]{start: NoState, isyms: isyms, osyms: osyms}
}

// Semiring returns the automaton's semiring.
func (f *Fst[S]) Semiring() S {
	return f.sr
}

// InputSymbols returns the input symbol table.
func (f *Fst[S]) InputSymbols() *SymbolTable {
	return f.isyms
}

// OutputSymbols returns the output symbol table.
func (f *Fst[S]) OutputSymbols() *SymbolTable {
	return f.osyms
}

func (f *Fst[S]) SetInputSymbols(t *SymbolTable) {
	f.isyms = t
}

func (f *Fst[S]) SetOutputSymbols(t *SymbolTable) {
	f.osyms = t
}

// AddState appends a non-final state and returns its id.
func (f *Fst[S]) AddState() int {
	id := len(f.states)
	f.states = append(f.states, &State{ID: id, Final: f.sr.Zero()})
	return id
}

// NumStates returns the number of states.
func (f *Fst[S]) NumStates() int {
	return len(f.states)
}

// NumArcs returns the total number of arcs.
func (f *Fst[S]) NumArcs() int {
	n := 0
	for _, s := range f.states {
		n += len(s.Arcs)
	}
	return n
}

// States returns the state slice. Callers may mutate arcs and final weights
// but must not reorder or replace the slice elements.
func (f *Fst[S]) States() []*State {
	return f.states
}

// State returns the state with the given id, or nil.
func (f *Fst[S]) State(id int) *State {
	if !f.valid(id) {
		return nil
	}
	return f.states[id]
}

func (f *Fst[S]) valid(id int) bool {
	return id >= 0 && id < len(f.states)
}

// Start returns the start state id, or NoState.
func (f *Fst[S]) Start() int {
	return f.start
}

// HasStart reports whether a start state is set.
func (f *Fst[S]) HasStart() bool {
	return f.valid(f.start)
}

// SetStart sets the start state. Unknown ids are refused.
func (f *Fst[S]) SetStart(id int) error {
	if !f.valid(id) {
		log.Warnf("set start: unknown state %d", id)
		return fmt.Errorf("set start %d: %w", id, ErrUnknownState)
	}
	f.start = id
	return nil
}

// SetFinal sets the final weight of a state. Unknown ids and non-member
// weights are refused and leave the automaton unchanged.
func (f *Fst[S]) SetFinal(id int, w semiring.Weight) error {
	if !f.valid(id) {
		log.Warnf("set final: unknown state %d", id)
		return fmt.Errorf("set final %d: %w", id, ErrUnknownState)
	}
	if !f.sr.IsMember(w) {
		log.Warnf("set final: weight %v is not a %s member", w, f.sr.Name())
		return fmt.Errorf("set final %d: %w", id, ErrUndefinedWeight)
	}
	f.states[id].Final = w
	return nil
}

// Final returns the final weight of a state (Zero for unknown states).
func (f *Fst[S]) Final(id int) semiring.Weight {
	if !f.valid(id) {
		return f.sr.Zero()
	}
	return f.states[id].Final
}

// IsFinal reports whether a state has a non-Zero final weight.
func (f *Fst[S]) IsFinal(id int) bool {
	return f.valid(id) && f.states[id].Final != f.sr.Zero()
}

// AddArc appends an arc to the given state. The source and destination
// must exist and the weight must be a semiring member.
func (f *Fst[S]) AddArc(id int, arc Arc) error {
	if !f.valid(id) {
		log.Warnf("add arc: unknown source state %d", id)
		return fmt.Errorf("add arc from %d: %w", id, ErrUnknownState)
	}
	if !f.valid(arc.NextState) {
		log.Warnf("add arc: unknown destination state %d", arc.NextState)
		return fmt.Errorf("add arc to %d: %w", arc.NextState, ErrUnknownState)
	}
	if !f.sr.IsMember(arc.Weight) {
		log.Warnf("add arc: weight %v is not a %s member", arc.Weight, f.sr.Name())
		return fmt.Errorf("add arc from %d: %w", id, ErrUndefinedWeight)
	}
	s := f.states[id]
	s.Arcs = append(s.Arcs, arc)
	return nil
}

// DeleteState removes a state, every arc pointing to it, and renumbers the
// remaining states densely.
func (f *Fst[S]) DeleteState(id int) error {
	return f.DeleteStates(id)
}

// DeleteStates removes several states in one renumbering pass. The call is
// refused as a whole if any id is unknown or is the start state.
func (f *Fst[S]) DeleteStates(ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	doomed := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !f.valid(id) {
			log.Warnf("delete state: unknown state %d", id)
			return fmt.Errorf("delete state %d: %w", id, ErrUnknownState)
		}
		if id == f.start {
			log.Warnf("delete state: refusing to delete start state %d", id)
			return fmt.Errorf("delete state %d: %w", id, ErrDeleteStart)
		}
		doomed[id] = true
	}

	remap := make([]int, len(f.states))
	kept := f.states[:0:0]
	for i, s := range f.states {
		if doomed[i] {
			remap[i] = NoState
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, s)
	}

	for _, s := range kept {
		s.ID = remap[s.ID]
		arcs := s.Arcs[:0]
		for _, a := range s.Arcs {
			next := remap[a.NextState]
			if next == NoState {
				continue
			}
			a.NextState = next
			arcs = append(arcs, a)
		}
		s.Arcs = arcs
	}
	f.states = kept
	if f.start != NoState {
		f.start = remap[f.start]
	}
	return nil
}

// DeleteAllStates empties the automaton, start state included.
func (f *Fst[S]) DeleteAllStates() {
	f.states = nil
	f.start = NoState
}

// Copy returns a deep copy sharing no mutable structure with f. Symbol
// tables shared between both tapes stay shared in the copy.
func (f *Fst[S]) Copy() *Fst[S] {
	c := &Fst[S]{start: f.start, states: make([]*State, len(f.states))}
	for i, s := range f.states {
		arcs := make([]Arc, len(s.Arcs))
		copy(arcs, s.Arcs)
		c.states[i] = &State{ID: s.ID, Final: s.Final, Arcs: arcs}
	}
	if f.isyms != nil {
		c.isyms = f.isyms.Copy()
	}
	switch {
	case f.osyms == f.isyms:
		c.osyms = c.isyms
	case f.osyms != nil:
		c.osyms = f.osyms.Copy()
	}
	return c
}

// IsAcceptor reports whether every arc has equal input and output labels.
func (f *Fst[S]) IsAcceptor() bool {
	for _, s := range f.states {
		for _, a := range s.Arcs {
			if a.ILabel != a.OLabel {
				return false
			}
		}
	}
	return true
}

// Equal reports whether two automata have identical states, arcs, weights
// and symbol tables.
func (f *Fst[S]) Equal(o *Fst[S]) bool {
	if f.start != o.start || len(f.states) != len(o.states) {
		return false
	}
	if !f.isyms.Equal(o.isyms) || !f.osyms.Equal(o.osyms) {
		return false
	}
	for i, s := range f.states {
		t := o.states[i]
		if s.Final != t.Final || len(s.Arcs) != len(t.Arcs) {
			return false
		}
		for j := range s.Arcs {
			if s.Arcs[j] != t.Arcs[j] {
				return false
			}
		}
	}
	return true
}

// SortArcs stably sorts the arcs of every state with less.
func (f *Fst[S]) SortArcs(less func(a, b Arc) bool) {
	for _, s := range f.states {
		sort.SliceStable(s.Arcs, func(i, j int) bool { return less(s.Arcs[i], s.Arcs[j]) })
	}
}

func (f *Fst[S]) label(t *SymbolTable, id int) string {
	if t != nil {
		if s, ok := t.Symbol(id); ok {
			return s
		}
	}
	return fmt.Sprint(id)
}

// String renders the automaton for debugging.
func (f *Fst[S]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fst(start=%d, states=%d, semiring=%s)\n", f.start, len(f.states), f.sr.Name())
	for _, s := range f.states {
		fmt.Fprintf(&b, "  %d final=%v\n", s.ID, s.Final)
		for _, a := range s.Arcs {
			fmt.Fprintf(&b, "    -> %d %s:%s/%v\n", a.NextState, f.label(f.isyms, a.ILabel), f.label(f.osyms, a.OLabel), a.Weight)
		}
	}
	return b.String()
}
