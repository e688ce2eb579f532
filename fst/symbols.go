package fst

import (
	"fmt"
	"sort"
)

// Reserved symbols.
const (
	Epsilon       = "<eps>"
	Tie           = "|"
	Phi           = "<phi>"
	SentenceBegin = "<s>"
	SentenceEnd   = "</s>"
	Skip          = "_"
)

// Filter symbols distinguish real epsilons from filter moves during
// composition.
const (
	FilterE1 = "<e1>"
	FilterE2 = "<e2>"
)

// EpsilonID is the label of the epsilon symbol.
const EpsilonID = 0

// DefaultReservedSymbols seeds the symbol tables of G2P models: epsilon at 0
// and the tie (cluster separator) at 1.
var DefaultReservedSymbols = []string{Epsilon, Tie, Phi, SentenceBegin, SentenceEnd}

// SymbolTable is a bijection between integer labels and string symbols.
type SymbolTable struct {
	symbols map[int]string
	ids     map[string]int
	next    int
}

// NewSymbolTable creates a table holding symbols with ids 0, 1, 2, ...
func NewSymbolTable(symbols ...string) *SymbolTable {
	t := &SymbolTable{
		symbols: make(map[int]string, len(symbols)),
		ids:     make(map[string]int, len(symbols)),
	}
	for _, s := range symbols {
		t.Add(s)
	}
	return t
}

// Add returns the id of sym, assigning the next free id if it is new.
func (t *SymbolTable) Add(sym string) int {
	if id, ok := t.ids[sym]; ok {
		return id
	}
	id := t.next
	t.symbols[id] = sym
	t.ids[sym] = id
	t.next++
	return id
}

// Put binds sym to id. Rebinding an existing id or symbol to a different
// partner is an error.
func (t *SymbolTable) Put(id int, sym string) error {
	if id < 0 {
		return fmt.Errorf("negative symbol id %d", id)
	}
	if old, ok := t.symbols[id]; ok && old != sym {
		return fmt.Errorf("symbol id %d already bound to %q", id, old)
	}
	if old, ok := t.ids[sym]; ok && old != id {
		return fmt.Errorf("symbol %q already bound to id %d", sym, old)
	}
	t.symbols[id] = sym
	t.ids[sym] = id
	if id >= t.next {
		t.next = id + 1
	}
	return nil
}

// Find returns the id of sym.
func (t *SymbolTable) Find(sym string) (int, bool) {
	id, ok := t.ids[sym]
	return id, ok
}

// Symbol returns the symbol bound to id.
func (t *SymbolTable) Symbol(id int) (string, bool) {
	s, ok := t.symbols[id]
	return s, ok
}

// Len returns the number of symbols.
func (t *SymbolTable) Len() int {
	return len(t.symbols)
}

// MaxID returns the largest id in use, or -1 for an empty table.
func (t *SymbolTable) MaxID() int {
	return t.next - 1
}

// IDs returns all ids in ascending order.
func (t *SymbolTable) IDs() []int {
	ids := make([]int, 0, len(t.symbols))
	for id := range t.symbols {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Symbols returns all symbols ordered by id.
func (t *SymbolTable) Symbols() []string {
	ids := t.IDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = t.symbols[id]
	}
	return out
}

// Copy returns an independent copy of the table.
func (t *SymbolTable) Copy() *SymbolTable {
	c := &SymbolTable{
		symbols: make(map[int]string, len(t.symbols)),
		ids:     make(map[string]int, len(t.ids)),
		next:    t.next,
	}
	for id, s := range t.symbols {
		c.symbols[id] = s
		c.ids[s] = id
	}
	return c
}

// Equal reports whether both tables hold the same bindings.
func (t *SymbolTable) Equal(o *SymbolTable) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || len(t.symbols) != len(o.symbols) {
		return false
	}
	for id, s := range t.symbols {
		if sym, ok := o.symbols[id]; !ok || sym != s {
			return false
		}
	}
	return true
}
