// Package align learns many-to-many grapheme-phoneme alignments of a
// pronunciation dictionary with EM and writes them as joint-token
// sequences ready for n-gram training.
//
// Every dictionary entry becomes a lattice over (grapheme, phoneme)
// positions whose arcs carry joint labels such as "t|h}th". Expectation
// sums arc posteriors with forward and backward distances in the log
// semiring; maximization renormalizes the expected counts into label
// costs. The final alignment of an entry is its tropical shortest path.
package align

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/language"
	"github.com/ieee0824/g2p-go/operations"
	"github.com/ieee0824/g2p-go/semiring"
)

var log = logging.WithComponent("align")

// ErrNoAlignment indicates an entry whose sequences cannot be aligned
// under the configured chunk sizes and deletion rules.
var ErrNoAlignment = errors.New("align: no alignment")

// manyToManyCost is the cost of a label with more than one symbol on both
// sides once the final model is penalized.
const manyToManyCost = 99

// Config holds alignment parameters.
type Config struct {
	Seq1Max    int  // longest grapheme chunk
	Seq2Max    int  // longest phoneme chunk
	Seq1Del    bool // allow graphemes to align to nothing
	Seq2Del    bool // allow phonemes to align to nothing
	Iterations int  // EM iterations
	Penalize   bool // discourage long chunks in the final model
	Delta      float64
	Workers    int // expectation workers; 0 = NumCPU, at most 8
	Joint      language.JointConfig
}

// DefaultConfig returns reasonable default parameters.
func DefaultConfig() Config {
	return Config{
		Seq1Max:    2,
		Seq2Max:    2,
		Seq1Del:    true,
		Seq2Del:    false,
		Iterations: 10,
		Penalize:   true,
		Delta:      1e-9,
		Joint:      language.DefaultJointConfig(),
	}
}

// chunk records the side lengths of a joint label.
type chunk struct {
	lhs, rhs int
}

// Aligner holds the alignment lattices of a dictionary and the joint
// label model.
type Aligner struct {
	cfg      Config
	syms     *fst.SymbolTable
	chunks   map[int]chunk
	lattices []*fst.Fst[semiring.Log]
	cost     []float64 // -ln P(label), by label id
	counts   []float64 // expected label counts of the current iteration
}

// New creates an empty aligner.
func New(cfg Config) *Aligner {
	if cfg.Seq1Max < 1 {
		cfg.Seq1Max = 1
	}
	if cfg.Seq2Max < 1 {
		cfg.Seq2Max = 1
	}
	return &Aligner{
		cfg:    cfg,
		syms:   fst.NewSymbolTable(fst.Epsilon),
		chunks: make(map[int]chunk),
	}
}

// Len returns the number of entries added.
func (a *Aligner) Len() int {
	return len(a.lattices)
}

// Symbols returns the joint label table.
func (a *Aligner) Symbols() *fst.SymbolTable {
	return a.syms
}

func (a *Aligner) label(g, p []string) int {
	id := a.syms.Add(a.cfg.Joint.JoinJoint(g, p))
	if _, ok := a.chunks[id]; !ok {
		a.chunks[id] = chunk{lhs: len(g), rhs: len(p)}
	}
	for len(a.counts) <= id {
		a.counts = append(a.counts, 0)
	}
	return id
}

// Add builds the lattice of one entry. Every arc counts once towards the
// initial, uniform-per-occurrence model.
func (a *Aligner) Add(graphemes, phonemes []string) error {
	n, m := len(graphemes), len(phonemes)
	if n == 0 || m == 0 {
		return fmt.Errorf("empty sequence: %w", ErrNoAlignment)
	}
	f := fst.New[semiring.Log](a.syms, nil)
	state := func(i, j int) int { return i*(m+1) + j }
	for i := 0; i < (n+1)*(m+1); i++ {
		f.AddState()
	}
	f.SetStart(state(0, 0))
	f.SetFinal(state(n, m), 0)

	add := func(i, j, k, l int) {
		id := a.label(graphemes[i:i+k], phonemes[j:j+l])
		s := f.State(state(i, j))
		s.Arcs = append(s.Arcs, fst.Arc{ILabel: id, OLabel: id, Weight: 0, NextState: state(i+k, j+l)})
	}
	for i := 0; i <= n; i++ {
		for j := 0; j <= m; j++ {
			if a.cfg.Seq1Del {
				for k := 1; k <= a.cfg.Seq1Max && i+k <= n; k++ {
					add(i, j, k, 0)
				}
			}
			if a.cfg.Seq2Del {
				for l := 1; l <= a.cfg.Seq2Max && j+l <= m; l++ {
					add(i, j, 0, l)
				}
			}
			for k := 1; k <= a.cfg.Seq1Max && i+k <= n; k++ {
				for l := 1; l <= a.cfg.Seq2Max && j+l <= m; l++ {
					add(i, j, k, l)
				}
			}
		}
	}

	operations.Connect(f)
	if !f.HasStart() {
		return fmt.Errorf("%q / %q: %w", graphemes, phonemes, ErrNoAlignment)
	}
	for _, s := range f.States() {
		for _, arc := range s.Arcs {
			a.counts[arc.ILabel]++
		}
	}
	a.lattices = append(a.lattices, f)
	return nil
}

// Train runs the EM iterations and returns the model change of each.
func (a *Aligner) Train(ctx context.Context) ([]float64, error) {
	if len(a.lattices) == 0 {
		return nil, fmt.Errorf("no entries: %w", ErrNoAlignment)
	}
	changes := []float64{a.maximize(false)}
	for i := 1; i <= a.cfg.Iterations+1; i++ {
		if err := ctx.Err(); err != nil {
			return changes, err
		}
		if err := a.expect(); err != nil {
			return changes, err
		}
		last := i == a.cfg.Iterations+1
		change := a.maximize(last && a.cfg.Penalize)
		changes = append(changes, change)
		log.Infof("iteration %d: change %.6f", i, change)
	}
	return changes, nil
}

// maximize turns the expected counts into label costs, clears the counts
// and returns the summed absolute cost change.
func (a *Aligner) maximize(penalize bool) float64 {
	total := 0.0
	for _, c := range a.counts {
		total += c
	}
	for len(a.cost) < len(a.counts) {
		a.cost = append(a.cost, math.Inf(1))
	}

	change := 0.0
	for id, c := range a.counts {
		if id == fst.EpsilonID {
			continue
		}
		w := math.Inf(1)
		if c > 0 && total > 0 {
			w = -math.Log(c / total)
		}
		if penalize && c > 0 {
			ch := a.chunks[id]
			switch {
			case ch.lhs > 1 && ch.rhs > 1:
				w = manyToManyCost
			case ch.lhs > 0 && ch.rhs > 0:
				w *= float64(max(ch.lhs, ch.rhs))
			}
		}
		if old := a.cost[id]; !math.IsInf(old, 1) || !math.IsInf(w, 1) {
			change += math.Abs(w - old)
		}
		a.cost[id] = w
		a.counts[id] = 0
	}
	for _, f := range a.lattices {
		for _, s := range f.States() {
			for i := range s.Arcs {
				s.Arcs[i].Weight = semiring.Weight(a.cost[s.Arcs[i].ILabel])
			}
		}
	}
	return change
}

// expect accumulates arc posteriors of every lattice into the counts. The
// lattices are split among workers, each with its own count buffer.
func (a *Aligner) expect() error {
	workers := a.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}
	if workers > len(a.lattices) {
		workers = len(a.lattices)
	}

	partial := make([][]float64, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		partial[w] = make([]float64, len(a.counts))
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(a.lattices); i += workers {
				if err := a.posteriors(a.lattices[i], partial[w]); err != nil {
					errs[w] = fmt.Errorf("entry %d: %w", i, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		if errs[w] != nil {
			return errs[w]
		}
		for id, c := range partial[w] {
			a.counts[id] += c
		}
	}
	return nil
}

func (a *Aligner) posteriors(f *fst.Fst[semiring.Log], counts []float64) error {
	opts := []operations.Option{operations.WithDelta(a.cfg.Delta)}
	alpha, err := operations.ShortestDistance(f, false, opts...)
	if err != nil {
		return err
	}
	beta, err := operations.ShortestDistance(f, true, opts...)
	if err != nil {
		return err
	}
	var sr semiring.Log
	z := beta[f.Start()]
	if z == sr.Zero() {
		return nil
	}
	for _, s := range f.States() {
		for _, arc := range s.Arcs {
			cost := sr.Divide(sr.Times(sr.Times(alpha[s.ID], arc.Weight), beta[arc.NextState]), z)
			if semiring.IsUndefined(cost) {
				return fmt.Errorf("posterior of arc %d -> %d: %w", s.ID, arc.NextState, operations.ErrUndefinedWeight)
			}
			if cost != sr.Zero() {
				counts[arc.ILabel] += math.Exp(-float64(cost))
			}
		}
	}
	return nil
}

// LogLikelihood returns the total log probability of all entries under
// the current model.
func (a *Aligner) LogLikelihood() (float64, error) {
	total := 0.0
	for _, f := range a.lattices {
		beta, err := operations.ShortestDistance(f, true, operations.WithDelta(a.cfg.Delta))
		if err != nil {
			return 0, err
		}
		total -= float64(beta[f.Start()])
	}
	return total, nil
}

// Best returns the most probable alignment of entry i as joint tokens,
// with its cost.
func (a *Aligner) Best(i int) ([]string, semiring.Weight, error) {
	if i < 0 || i >= len(a.lattices) {
		return nil, 0, fmt.Errorf("entry %d out of range", i)
	}
	trop := tropical(a.lattices[i])
	best, err := operations.NShortestPaths(trop, 1)
	if err != nil {
		return nil, 0, err
	}
	if !best.HasStart() {
		return nil, 0, fmt.Errorf("entry %d: %w", i, ErrNoAlignment)
	}

	var (
		sr     semiring.Tropical
		tokens []string
		cost   = sr.One()
	)
	for q := best.Start(); ; {
		s := best.State(q)
		if len(s.Arcs) == 0 {
			cost = sr.Times(cost, s.Final)
			break
		}
		arc := s.Arcs[0]
		sym, _ := a.syms.Symbol(arc.ILabel)
		tokens = append(tokens, sym)
		cost = sr.Times(cost, arc.Weight)
		q = arc.NextState
	}
	return tokens, cost, nil
}

// tropical copies a log-semiring lattice into the tropical semiring.
func tropical(f *fst.Fst[semiring.Log]) *fst.Fst[semiring.Tropical] {
	t := fst.New[semiring.Tropical](f.InputSymbols(), f.OutputSymbols())
	for range f.States() {
		t.AddState()
	}
	for _, s := range f.States() {
		ts := t.State(s.ID)
		ts.Final = s.Final
		ts.Arcs = append(ts.Arcs, s.Arcs...)
	}
	t.SetStart(f.Start())
	return t
}
