// Package decoder transduces grapheme sequences into ranked phoneme
// sequences with a joint-sequence G2P transducer.
//
// A Decoder is read-only after New returns; Phoneticize may be called from
// any number of goroutines.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/operations"
	"github.com/ieee0824/g2p-go/semiring"
)

var log = logging.WithComponent("decoder")

var (
	// ErrNoStart indicates a pipeline stage that produced or received an
	// automaton without a start state.
	ErrNoStart = operations.ErrNoStart

	// ErrModel indicates a model unusable for decoding.
	ErrModel = errors.New("decoder: invalid G2P model")

	// ErrTooLarge indicates a product automaton above Config.MaxStates.
	ErrTooLarge = operations.ErrTooLarge
)

// Config holds decoding parameters.
type Config struct {
	NBest         int      // paths returned when Phoneticize is asked for n <= 0
	SkipSymbols   []string // output symbols dropped from emitted paths
	MaxStates     int      // cap on the size of the composed product; 0 = no cap
	MaxIterations int      // cap on queue pops in shortest-path and closure searches
	Unique        bool     // drop paths whose phoneme sequence was already emitted
}

// DefaultConfig returns reasonable default parameters.
func DefaultConfig() Config {
	return Config{
		NBest:         1,
		SkipSymbols:   []string{fst.Epsilon, fst.SentenceBegin, fst.SentenceEnd, fst.Skip, "-"},
		MaxStates:     1 << 20,
		MaxIterations: 1 << 24,
		Unique:        false,
	}
}

// Decoder runs the G2P pipeline against one pretrained model.
type Decoder[S semiring.Semiring] struct {
	cfg      Config
	model    *fst.Fst[S] // input-augmented, arc-sorted by input
	filter   *fst.Fst[S]
	isyms    *fst.SymbolTable
	tie      string
	clusters []cluster
	skip     map[string]bool
}

// cluster is a multi-grapheme input symbol such as "t|h".
type cluster struct {
	label int
	parts []string
}

// New prepares model for decoding. The model keeps its own copy; later
// changes to model do not affect the decoder.
func New[S semiring.Semiring](model *fst.Fst[S], cfg Config) (*Decoder[S], error) {
	var sr S
	if sr.Properties()&semiring.Path == 0 {
		return nil, fmt.Errorf("semiring %s has no natural order: %w", sr.Name(), ErrModel)
	}
	if !model.HasStart() {
		return nil, fmt.Errorf("model has no start state: %w", ErrModel)
	}
	if model.InputSymbols() == nil || model.OutputSymbols() == nil {
		return nil, fmt.Errorf("model lacks symbol tables: %w", ErrModel)
	}
	tie, ok := model.InputSymbols().Symbol(1)
	if !ok || tie == "" {
		return nil, fmt.Errorf("no tie symbol at input id 1: %w", ErrModel)
	}
	if id, _ := model.InputSymbols().Find(fst.Epsilon); id != fst.EpsilonID {
		return nil, fmt.Errorf("epsilon is not input id 0: %w", ErrModel)
	}

	aug, err := operations.Augment(operations.AugmentInput, model)
	if err != nil {
		return nil, fmt.Errorf("augment model: %w", err)
	}
	operations.ArcSort(aug, operations.ByInput)

	d := &Decoder[S]{
		cfg:    cfg,
		model:  aug,
		filter: operations.EpsilonFilter[S](aug.InputSymbols()),
		isyms:  aug.InputSymbols(),
		tie:    tie,
		skip:   make(map[string]bool, len(cfg.SkipSymbols)),
	}
	for _, s := range cfg.SkipSymbols {
		d.skip[s] = true
	}
	d.loadClusters()

	log.Infof("decoder ready: %d states, %d arcs, %d clusters", aug.NumStates(), aug.NumArcs(), len(d.clusters))
	return d, nil
}

// Load reads a model file and prepares it for decoding. Paths ending in
// ".fst.txt" are read as OpenFST text with their sibling symbol files;
// everything else as the binary model format.
func Load[S semiring.Semiring](path string, cfg Config) (*Decoder[S], error) {
	var (
		model *fst.Fst[S]
		err   error
	)
	if base, ok := strings.CutSuffix(path, fst.FstTextSuffix); ok {
		model, err = fst.ImportText[S](base)
	} else {
		model, err = fst.LoadBinary[S](path)
	}
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return New(model, cfg)
}

// Config returns the decoder's parameters.
func (d *Decoder[S]) Config() Config {
	return d.cfg
}

// InputSymbols returns the grapheme table of the model, filter symbols
// included. It must not be modified.
func (d *Decoder[S]) InputSymbols() *fst.SymbolTable {
	return d.isyms
}

// Known reports whether the model can read grapheme g on its own.
func (d *Decoder[S]) Known(g string) bool {
	if _, ok := d.isyms.Find(g); !ok {
		return false
	}
	switch g {
	case fst.Epsilon, fst.Phi, fst.SentenceBegin, fst.SentenceEnd, fst.FilterE1, fst.FilterE2, d.tie:
		return false
	}
	return true
}

func (d *Decoder[S]) loadClusters() {
	for _, id := range d.isyms.IDs() {
		if id < 2 {
			continue
		}
		sym, _ := d.isyms.Symbol(id)
		if !strings.Contains(sym, d.tie) {
			continue
		}
		var parts []string
		for _, p := range strings.Split(sym, d.tie) {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			d.clusters = append(d.clusters, cluster{label: id, parts: parts})
		}
	}
}

// Phoneticize returns up to n pronunciations of graphemes ordered by
// ascending cost. Graphemes the model cannot read, alone or as part of a
// cluster, are skipped. A word with no accepting path yields no paths and
// a nil error.
func (d *Decoder[S]) Phoneticize(ctx context.Context, graphemes []string, n int) ([]Path, error) {
	if n <= 0 {
		n = d.cfg.NBest
	}
	acc, ok := d.acceptor(graphemes)
	if !ok {
		log.Debugf("no readable graphemes in %q", graphemes)
		return nil, nil
	}

	stage := func(name string, err error) error {
		log.Debugf("%s: %v", name, err)
		return fmt.Errorf("%s: %w", name, err)
	}

	left, err := operations.Augment(operations.AugmentOutput, acc)
	if err != nil {
		return nil, stage("augment acceptor", err)
	}
	limit := d.cfg.MaxStates
	if limit <= 0 {
		limit = math.MaxInt
	}
	capOpts := []operations.Option{operations.WithMaxStates(limit)}
	filtered, err := operations.Compose(left, d.filter, capOpts...)
	if err != nil {
		return nil, stage("compose filter", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	product, err := operations.Compose(filtered, d.model, capOpts...)
	if err != nil {
		return nil, stage("compose model", err)
	}
	operations.Connect(product)
	if !product.HasStart() {
		return nil, nil
	}
	operations.Project(product, operations.ProjectOutput)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := []operations.Option{operations.WithUnique(d.cfg.Unique)}
	if d.cfg.MaxIterations > 0 {
		opts = append(opts, operations.WithMaxIterations(d.cfg.MaxIterations))
	}
	best, err := operations.NShortestPaths(product, n, opts...)
	if err != nil {
		return nil, stage("n-shortest paths", err)
	}
	if !best.HasStart() {
		return nil, nil
	}
	clean, err := operations.RmEpsilon(best, opts...)
	if err != nil {
		return nil, stage("remove epsilons", err)
	}
	if !clean.HasStart() {
		return nil, stage("remove epsilons", ErrNoStart)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths, err := d.enumerate(clean)
	if err != nil {
		return nil, err
	}
	if len(paths) > n {
		paths = paths[:n]
	}
	return paths, nil
}

// acceptor builds the linear grapheme chain <s> g1 ... gk </s> with a
// parallel arc for every occurrence of a cluster. It reports false when no
// grapheme is readable.
func (d *Decoder[S]) acceptor(graphemes []string) (*fst.Fst[S], bool) {
	// unknown graphemes survive only where a cluster can read them
	covered := d.coverage(graphemes)
	seq := make([]string, 0, len(graphemes))
	pos := make([]int, len(graphemes)) // input position -> index in seq, -1 if dropped
	for i, g := range graphemes {
		pos[i] = -1
		if d.Known(g) || covered[i] {
			pos[i] = len(seq)
			seq = append(seq, g)
		} else {
			log.Debugf("skipping unknown grapheme %q", g)
		}
	}
	if len(seq) == 0 {
		return nil, false
	}

	f := fst.New[S](d.isyms, nil)
	one := f.Semiring().One()
	for i := 0; i < len(seq)+3; i++ {
		f.AddState()
	}
	f.SetStart(0)
	f.SetFinal(len(seq)+2, one)
	add := func(src, label, dst int) {
		s := f.State(src)
		s.Arcs = append(s.Arcs, fst.Arc{ILabel: label, OLabel: label, Weight: one, NextState: dst})
	}

	bos, _ := d.isyms.Find(fst.SentenceBegin)
	eos, _ := d.isyms.Find(fst.SentenceEnd)
	add(0, bos, 1)
	for i, g := range seq {
		if d.Known(g) {
			id, _ := d.isyms.Find(g)
			add(i+1, id, i+2)
		}
	}
	// clusters must be contiguous in the input, not just after dropping
	for _, c := range d.clusters {
		for _, k := range occurrences(graphemes, c.parts) {
			first, last := pos[k], pos[k+len(c.parts)-1]
			if first < 0 || last-first != len(c.parts)-1 {
				continue
			}
			add(first+1, c.label, last+2)
		}
	}
	add(len(seq)+1, eos, len(seq)+2)
	return f, true
}

// coverage marks the positions of graphemes that lie inside a cluster
// occurrence.
func (d *Decoder[S]) coverage(graphemes []string) []bool {
	covered := make([]bool, len(graphemes))
	for _, c := range d.clusters {
		for _, k := range occurrences(graphemes, c.parts) {
			for j := k; j < k+len(c.parts); j++ {
				covered[j] = true
			}
		}
	}
	return covered
}

// occurrences returns every start index of pattern in seq, overlapping
// matches included.
func occurrences(seq, pattern []string) []int {
	var out []int
	for k := 0; k+len(pattern) <= len(seq); k++ {
		match := true
		for j, p := range pattern {
			if seq[k+j] != p {
				match = false
				break
			}
		}
		if match {
			out = append(out, k)
		}
	}
	return out
}

// enumerate walks f breadth-first and emits one Path per final state
// reached, sorted by ascending cost. f must be acyclic.
func (d *Decoder[S]) enumerate(f *fst.Fst[S]) ([]Path, error) {
	var sr S
	type item struct {
		state    int
		phonemes []string
		cost     semiring.Weight
	}
	syms := f.OutputSymbols()
	queue := []item{{state: f.Start(), cost: sr.One()}}
	var paths []Path
	seen := make(map[string]bool)

	limit := d.cfg.MaxIterations
	for steps := 0; len(queue) > 0; steps++ {
		if limit > 0 && steps >= limit {
			return nil, fmt.Errorf("path enumeration after %d steps: %w", steps, operations.ErrNonConvergent)
		}
		it := queue[0]
		queue = queue[1:]

		if fw := f.Final(it.state); fw != sr.Zero() {
			p := Path{Phonemes: it.phonemes, Cost: sr.Times(it.cost, fw)}
			key := p.String()
			if !d.cfg.Unique || !seen[key] {
				seen[key] = true
				paths = append(paths, p)
			}
		}
		for _, a := range f.State(it.state).Arcs {
			next := it.phonemes
			if sym, ok := syms.Symbol(a.OLabel); ok {
				next = d.appendSymbol(append([]string(nil), it.phonemes...), sym)
			}
			queue = append(queue, item{state: a.NextState, phonemes: next, cost: sr.Times(it.cost, a.Weight)})
		}
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return semiring.NaturalLess(sr, paths[i].Cost, paths[j].Cost)
	})
	return paths, nil
}

// appendSymbol adds the phonemes of one output symbol. Ties separate the
// phonemes of a multi-phoneme symbol; skip symbols add nothing.
func (d *Decoder[S]) appendSymbol(dst []string, sym string) []string {
	if d.skip[sym] {
		return dst
	}
	for _, p := range strings.Split(sym, d.tie) {
		if p != "" && !d.skip[p] {
			dst = append(dst, p)
		}
	}
	return dst
}
