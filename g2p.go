// Package g2p converts words into ranked pronunciations with a pretrained
// joint-sequence G2P transducer.
package g2p

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/ieee0824/g2p-go/cache"
	"github.com/ieee0824/g2p-go/decoder"
	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/semiring"
)

var log = logging.WithComponent("g2p")

// Phoneticizer is the top-level word-to-pronunciation converter. It is safe
// for concurrent use.
type Phoneticizer struct {
	Dec       *decoder.Decoder[semiring.Tropical]
	DecCfg    decoder.Config
	Cache     *cache.Cache // optional
	Format    string       // model file format: auto, binary or text
	KeepCase  bool         // disable lower-casing of input words
	cachePath string
}

// Option configures a Phoneticizer.
type Option func(*Phoneticizer)

// WithDecoderConfig sets custom decoder parameters.
func WithDecoderConfig(cfg decoder.Config) Option {
	return func(p *Phoneticizer) {
		p.DecCfg = cfg
	}
}

// WithFormat forces the model file format ("binary" or "text"); "auto"
// picks by file name.
func WithFormat(format string) Option {
	return func(p *Phoneticizer) {
		p.Format = format
	}
}

// WithCache stores pronunciations in the SQLite database at path. An
// empty path disables the cache.
func WithCache(path string) Option {
	return func(p *Phoneticizer) {
		p.cachePath = path
	}
}

// WithKeepCase passes words to the model without lower-casing them.
func WithKeepCase(keep bool) Option {
	return func(p *Phoneticizer) {
		p.KeepCase = keep
	}
}

// Open creates a Phoneticizer from a model file.
func Open(modelPath string, opts ...Option) (*Phoneticizer, error) {
	p := &Phoneticizer{DecCfg: decoder.DefaultConfig(), Format: "auto"}
	for _, opt := range opts {
		opt(p)
	}

	model, err := loadModel(modelPath, p.Format)
	if err != nil {
		return nil, fmt.Errorf("load G2P model: %w", err)
	}
	p.Dec, err = decoder.New(model, p.DecCfg)
	if err != nil {
		return nil, fmt.Errorf("prepare decoder: %w", err)
	}

	if p.cachePath != "" {
		p.Cache, err = cache.Open(p.cachePath)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
	}
	return p, nil
}

func loadModel(path, format string) (*fst.Fst[semiring.Tropical], error) {
	switch format {
	case "text":
		return fst.ImportText[semiring.Tropical](strings.TrimSuffix(path, fst.FstTextSuffix))
	case "binary":
		return fst.LoadBinary[semiring.Tropical](path)
	case "auto", "":
		if base, ok := strings.CutSuffix(path, fst.FstTextSuffix); ok {
			return fst.ImportText[semiring.Tropical](base)
		}
		return fst.LoadBinary[semiring.Tropical](path)
	default:
		return nil, fmt.Errorf("unknown model format %q", format)
	}
}

// NewPhoneticizer wraps a prepared decoder.
func NewPhoneticizer(dec *decoder.Decoder[semiring.Tropical], opts ...Option) (*Phoneticizer, error) {
	p := &Phoneticizer{Dec: dec, DecCfg: dec.Config(), Format: "auto"}
	for _, opt := range opts {
		opt(p)
	}
	if p.cachePath != "" {
		c, err := cache.Open(p.cachePath)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		p.Cache = c
	}
	return p, nil
}

// Graphemes splits a word into its letters.
func (p *Phoneticizer) Graphemes(word string) []string {
	if !p.KeepCase {
		word = strings.ToLower(word)
	}
	out := make([]string, 0, len(word))
	for _, r := range word {
		out = append(out, string(r))
	}
	return out
}

// Phoneticize returns up to n pronunciations of word, best first. n <= 0
// uses the configured n-best size.
func (p *Phoneticizer) Phoneticize(ctx context.Context, word string, n int) ([]decoder.Path, error) {
	if n <= 0 {
		n = p.DecCfg.NBest
	}
	if p.Cache != nil {
		paths, ok, err := p.Cache.Get(ctx, word, n)
		if err != nil {
			log.Warnf("cache read %q: %v", word, err)
		} else if ok {
			return paths, nil
		}
	}

	paths, err := p.Dec.Phoneticize(ctx, p.Graphemes(word), n)
	if err != nil {
		return nil, fmt.Errorf("phoneticize %q: %w", word, err)
	}

	if p.Cache != nil {
		if err := p.Cache.Put(ctx, word, n, paths); err != nil {
			log.Warnf("cache write %q: %v", word, err)
		}
	}
	return paths, nil
}

// PhoneticizeAll decodes words on up to workers goroutines (NumCPU, at most
// 8, when workers <= 0). Results are in input order; the first error
// cancels the remaining words.
func (p *Phoneticizer) PhoneticizeAll(ctx context.Context, words []string, n, workers int) ([][]decoder.Path, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}
	if workers > len(words) {
		workers = len(words)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]decoder.Path, len(words))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				paths, err := p.Phoneticize(ctx, words[i], n)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				results[i] = paths
			}
		}()
	}

feed:
	for i := range words {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close releases the cache.
func (p *Phoneticizer) Close() error {
	if p.Cache == nil {
		return nil
	}
	return p.Cache.Close()
}
