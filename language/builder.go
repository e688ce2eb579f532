package language

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// MaxOrder is the largest n-gram order Builder accepts.
const MaxOrder = 9

// Builder accumulates token sequences (aligned joint tokens for G2P) and
// estimates a Witten-Bell smoothed backoff model from their counts.
type Builder struct {
	order  int
	counts []map[string]int
}

// NewBuilder creates a builder for models of the given order, clamped to
// [1, MaxOrder].
func NewBuilder(order int) *Builder {
	if order < 1 {
		order = 1
	}
	if order > MaxOrder {
		order = MaxOrder
	}
	b := &Builder{order: order, counts: make([]map[string]int, order)}
	for i := range b.counts {
		b.counts[i] = make(map[string]int)
	}
	return b
}

// Order returns the model order.
func (b *Builder) Order() int {
	return b.order
}

// AddSentence adds a token sequence. <s> and </s> are added automatically.
func (b *Builder) AddSentence(tokens []string) {
	if len(tokens) == 0 {
		return
	}
	seq := make([]string, 0, len(tokens)+2)
	seq = append(seq, sentenceBegin)
	seq = append(seq, tokens...)
	seq = append(seq, sentenceEnd)

	for i := range seq {
		for k := 1; k <= b.order && k <= i+1; k++ {
			b.counts[k-1][Key(seq[i-k+1:i+1])]++
		}
	}
}

// Model estimates the n-gram model: maximum-likelihood unigrams and
// Witten-Bell higher orders, P(w|h) = C(h,w) / (N(h) + T(h)), with backoff
// weights that renormalize the mass left for unseen continuations.
func (b *Builder) Model() *NGramModel {
	m := NewNGramModel(b.order)

	total := 0
	for _, c := range b.counts[0] {
		total += c
	}
	for w, c := range b.counts[0] {
		m.Grams[0][w] = Entry{LogProb: math.Log(float64(c) / float64(total))}
	}

	for k := 2; k <= b.order; k++ {
		contextTotal := make(map[string]int)
		contextTypes := make(map[string]int)
		followers := make(map[string][]string)
		for key, c := range b.counts[k-1] {
			tokens := strings.Fields(key)
			h := Key(tokens[:k-1])
			contextTotal[h] += c
			contextTypes[h]++
			followers[h] = append(followers[h], tokens[k-1])
		}

		for key, c := range b.counts[k-1] {
			h := Key(strings.Fields(key)[:k-1])
			p := float64(c) / float64(contextTotal[h]+contextTypes[h])
			m.Grams[k-1][key] = Entry{LogProb: math.Log(p)}
		}

		// backoff weights of the (k-1)-gram contexts
		for h, words := range followers {
			hist := strings.Fields(h)
			seen, lower := 0.0, 0.0
			for _, w := range words {
				seen += math.Exp(m.Grams[k-1][Key(append(append([]string(nil), hist...), w))].LogProb)
				lower += math.Exp(m.LogProb(hist[1:], w))
			}
			e, ok := m.Grams[k-2][h]
			if !ok || seen >= 1 || lower >= 1 {
				continue
			}
			e.LogBackoff = math.Log((1 - seen) / (1 - lower))
			m.Grams[k-2][h] = e
		}
	}
	return m
}

// WriteARPA writes the estimated model in ARPA format.
func (b *Builder) WriteARPA(w io.Writer) error {
	return WriteARPA(w, b.Model())
}

// WriteARPA writes m in ARPA format with base-10 log values. Entries are
// sorted by key within each order; zero backoff weights are omitted.
func WriteARPA(w io.Writer, m *NGramModel) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "\\data\\")
	for k, grams := range m.Grams {
		fmt.Fprintf(bw, "ngram %d=%d\n", k+1, len(grams))
	}
	fmt.Fprintln(bw)

	for k, grams := range m.Grams {
		keys := make([]string, 0, len(grams))
		for key := range grams {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(bw, "\\%d-grams:\n", k+1)
		for _, key := range keys {
			e := grams[key]
			if e.LogBackoff != 0 {
				fmt.Fprintf(bw, "%.6f\t%s\t%.6f\n", e.LogProb/math.Ln10, key, e.LogBackoff/math.Ln10)
			} else {
				fmt.Fprintf(bw, "%.6f\t%s\n", e.LogProb/math.Ln10, key)
			}
		}
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, "\\end\\")
	return bw.Flush()
}
