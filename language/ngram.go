// Package language loads and builds joint-sequence n-gram models and
// converts them into G2P transducers.
package language

import (
	"math"
	"sort"
	"strings"

	"github.com/ieee0824/g2p-go/fst"
)

const (
	sentenceBegin = fst.SentenceBegin
	sentenceEnd   = fst.SentenceEnd
)

// Entry holds the natural-log probability and backoff weight of an n-gram.
type Entry struct {
	LogProb    float64
	LogBackoff float64
}

// NGramModel is a backoff n-gram model of arbitrary order. Grams[k-1] maps
// the space-joined tokens of every k-gram to its entry.
type NGramModel struct {
	Order int
	Grams []map[string]Entry
}

// NewNGramModel creates an empty model of the given order.
func NewNGramModel(order int) *NGramModel {
	m := &NGramModel{}
	m.grow(order)
	return m
}

func (m *NGramModel) grow(order int) {
	for len(m.Grams) < order {
		m.Grams = append(m.Grams, make(map[string]Entry))
	}
	if order > m.Order {
		m.Order = order
	}
}

// Key joins tokens into the map key used by Grams.
func Key(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Lookup returns the entry of the n-gram made of tokens.
func (m *NGramModel) Lookup(tokens []string) (Entry, bool) {
	k := len(tokens)
	if k == 0 || k > len(m.Grams) {
		return Entry{}, false
	}
	e, ok := m.Grams[k-1][Key(tokens)]
	return e, ok
}

// LogProb returns the log probability of word given its history, backing
// off to shorter histories when the n-gram is unseen.
func (m *NGramModel) LogProb(history []string, word string) float64 {
	if m.Order == 0 {
		return math.Inf(-1)
	}
	if len(history) > m.Order-1 {
		history = history[len(history)-(m.Order-1):]
	}
	backoff := 0.0
	for {
		gram := append(append([]string(nil), history...), word)
		if e, ok := m.Lookup(gram); ok {
			return backoff + e.LogProb
		}
		if len(history) == 0 {
			return math.Inf(-1)
		}
		if e, ok := m.Lookup(history); ok {
			backoff += e.LogBackoff
		}
		history = history[1:]
	}
}

// SentenceLogProb returns the total log probability of a token sequence,
// adding <s> and </s>.
func (m *NGramModel) SentenceLogProb(tokens []string) float64 {
	total := 0.0
	history := []string{sentenceBegin}
	for _, w := range tokens {
		total += m.LogProb(history, w)
		history = append(history, w)
	}
	return total + m.LogProb(history, sentenceEnd)
}

// Vocab returns the unigram vocabulary in sorted order.
func (m *NGramModel) Vocab() []string {
	if len(m.Grams) == 0 {
		return nil
	}
	words := make([]string, 0, len(m.Grams[0]))
	for w := range m.Grams[0] {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
