package language

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/semiring"
)

var log = logging.WithComponent("language")

// ErrToken indicates a joint token that cannot be split into a grapheme and
// a phoneme side.
var ErrToken = errors.New("language: malformed joint token")

// JointConfig describes how joint tokens are spelled.
type JointConfig struct {
	// Separator splits a token into its grapheme and phoneme sides.
	Separator string
	// Tie joins the symbols of a multi-symbol side.
	Tie string
	// Skip marks an empty side.
	Skip string
}

// DefaultJointConfig returns the conventional "g}p" spelling with "|" ties
// and "_" for an empty side.
func DefaultJointConfig() JointConfig {
	return JointConfig{Separator: "}", Tie: fst.Tie, Skip: fst.Skip}
}

// SplitJoint splits a joint token into its grapheme and phoneme sides.
func (c JointConfig) SplitJoint(token string) (graphemes, phonemes string, err error) {
	i := strings.LastIndex(token, c.Separator)
	if i <= 0 || i+len(c.Separator) >= len(token) {
		return "", "", fmt.Errorf("%q: %w", token, ErrToken)
	}
	return token[:i], token[i+len(c.Separator):], nil
}

// JoinJoint spells a joint token from grapheme and phoneme sequences; an
// empty side becomes the skip marker.
func (c JointConfig) JoinJoint(graphemes, phonemes []string) string {
	side := func(syms []string) string {
		if len(syms) == 0 {
			return c.Skip
		}
		return strings.Join(syms, c.Tie)
	}
	return side(graphemes) + c.Separator + side(phonemes)
}

// ToFst converts a joint-sequence model into a tropical G2P transducer.
//
// Every n-gram history is a state. A pre-start state reads <s> into the
// "<s>" history, each n-gram (h, g}p) becomes an arc g:p from h to the
// longest known suffix of h+token weighted -ln P, each history backs off to
// its suffix with an epsilon arc weighted -ln bow, and </s> arcs lead into
// the single final state. A skip grapheme side is read as epsilon.
func ToFst(m *NGramModel, cfg JointConfig) (*fst.Fst[semiring.Tropical], error) {
	if m.Order == 0 || len(m.Grams[0]) == 0 {
		return nil, fmt.Errorf("empty model: %w", ErrARPA)
	}
	isyms := fst.NewSymbolTable(fst.DefaultReservedSymbols...)
	osyms := fst.NewSymbolTable(fst.DefaultReservedSymbols...)
	f := fst.New[semiring.Tropical](isyms, osyms)

	// histories are all n-grams below the top order that can be continued
	states := map[string]int{"": f.AddState()}
	for k := 1; k < m.Order; k++ {
		for _, key := range sortedKeys(m.Grams[k-1]) {
			if strings.HasSuffix(key, sentenceEnd) {
				continue
			}
			states[key] = f.AddState()
		}
	}
	prestart := f.AddState()
	final := f.AddState()
	f.SetStart(prestart)
	f.SetFinal(final, 0)

	bos, ok := states[sentenceBegin]
	if !ok {
		// unigram models have no histories
		bos = states[""]
	}
	bosID, _ := isyms.Find(sentenceBegin)
	eosID, _ := isyms.Find(sentenceEnd)
	addArc := func(src int, arc fst.Arc) error {
		if err := f.AddArc(src, arc); err != nil {
			return fmt.Errorf("add arc: %w", err)
		}
		return nil
	}
	if err := addArc(prestart, fst.Arc{ILabel: bosID, OLabel: bosID, Weight: 0, NextState: bos}); err != nil {
		return nil, err
	}

	// suffix returns the state of the longest known suffix of tokens.
	suffix := func(tokens []string) int {
		for len(tokens) > 0 {
			if id, ok := states[Key(tokens)]; ok {
				return id
			}
			tokens = tokens[1:]
		}
		return states[""]
	}

	for k := 1; k <= m.Order; k++ {
		for _, key := range sortedKeys(m.Grams[k-1]) {
			e := m.Grams[k-1][key]
			tokens := strings.Fields(key)
			hist, word := tokens[:k-1], tokens[k-1]
			src, ok := states[Key(hist)]
			if !ok {
				log.Debugf("skipping %q: history is not a state", key)
				continue
			}
			w := semiring.Weight(-e.LogProb)

			switch word {
			case sentenceBegin:
				// only used as a history
			case sentenceEnd:
				if err := addArc(src, fst.Arc{ILabel: eosID, OLabel: eosID, Weight: w, NextState: final}); err != nil {
					return nil, err
				}
			default:
				g, p, err := cfg.SplitJoint(word)
				if err != nil {
					return nil, err
				}
				il := fst.EpsilonID
				if g != cfg.Skip {
					il = isyms.Add(g)
				}
				ol := osyms.Add(p)
				if err := addArc(src, fst.Arc{ILabel: il, OLabel: ol, Weight: w, NextState: suffix(tokens)}); err != nil {
					return nil, err
				}
			}

			if k < m.Order && word != sentenceEnd {
				if _, isState := states[key]; isState {
					bo := fst.Arc{ILabel: fst.EpsilonID, OLabel: fst.EpsilonID, Weight: semiring.Weight(-e.LogBackoff), NextState: suffix(tokens[1:])}
					if err := addArc(states[key], bo); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	log.Infof("built G2P model: %d states, %d arcs, %d graphemes, %d phonemes",
		f.NumStates(), f.NumArcs(), isyms.Len(), osyms.Len())
	return f, nil
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
