package align

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/g2p-go/language"
	"github.com/ieee0824/g2p-go/operations"
)

var lexicon = [][2]string{
	{"cat", "k ae t"},
	{"bat", "b ae t"},
	{"cab", "k ae b"},
	{"tax", "t ae k s"},
	{"ax", "ae k s"},
	{"box", "b aa k s"},
	{"fox", "f aa k s"},
	{"six", "s ih k s"},
	{"bit", "b ih t"},
	{"fit", "f ih t"},
	{"bake", "b ey k"},
	{"cake", "k ey k"},
}

func letters(w string) []string {
	return strings.Split(w, "")
}

func newAligner(t *testing.T, cfg Config) *Aligner {
	t.Helper()
	a := New(cfg)
	for _, e := range lexicon {
		require.NoError(t, a.Add(letters(e[0]), strings.Fields(e[1])), e[0])
	}
	require.Equal(t, len(lexicon), a.Len())
	return a
}

// unjoin rebuilds both sequences from joint tokens.
func unjoin(t *testing.T, cfg language.JointConfig, tokens []string) (g, p []string) {
	t.Helper()
	for _, tok := range tokens {
		gs, ps, err := cfg.SplitJoint(tok)
		require.NoError(t, err)
		if gs != cfg.Skip {
			g = append(g, strings.Split(gs, cfg.Tie)...)
		}
		if ps != cfg.Skip {
			p = append(p, strings.Split(ps, cfg.Tie)...)
		}
	}
	return g, p
}

func TestAdd_Errors(t *testing.T) {
	a := New(DefaultConfig())
	assert.ErrorIs(t, a.Add(nil, []string{"k"}), ErrNoAlignment)
	assert.ErrorIs(t, a.Add([]string{"a"}, nil), ErrNoAlignment)

	// three phonemes cannot come from one letter without phoneme insertions
	assert.ErrorIs(t, a.Add([]string{"a"}, []string{"x", "y", "z"}), ErrNoAlignment)
	assert.Equal(t, 0, a.Len())

	cfg := DefaultConfig()
	cfg.Seq2Del = true
	a = New(cfg)
	assert.NoError(t, a.Add([]string{"a"}, []string{"x", "y", "z"}))
}

func TestTrain_NoEntries(t *testing.T) {
	_, err := New(DefaultConfig()).Train(context.Background())
	assert.ErrorIs(t, err, ErrNoAlignment)
}

func TestTrain_Cancelled(t *testing.T) {
	a := newAligner(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Train(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 3
	a := newAligner(t, cfg)

	changes, err := a.Train(context.Background())
	require.NoError(t, err)
	assert.Len(t, changes, cfg.Iterations+2)

	for i, e := range lexicon {
		tokens, cost, err := a.Best(i)
		require.NoError(t, err, e[0])
		assert.Greater(t, float64(cost), 0.0)

		g, p := unjoin(t, cfg.Joint, tokens)
		assert.Equal(t, letters(e[0]), g, e[0])
		assert.Equal(t, strings.Fields(e[1]), p, e[0])
	}

	tokens, _, err := a.Best(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c}k", "a}ae", "t}t"}, tokens)

	tokens, _, err = a.Best(4)
	require.NoError(t, err)
	assert.Equal(t, []string{"a}ae", "x}k|s"}, tokens)

	_, _, err = a.Best(len(lexicon))
	assert.Error(t, err)
}

func TestTrain_LikelihoodImproves(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Penalize = false

	cfg.Iterations = 0
	short := newAligner(t, cfg)
	_, err := short.Train(context.Background())
	require.NoError(t, err)
	llShort, err := short.LogLikelihood()
	require.NoError(t, err)

	cfg.Iterations = 5
	long := newAligner(t, cfg)
	_, err = long.Train(context.Background())
	require.NoError(t, err)
	llLong, err := long.LogLikelihood()
	require.NoError(t, err)

	assert.Less(t, llLong, 0.0)
	assert.GreaterOrEqual(t, llLong, llShort-1e-6)
}

func TestSymbols(t *testing.T) {
	a := newAligner(t, DefaultConfig())
	_, ok := a.Symbols().Find("x}k|s")
	assert.True(t, ok)
	_, ok = a.Symbols().Find("e}_")
	assert.True(t, ok, "letters may align to nothing by default")
	_, ok = a.Symbols().Find("_}k")
	assert.False(t, ok)
}

func TestBest_CostIsShortestDistance(t *testing.T) {
	a := newAligner(t, DefaultConfig())
	_, err := a.Train(context.Background())
	require.NoError(t, err)

	for i := range lexicon {
		_, cost, err := a.Best(i)
		require.NoError(t, err)
		lat := tropical(a.lattices[i])
		d, err := operations.ShortestDistance(lat, true)
		require.NoError(t, err)
		assert.InDelta(t, float64(d[lat.Start()]), float64(cost), 1e-9, lexicon[i][0])
	}
}
