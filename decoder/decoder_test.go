package decoder

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/language"
	"github.com/ieee0824/g2p-go/semiring"
)

// aligned is a tiny grapheme-phoneme aligned corpus in joint-token form.
var aligned = []string{
	"c}k a}ae t}t",
	"c}k a}ae b}b",
	"b}b a}ae t}t",
	"t|h}dh a}ae t}t",
	"t|h}th i}ih n}n",
	"t}t i}ih n}n",
	"c}s e}eh n}n t}t",
	"a}ae x}k|s",
	"b}b a}ey k}k e}_",
}

func buildModel(t testing.TB) *fst.Fst[semiring.Tropical] {
	t.Helper()
	b := language.NewBuilder(3)
	for _, line := range aligned {
		b.AddSentence(strings.Fields(line))
	}
	model, err := language.ToFst(b.Model(), language.DefaultJointConfig())
	require.NoError(t, err)
	return model
}

func letters(word string) []string {
	return strings.Split(word, "")
}

type DecoderSuite struct {
	suite.Suite
	model *fst.Fst[semiring.Tropical]
	dec   *Decoder[semiring.Tropical]
}

func (s *DecoderSuite) SetupSuite() {
	s.model = buildModel(s.T())
	dec, err := New(s.model, DefaultConfig())
	s.Require().NoError(err)
	s.dec = dec
}

func TestDecoderSuite(t *testing.T) {
	suite.Run(t, new(DecoderSuite))
}

func (s *DecoderSuite) phoneticize(word string, n int) []Path {
	paths, err := s.dec.Phoneticize(context.Background(), letters(word), n)
	s.Require().NoError(err)
	return paths
}

func (s *DecoderSuite) TestSingleBest() {
	paths := s.phoneticize("cat", 1)
	s.Require().Len(paths, 1)
	s.Equal("k ae t", paths[0].String())
	s.Greater(float64(paths[0].Cost), 0.0)
}

func (s *DecoderSuite) TestDefaultNBest() {
	paths := s.phoneticize("cat", 0)
	s.Len(paths, DefaultConfig().NBest)
}

func (s *DecoderSuite) TestNBestOrdered() {
	paths := s.phoneticize("cat", 5)
	s.Require().NotEmpty(paths)
	s.LessOrEqual(len(paths), 5)
	for i := 1; i < len(paths); i++ {
		s.LessOrEqual(float64(paths[i-1].Cost), float64(paths[i].Cost))
	}
	s.Equal("k ae t", paths[0].String())
}

func (s *DecoderSuite) TestUnknownGraphemeSkipped() {
	plain := s.phoneticize("cat", 1)
	noisy := s.phoneticize("c4at", 1)
	s.Require().Len(noisy, 1)
	s.Equal(plain[0].String(), noisy[0].String())
	s.InDelta(float64(plain[0].Cost), float64(noisy[0].Cost), 1e-9)
}

func (s *DecoderSuite) TestNothingReadable() {
	s.Empty(s.phoneticize("4", 3))
	s.Empty(s.phoneticize("", 3))
}

func (s *DecoderSuite) TestClusterSpan() {
	s.False(s.dec.Known("h"), "h is readable only inside the t|h cluster")

	paths := s.phoneticize("that", 1)
	s.Require().Len(paths, 1)
	s.Require().Len(paths[0].Phonemes, 3)
	s.Contains([]string{"dh", "th"}, paths[0].Phonemes[0])

	// a lone cluster member has no path of its own
	s.Empty(s.phoneticize("h", 1))
}

func (s *DecoderSuite) TestMultiPhonemeOutput() {
	paths := s.phoneticize("ax", 1)
	s.Require().Len(paths, 1)
	s.Equal([]string{"ae", "k", "s"}, paths[0].Phonemes)
}

func (s *DecoderSuite) TestSkipPhonemeDropped() {
	paths := s.phoneticize("bake", 1)
	s.Require().Len(paths, 1)
	s.Equal("b ey k", paths[0].String())
}

func (s *DecoderSuite) TestUnique() {
	cfg := DefaultConfig()
	cfg.Unique = true
	dec, err := New(s.model, cfg)
	s.Require().NoError(err)

	paths, err := dec.Phoneticize(context.Background(), letters("cat"), 3)
	s.Require().NoError(err)
	s.Require().Len(paths, 3)
	seen := map[string]bool{}
	for i, p := range paths {
		s.False(seen[p.String()], "duplicate %q", p.String())
		seen[p.String()] = true
		if i > 0 {
			s.LessOrEqual(float64(paths[i-1].Cost), float64(p.Cost))
		}
	}
	s.Equal("k ae t", paths[0].String())
	s.True(seen["s ae t"])
}

func (s *DecoderSuite) TestCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.dec.Phoneticize(ctx, letters("cat"), 1)
	s.ErrorIs(err, context.Canceled)
}

func (s *DecoderSuite) TestTooLarge() {
	cfg := DefaultConfig()
	cfg.MaxStates = 2
	dec, err := New(s.model, cfg)
	s.Require().NoError(err)
	_, err = dec.Phoneticize(context.Background(), letters("cat"), 1)
	s.ErrorIs(err, ErrTooLarge)
}

func (s *DecoderSuite) TestModelUntouched() {
	before := s.model.NumArcs()
	s.phoneticize("that", 2)
	s.Equal(before, s.model.NumArcs())
	_, ok := s.model.InputSymbols().Find(fst.FilterE1)
	s.False(ok, "augmentation works on a copy")
}

func (s *DecoderSuite) TestConcurrent() {
	want := s.phoneticize("thin", 2)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	results := make(chan []Path, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths, err := s.dec.Phoneticize(context.Background(), letters("thin"), 2)
			errs <- err
			results <- paths
		}()
	}
	wg.Wait()
	close(errs)
	close(results)
	for err := range errs {
		s.NoError(err)
	}
	for got := range results {
		s.Equal(want, got)
	}
}

func (s *DecoderSuite) TestLoad() {
	dir := s.T().TempDir()

	bin := filepath.Join(dir, "model.fst")
	s.Require().NoError(fst.SaveBinary(s.model, bin))
	base := filepath.Join(dir, "model")
	s.Require().NoError(fst.ExportText(s.model, base))

	want := s.phoneticize("cab", 2)
	for _, path := range []string{bin, base + fst.FstTextSuffix} {
		dec, err := Load[semiring.Tropical](path, DefaultConfig())
		s.Require().NoError(err, path)
		got, err := dec.Phoneticize(context.Background(), letters("cab"), 2)
		s.Require().NoError(err)
		s.Require().Len(got, len(want))
		for i := range want {
			s.Equal(want[i].Phonemes, got[i].Phonemes)
			s.InDelta(float64(want[i].Cost), float64(got[i].Cost), 1e-6)
		}
	}

	_, err := Load[semiring.Tropical](filepath.Join(dir, "missing.fst"), DefaultConfig())
	s.Error(err)
}

func TestNew_InvalidModels(t *testing.T) {
	_, err := New(fst.New[semiring.Tropical](fst.NewSymbolTable(fst.DefaultReservedSymbols...), nil), DefaultConfig())
	assert.ErrorIs(t, err, ErrModel)

	noTie := fst.New[semiring.Tropical](fst.NewSymbolTable(fst.Epsilon), nil)
	noTie.SetStart(noTie.AddState())
	_, err = New(noTie, DefaultConfig())
	assert.ErrorIs(t, err, ErrModel)

	logModel := fst.New[semiring.Log](fst.NewSymbolTable(fst.DefaultReservedSymbols...), nil)
	logModel.SetStart(logModel.AddState())
	_, err = New(logModel, DefaultConfig())
	assert.ErrorIs(t, err, ErrModel)
}

func TestOccurrences(t *testing.T) {
	seq := []string{"a", "a", "a", "b"}
	assert.Equal(t, []int{0, 1}, occurrences(seq, []string{"a", "a"}))
	assert.Equal(t, []int{2}, occurrences(seq, []string{"a", "b"}))
	assert.Empty(t, occurrences(seq, []string{"b", "a"}))
	assert.Empty(t, occurrences(seq[:1], []string{"a", "a"}))
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "k ae t", Path{Phonemes: []string{"k", "ae", "t"}}.String())
	assert.Equal(t, "", Path{}.String())
}

func TestAcceptor_ClusterNeedsContiguousInput(t *testing.T) {
	b := language.NewBuilder(3)
	for _, line := range append(append([]string(nil), aligned...), "h}hh a}ae t}t") {
		b.AddSentence(strings.Fields(line))
	}
	model, err := language.ToFst(b.Model(), language.DefaultJointConfig())
	require.NoError(t, err)
	dec, err := New(model, DefaultConfig())
	require.NoError(t, err)
	require.True(t, dec.Known("h"))

	th, ok := dec.InputSymbols().Find("t|h")
	require.True(t, ok)
	hasCluster := func(word string) bool {
		acc, ok := dec.acceptor(letters(word))
		require.True(t, ok)
		for _, st := range acc.States() {
			for _, a := range st.Arcs {
				if a.ILabel == th {
					return true
				}
			}
		}
		return false
	}
	assert.True(t, hasCluster("that"))
	assert.True(t, hasCluster("t4that"), "the intact occurrence still counts")
	assert.False(t, hasCluster("t4h"), "dropping 4 must not join t and h")
}
