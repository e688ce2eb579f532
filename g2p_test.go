package g2p

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/g2p-go/decoder"
	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/language"
	"github.com/ieee0824/g2p-go/semiring"
)

var aligned = []string{
	"c}k a}ae t}t",
	"c}k a}ae b}b",
	"b}b a}ae t}t",
	"t|h}dh a}ae t}t",
	"t|h}th i}ih n}n",
	"t}t i}ih n}n",
	"c}s e}eh n}n t}t",
	"a}ae x}k|s",
}

func testModel(t *testing.T) *fst.Fst[semiring.Tropical] {
	t.Helper()
	b := language.NewBuilder(3)
	for _, line := range aligned {
		b.AddSentence(strings.Fields(line))
	}
	model, err := language.ToFst(b.Model(), language.DefaultJointConfig())
	require.NoError(t, err)
	return model
}

func testPhoneticizer(t *testing.T, opts ...Option) *Phoneticizer {
	t.Helper()
	dec, err := decoder.New(testModel(t), decoder.DefaultConfig())
	require.NoError(t, err)
	p, err := NewPhoneticizer(dec, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestGraphemes(t *testing.T) {
	p := testPhoneticizer(t)
	assert.Equal(t, []string{"c", "a", "t"}, p.Graphemes("CaT"))
	assert.Equal(t, []string{"é", "t", "é"}, p.Graphemes("été"))

	p.KeepCase = true
	assert.Equal(t, []string{"C", "a", "T"}, p.Graphemes("CaT"))
}

func TestPhoneticize(t *testing.T) {
	p := testPhoneticizer(t)
	ctx := context.Background()

	paths, err := p.Phoneticize(ctx, "Cat", 1)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "k ae t", paths[0].String())

	paths, err = p.Phoneticize(ctx, "42", 1)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestPhoneticize_Cache(t *testing.T) {
	p := testPhoneticizer(t, WithCache(filepath.Join(t.TempDir(), "g2p.db")))
	require.NotNil(t, p.Cache)
	ctx := context.Background()

	want, err := p.Phoneticize(ctx, "thin", 2)
	require.NoError(t, err)

	cached, ok, err := p.Cache.Get(ctx, "thin", 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached, len(want))
	for i := range want {
		assert.Equal(t, want[i].Phonemes, cached[i].Phonemes)
	}

	// a poisoned entry proves the second call is served from the cache
	require.NoError(t, p.Cache.Put(ctx, "thin", 2, []decoder.Path{{Phonemes: []string{"x"}, Cost: 1}}))
	got, err := p.Phoneticize(ctx, "thin", 2)
	require.NoError(t, err)
	assert.Equal(t, "x", got[0].String())
}

func TestPhoneticizeAll(t *testing.T) {
	p := testPhoneticizer(t)
	words := []string{"cat", "thin", "tin", "ax", "9", "cab"}

	results, err := p.PhoneticizeAll(context.Background(), words, 1, 3)
	require.NoError(t, err)
	require.Len(t, results, len(words))
	for i, w := range words {
		single, err := p.Phoneticize(context.Background(), w, 1)
		require.NoError(t, err)
		assert.Equal(t, single, results[i], w)
	}
	assert.Empty(t, results[4])
}

func TestPhoneticizeAll_Cancelled(t *testing.T) {
	p := testPhoneticizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.PhoneticizeAll(ctx, []string{"cat", "tin"}, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	model := testModel(t)
	bin := filepath.Join(dir, "model.g2p")
	require.NoError(t, fst.SaveBinary(model, bin))
	base := filepath.Join(dir, "model")
	require.NoError(t, fst.ExportText(model, base))

	tests := []struct {
		name string
		path string
		opts []Option
	}{
		{"binary", bin, nil},
		{"text_auto", base + fst.FstTextSuffix, nil},
		{"text_forced", base, []Option{WithFormat("text")}},
		{"binary_forced", bin, []Option{WithFormat("binary")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Open(tt.path, tt.opts...)
			require.NoError(t, err)
			defer p.Close()
			paths, err := p.Phoneticize(context.Background(), "cat", 1)
			require.NoError(t, err)
			require.Len(t, paths, 1)
			assert.Equal(t, "k ae t", paths[0].String())
		})
	}

	_, err := Open(bin, WithFormat("xml"))
	assert.Error(t, err)
	_, err = Open(filepath.Join(dir, "missing.g2p"))
	assert.Error(t, err)
}
