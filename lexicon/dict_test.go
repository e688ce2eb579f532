package lexicon

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDict = `# test word list
cat  k ae t
that	dh ae t
read  r iy d
read  r eh d
unknown
`

func TestLoadDict(t *testing.T) {
	d, err := Load(strings.NewReader(testDict))
	require.NoError(t, err)

	entries := d.Lookup("cat")
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"k", "ae", "t"}, entries[0].Phonemes)

	assert.Len(t, d.Lookup("read"), 2)

	ph, ok := d.PhonemeSequence("that")
	require.True(t, ok)
	assert.Equal(t, []string{"dh", "ae", "t"}, ph)

	ph, ok = d.PhonemeSequence("unknown")
	assert.True(t, ok)
	assert.Empty(t, ph)
}

func TestLookupMissing(t *testing.T) {
	d, err := Load(strings.NewReader(testDict))
	require.NoError(t, err)

	_, ok := d.PhonemeSequence("missing")
	assert.False(t, ok)
}

func TestWords_FileOrder(t *testing.T) {
	d, err := Load(strings.NewReader(testDict))
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "that", "read", "unknown"}, d.Words())
}

func TestLoad_SingleSpace(t *testing.T) {
	_, err := Load(strings.NewReader("cat k ae t\n"))
	assert.Error(t, err)
}

func TestSplitLine(t *testing.T) {
	w, ph := SplitLine("  x  k s  ")
	assert.Equal(t, "x", w)
	assert.Equal(t, []string{"k", "s"}, ph)

	w, ph = SplitLine("word")
	assert.Equal(t, "word", w)
	assert.Empty(t, ph)
}

func TestWrite(t *testing.T) {
	d, err := Load(strings.NewReader(testDict))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf, []string{"read", "unknown", "missing", "that"}))
	assert.Equal(t, "read  r iy d\nread  r eh d\nunknown\nthat  dh ae t\n", buf.String())

	again, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, d.Lookup("read"), again.Lookup("read"))
}
