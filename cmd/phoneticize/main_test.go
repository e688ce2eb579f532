package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	g2p "github.com/ieee0824/g2p-go"
	"github.com/ieee0824/g2p-go/decoder"
	"github.com/ieee0824/g2p-go/language"
	"github.com/ieee0824/g2p-go/lexicon"
)

func TestRun(t *testing.T) {
	b := language.NewBuilder(3)
	for _, line := range []string{"c}k a}ae t}t", "c}k a}ae b}b", "b}b a}ae t}t", "t}t i}ih n}n"} {
		b.AddSentence(strings.Fields(line))
	}
	model, err := language.ToFst(b.Model(), language.DefaultJointConfig())
	require.NoError(t, err)
	dec, err := decoder.New(model, decoder.DefaultConfig())
	require.NoError(t, err)
	p, err := g2p.NewPhoneticizer(dec)
	require.NoError(t, err)

	dict, err := lexicon.Load(strings.NewReader("cat  k ae t\n7\ntin  t ih m\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	score, err := run(context.Background(), p, dict, 1, 2, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	fields := strings.Split(lines[0], "\t")
	require.Len(t, fields, 3)
	assert.Equal(t, "cat", fields[0])
	assert.Regexp(t, `^\d+\.\d{4}$`, fields[1])
	assert.Equal(t, "k ae t", fields[2])
	assert.Equal(t, "", lines[1], "no pronunciation for 7")
	assert.True(t, strings.HasPrefix(lines[2], "tin\t"))

	assert.Equal(t, 2, score.Words)
	assert.Equal(t, 6, score.Phonemes)
	assert.Equal(t, 1, score.PhonemeEdits)
	assert.InDelta(t, 0.5, score.WER(), 1e-12)
}
