package main

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/g2p-go/lexicon"
)

func TestSplit(t *testing.T) {
	dict, err := lexicon.Load(strings.NewReader(`cat  k ae t
read  r iy d
read  r eh d
that  dh ae t
thin  th ih n
b2b  b iy t uw b iy
nopron
extraordinary  eh k s t r ao r d ah n eh r iy
don't  d ow n t
`))
	require.NoError(t, err)

	train, test, dropped := split(dict, 0.2, 10, rand.New(rand.NewSource(1)))
	assert.Equal(t, 3, dropped, "b2b, nopron and extraordinary")
	assert.Len(t, test, 1)
	assert.Len(t, train, 4)
	assert.ElementsMatch(t, []string{"cat", "read", "that", "thin", "don't"}, append(append([]string(nil), train...), test...))

	again, againTest, _ := split(dict, 0.2, 10, rand.New(rand.NewSource(1)))
	assert.Equal(t, train, again, "same seed, same split")
	assert.Equal(t, test, againTest)
}

func TestIsWord(t *testing.T) {
	assert.True(t, isWord("café"))
	assert.True(t, isWord("o'neil"))
	assert.False(t, isWord("r2d2"))
	assert.False(t, isWord(""))
}
