package decoder

import (
	"strings"

	"github.com/ieee0824/g2p-go/semiring"
)

// Path is one pronunciation hypothesis.
type Path struct {
	Phonemes []string
	Cost     semiring.Weight // accumulated path weight; lower is better for tropical models
}

// String returns the phonemes separated by single spaces.
func (p Path) String() string {
	return strings.Join(p.Phonemes, " ")
}
