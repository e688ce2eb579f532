package operations

import (
	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/semiring"
)

// ProjectType selects the tape kept by Project.
type ProjectType int

const (
	ProjectInput ProjectType = iota
	ProjectOutput
)

// Project turns f into an acceptor in place by copying the selected tape's
// labels onto the other. Weights are untouched.
func Project[S semiring.Semiring](f *fst.Fst[S], typ ProjectType) {
	for _, s := range f.States() {
		for i := range s.Arcs {
			if typ == ProjectInput {
				s.Arcs[i].OLabel = s.Arcs[i].ILabel
			} else {
				s.Arcs[i].ILabel = s.Arcs[i].OLabel
			}
		}
	}
	if typ == ProjectInput {
		f.SetOutputSymbols(f.InputSymbols())
	} else {
		f.SetInputSymbols(f.OutputSymbols())
	}
}
