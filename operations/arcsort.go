package operations

import (
	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/semiring"
)

// SortType selects the arc sort key.
type SortType int

const (
	// ByInput orders arcs by input label, then output label.
	ByInput SortType = iota
	// ByOutput orders arcs by output label, then input label.
	ByOutput
)

// ArcSort stably sorts the arcs of every state in place.
func ArcSort[S semiring.Semiring](f *fst.Fst[S], typ SortType) {
	if typ == ByOutput {
		f.SortArcs(byOutput)
		return
	}
	f.SortArcs(byInput)
}
