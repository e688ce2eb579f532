package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/operations"
	"github.com/ieee0824/g2p-go/semiring"
)

var log = logging.WithComponent("fstconvert")

func main() {
	in := flag.String("in", "", "input automaton: binary file, or OpenFST text ending in .fst.txt")
	out := flag.String("out", "", "output automaton: binary file, or OpenFST text ending in .fst.txt")
	sr := flag.String("semiring", "tropical", "semiring of the automaton: tropical, log or probability")
	sortArcs := flag.String("arcsort", "", "sort arcs before writing: input or output")
	connect := flag.Bool("connect", false, "remove states that are not on an accepting path")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: fstconvert -in MODEL -out MODEL [-semiring tropical]")
		fmt.Fprintln(os.Stderr, "  Converts between the binary and OpenFST text model formats.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch *sr {
	case semiring.Tropical{}.Name():
		err = convert[semiring.Tropical](*in, *out, *sortArcs, *connect)
	case semiring.Log{}.Name():
		err = convert[semiring.Log](*in, *out, *sortArcs, *connect)
	case semiring.Probability{}.Name():
		err = convert[semiring.Probability](*in, *out, *sortArcs, *connect)
	default:
		err = fmt.Errorf("unknown semiring %q", *sr)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func convert[S semiring.Semiring](in, out, sortArcs string, connect bool) error {
	var (
		f   *fst.Fst[S]
		err error
	)
	if base, ok := strings.CutSuffix(in, fst.FstTextSuffix); ok {
		f, err = fst.ImportText[S](base)
	} else {
		f, err = fst.LoadBinary[S](in)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}

	if connect {
		operations.Connect(f)
	}
	switch sortArcs {
	case "":
	case "input":
		operations.ArcSort(f, operations.ByInput)
	case "output":
		operations.ArcSort(f, operations.ByOutput)
	default:
		return fmt.Errorf("unknown arc sort %q", sortArcs)
	}

	if base, ok := strings.CutSuffix(out, fst.FstTextSuffix); ok {
		err = fst.ExportText(f, base)
	} else {
		err = fst.SaveBinary(f, out)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "%s -> %s: %d states, %d arcs\n", in, out, f.NumStates(), f.NumArcs())
	return nil
}
