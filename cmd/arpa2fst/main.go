package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ieee0824/g2p-go/fst"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/language"
)

var log = logging.WithComponent("arpa2fst")

func main() {
	arpaPath := flag.String("arpa", "", "joint-sequence ARPA language model")
	binPath := flag.String("out", "", "binary G2P model to write")
	textBase := flag.String("text", "", "basename for OpenFST text output (.fst.txt, .input.syms, .output.syms)")
	sep := flag.String("sep", "}", "grapheme/phoneme separator inside joint tokens")
	tie := flag.String("tie", fst.Tie, "separator between the symbols of a multi-symbol side")
	skip := flag.String("skip", fst.Skip, "marker of an empty side")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: arpa2fst -arpa LM.arpa [-out MODEL] [-text BASENAME]")
		fmt.Fprintln(os.Stderr, "  Converts a joint-sequence n-gram model into a G2P transducer.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *arpaPath == "" || (*binPath == "" && *textBase == "") {
		flag.Usage()
		os.Exit(1)
	}
	if *verbose {
		logging.SetLevel("info")
	}

	f, err := os.Open(*arpaPath)
	if err != nil {
		log.Fatalf("open %s: %v", *arpaPath, err)
	}
	lm, err := language.LoadARPA(f)
	f.Close()
	if err != nil {
		log.Fatalf("load %s: %v", *arpaPath, err)
	}

	cfg := language.JointConfig{Separator: *sep, Tie: *tie, Skip: *skip}
	model, err := language.ToFst(lm, cfg)
	if err != nil {
		log.Fatalf("convert: %v", err)
	}

	if *binPath != "" {
		if err := fst.SaveBinary(model, *binPath); err != nil {
			log.Fatalf("write %s: %v", *binPath, err)
		}
	}
	if *textBase != "" {
		if err := fst.ExportText(model, *textBase); err != nil {
			log.Fatalf("write %s: %v", *textBase, err)
		}
	}
	fmt.Fprintf(os.Stderr, "Converted %d-gram model: %d states, %d arcs\n", lm.Order, model.NumStates(), model.NumArcs())
}
