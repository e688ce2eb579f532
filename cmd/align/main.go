package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ieee0824/g2p-go/align"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/lexicon"
)

var log = logging.WithComponent("align")

func main() {
	cfg := align.DefaultConfig()
	flag.IntVar(&cfg.Seq1Max, "seq1max", cfg.Seq1Max, "longest grapheme chunk")
	flag.IntVar(&cfg.Seq2Max, "seq2max", cfg.Seq2Max, "longest phoneme chunk")
	flag.BoolVar(&cfg.Seq1Del, "seq1del", cfg.Seq1Del, "allow letters aligned to nothing")
	flag.BoolVar(&cfg.Seq2Del, "seq2del", cfg.Seq2Del, "allow phonemes aligned to nothing")
	flag.IntVar(&cfg.Iterations, "iter", cfg.Iterations, "EM iterations")
	flag.BoolVar(&cfg.Penalize, "penalize", cfg.Penalize, "penalize long chunks in the final model")
	flag.IntVar(&cfg.Workers, "workers", 0, "expectation workers (0 = NumCPU, at most 8)")
	flag.StringVar(&cfg.Joint.Separator, "sep", cfg.Joint.Separator, "grapheme/phoneme separator inside joint tokens")
	output := flag.String("output", "", "output file (default: stdout)")
	verbose := flag.Bool("v", false, "log every iteration")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: align [options] <dict.txt>")
		fmt.Fprintln(os.Stderr, "  Aligns a pronunciation dictionary into joint tokens for lmbuild.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	if *verbose {
		logging.SetLevel("info")
	}

	dict, err := lexicon.LoadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("load %s: %v", flag.Arg(0), err)
	}

	w := os.Stdout
	if *output != "" {
		w, err = os.Create(*output)
		if err != nil {
			log.Fatalf("create %s: %v", *output, err)
		}
		defer w.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	written, skipped, err := run(ctx, dict, cfg, w)
	if err != nil {
		log.Fatalf("align: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Aligned %d entries (%d skipped) in %v\n", written, skipped, time.Since(start).Round(time.Millisecond))
}

// run aligns every pronunciation of dict and writes one line of joint
// tokens per entry. Entries that cannot be aligned are skipped.
func run(ctx context.Context, dict *lexicon.Dictionary, cfg align.Config, w io.Writer) (written, skipped int, err error) {
	a := align.New(cfg)
	for _, word := range dict.Words() {
		letters := strings.Split(strings.ToLower(word), "")
		for _, e := range dict.Lookup(word) {
			if err := a.Add(letters, e.Phonemes); err != nil {
				log.Warnf("%s: %v", word, err)
				skipped++
			}
		}
	}
	if a.Len() == 0 {
		return 0, skipped, fmt.Errorf("no alignable entries: %w", align.ErrNoAlignment)
	}

	if _, err := a.Train(ctx); err != nil {
		return 0, skipped, err
	}

	bw := bufio.NewWriter(w)
	for i := 0; i < a.Len(); i++ {
		tokens, _, err := a.Best(i)
		if err != nil {
			return written, skipped, err
		}
		fmt.Fprintln(bw, strings.Join(tokens, " "))
		written++
	}
	return written, skipped, bw.Flush()
}
