package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	g2p "github.com/ieee0824/g2p-go"
	"github.com/ieee0824/g2p-go/internal/config"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/lexicon"
)

var log = logging.WithComponent("phoneticize")

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.g2prc, /etc/g2p/config.yaml)")
	modelPath := flag.String("model", "", "path to G2P model (binary, or OpenFST text ending in .fst.txt)")
	format := flag.String("format", "", "model format: auto, binary or text")
	wordsPath := flag.String("words", "", "word list: one word per line, optionally followed by two spaces and a reference pronunciation")
	nbest := flag.Int("n", 0, "number of pronunciations per word (default from config)")
	eval := flag.Bool("eval", false, "score the best pronunciation against the reference column")
	cachePath := flag.String("cache", "", "SQLite pronunciation cache")
	workers := flag.Int("workers", 0, "parallel decoders (0 = NumCPU, at most 8)")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("environment: %v", err)
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *format != "" {
		cfg.Model.Format = *format
	}
	if *nbest > 0 {
		cfg.Decoder.NBest = *nbest
	}
	if *cachePath != "" {
		cfg.Cache.Path = *cachePath
	}
	if *verbose {
		cfg.Log.Level = "info"
	}
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		log.Fatalf("log level: %v", err)
	}

	if cfg.Model.Path == "" || *wordsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: phoneticize -model MODEL -words WORDLIST [-n N] [-eval]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	dict, err := lexicon.LoadFile(*wordsPath)
	if err != nil {
		log.Fatalf("load word list: %v", err)
	}

	start := time.Now()
	p, err := g2p.Open(cfg.Model.Path,
		g2p.WithDecoderConfig(cfg.DecoderConfig()),
		g2p.WithFormat(cfg.Model.Format),
		g2p.WithCache(cfg.Cache.Path),
	)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer p.Close()
	fmt.Fprintf(os.Stderr, "Model loaded in %s\n", time.Since(start).Round(time.Millisecond))

	start = time.Now()
	out := bufio.NewWriter(os.Stdout)
	score, err := run(context.Background(), p, dict, cfg.Decoder.NBest, *workers, out)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := out.Flush(); err != nil {
		log.Fatalf("write output: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Decoded %d words in %s\n", len(dict.Words()), time.Since(start).Round(time.Millisecond))
	if *eval {
		fmt.Fprintf(os.Stderr, "Words: %d  PER: %.2f%%  WER: %.2f%%\n", score.Words, 100*score.PER(), 100*score.WER())
	}
}

// run decodes every word of dict and writes "WORD\tCOST\tPHONEMES" lines,
// an empty line for a word without pronunciation. The best pronunciation of
// each word with a reference is scored.
func run(ctx context.Context, p *g2p.Phoneticizer, dict *lexicon.Dictionary, n, workers int, w io.Writer) (lexicon.Score, error) {
	var score lexicon.Score
	words := dict.Words()
	results, err := p.PhoneticizeAll(ctx, words, n, workers)
	if err != nil {
		return score, err
	}
	for i, word := range words {
		paths := results[i]
		if len(paths) == 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return score, err
			}
		}
		for _, path := range paths {
			if _, err := fmt.Fprintf(w, "%s\t%.4f\t%s\n", word, float64(path.Cost), path.String()); err != nil {
				return score, err
			}
		}
		if ref, ok := dict.PhonemeSequence(word); ok && len(ref) > 0 {
			var hyp []string
			if len(paths) > 0 {
				hyp = paths[0].Phonemes
			}
			score.Add(ref, hyp)
		}
	}
	return score, nil
}
