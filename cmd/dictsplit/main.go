package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"unicode"

	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/lexicon"
)

var log = logging.WithComponent("dictsplit")

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '\'' && r != '-' {
			return false
		}
	}
	return s != ""
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func main() {
	testFrac := flag.Float64("test", 0.1, "fraction of words held out for testing")
	maxLen := flag.Int("maxlen", 0, "drop words longer than this many letters (0 = no limit)")
	seed := flag.Int64("seed", 1, "shuffle seed")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dictsplit [options] <dict.txt> <train.txt> <test.txt>")
		fmt.Fprintln(os.Stderr, "  Splits a pronunciation dictionary into training and test word lists.")
		fmt.Fprintln(os.Stderr, "  All pronunciations of a word land in the same part.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 3 || *testFrac < 0 || *testFrac > 1 {
		flag.Usage()
		os.Exit(1)
	}

	dict, err := lexicon.LoadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("load %s: %v", flag.Arg(0), err)
	}

	train, test, dropped := split(dict, *testFrac, *maxLen, rand.New(rand.NewSource(*seed)))
	for _, part := range []struct {
		path  string
		words []string
	}{{flag.Arg(1), train}, {flag.Arg(2), test}} {
		f, err := os.Create(part.path)
		if err != nil {
			log.Fatalf("create %s: %v", part.path, err)
		}
		if err := dict.Write(f, part.words); err != nil {
			log.Fatalf("write %s: %v", part.path, err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("close %s: %v", part.path, err)
		}
	}
	fmt.Fprintf(os.Stderr, "Words: train=%d test=%d dropped=%d\n", len(train), len(test), dropped)
}

// split shuffles the usable words of dict and cuts off the test share.
// Words with non-letter characters, no pronunciation or more than maxLen
// letters are dropped.
func split(dict *lexicon.Dictionary, testFrac float64, maxLen int, rng *rand.Rand) (train, test []string, dropped int) {
	var words []string
	for _, w := range dict.Words() {
		ph, _ := dict.PhonemeSequence(w)
		if !isWord(w) || len(ph) == 0 || (maxLen > 0 && runeLen(w) > maxLen) {
			dropped++
			continue
		}
		words = append(words, w)
	}
	rng.Shuffle(len(words), func(i, j int) {
		words[i], words[j] = words[j], words[i]
	})
	n := int(float64(len(words))*testFrac + 0.5)
	return words[n:], words[:n], dropped
}
