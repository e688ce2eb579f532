package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/language"
)

var log = logging.WithComponent("lmbuild")

func main() {
	order := flag.Int("order", 7, fmt.Sprintf("N-gram order (1-%d)", language.MaxOrder))
	output := flag.String("output", "", "output file (default: stdout)")
	sep := flag.String("sep", "}", "grapheme/phoneme separator inside joint tokens")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lmbuild [options] [input-files...]")
		fmt.Fprintln(os.Stderr, "  Builds an ARPA joint-sequence model from an aligned G2P corpus.")
		fmt.Fprintln(os.Stderr, "  Input: one word per line as joint tokens, e.g. \"t|h}th i}ih n}n\".")
		fmt.Fprintln(os.Stderr, "  If no input files given, reads from stdin.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	b := language.NewBuilder(*order)
	cfg := language.DefaultJointConfig()
	cfg.Separator = *sep

	var sentCount, skipped int
	if flag.NArg() == 0 {
		sentCount, skipped = readLines(b, cfg, os.Stdin)
	} else {
		for _, path := range flag.Args() {
			f, err := os.Open(path)
			if err != nil {
				log.Fatalf("open %s: %v", path, err)
			}
			n, s := readLines(b, cfg, f)
			f.Close()
			sentCount += n
			skipped += s
		}
	}

	w := os.Stdout
	if *output != "" {
		var err error
		w, err = os.Create(*output)
		if err != nil {
			log.Fatalf("create %s: %v", *output, err)
		}
		defer w.Close()
	}

	if err := b.WriteARPA(w); err != nil {
		log.Fatalf("write ARPA: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Built %d-gram model from %d words (%d malformed lines skipped)\n", b.Order(), sentCount, skipped)
}

// readLines adds every well-formed line of r to b and returns the number
// of lines added and skipped.
func readLines(b *language.Builder, cfg language.JointConfig, r io.Reader) (added, skipped int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		if err := validate(cfg, tokens); err != nil {
			log.Warnf("line %d: %v", lineNum, err)
			skipped++
			continue
		}
		b.AddSentence(tokens)
		added++
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read input: %v", err)
	}
	return added, skipped
}

func validate(cfg language.JointConfig, tokens []string) error {
	for _, tok := range tokens {
		if _, _, err := cfg.SplitJoint(tok); err != nil {
			return err
		}
	}
	return nil
}
