package language

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrARPA indicates a malformed ARPA file.
var ErrARPA = errors.New("language: malformed ARPA model")

// LoadARPA reads a language model in ARPA format. Base-10 log values are
// converted to natural log.
func LoadARPA(r io.Reader) (*NGramModel, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	model := &NGramModel{}
	lineNum := 0
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNum++
		return strings.TrimSpace(scanner.Text()), true
	}

	// skip the header up to \data\
	found := false
	for line, ok := next(); ok; line, ok = next() {
		if line == "\\data\\" {
			found = true
			break
		}
	}
	if !found {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing \\data\\ section: %w", ErrARPA)
	}

	counts := make(map[int]int)
	line, ok := next()
	for ; ok; line, ok = next() {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "ngram ") {
			break
		}
		parts := strings.SplitN(line[len("ngram "):], "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: bad count %q: %w", lineNum, line, ErrARPA)
		}
		order, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		n, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || order < 1 {
			return nil, fmt.Errorf("line %d: bad count %q: %w", lineNum, line, ErrARPA)
		}
		counts[order] = n
		model.grow(order)
	}

	order := 0
	for ; ok; line, ok = next() {
		switch {
		case line == "":
		case line == "\\end\\":
			if err := checkCounts(model, counts); err != nil {
				return nil, err
			}
			return model, nil
		case strings.HasPrefix(line, "\\") && strings.HasSuffix(line, "-grams:"):
			o, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, "\\"), "-grams:"))
			if err != nil || o < 1 {
				return nil, fmt.Errorf("line %d: bad section %q: %w", lineNum, line, ErrARPA)
			}
			order = o
			model.grow(order)
		default:
			if order == 0 {
				return nil, fmt.Errorf("line %d: n-gram outside a section: %w", lineNum, ErrARPA)
			}
			if err := parseNGramLine(model, order, line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("missing \\end\\ marker: %w", ErrARPA)
}

func checkCounts(model *NGramModel, counts map[int]int) error {
	for order, n := range counts {
		if got := len(model.Grams[order-1]); got != n {
			return fmt.Errorf("%d-grams: header says %d, found %d: %w", order, n, got, ErrARPA)
		}
	}
	return nil
}

func parseNGramLine(model *NGramModel, order int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < order+1 || len(fields) > order+2 {
		return fmt.Errorf("%d fields for a %d-gram: %w", len(fields), order, ErrARPA)
	}
	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("parse log prob: %w", err)
	}
	entry := Entry{LogProb: logProb * math.Ln10}
	if len(fields) == order+2 {
		bo, err := strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return fmt.Errorf("parse backoff: %w", err)
		}
		entry.LogBackoff = bo * math.Ln10
	}
	model.Grams[order-1][Key(fields[1:order+1])] = entry
	return nil
}
