package fst

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ieee0824/g2p-go/semiring"
)

// File suffixes of the OpenFST interchange text format.
const (
	InputSymbolsSuffix  = ".input.syms"
	OutputSymbolsSuffix = ".output.syms"
	FstTextSuffix       = ".fst.txt"
)

// WriteSymbols writes one "symbol<TAB>id" line per entry, ordered by id.
func WriteSymbols(w io.Writer, t *SymbolTable) error {
	bw := bufio.NewWriter(w)
	for _, id := range t.IDs() {
		sym, _ := t.Symbol(id)
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", sym, id); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadSymbols parses "symbol<TAB>id" lines.
func ReadSymbols(r io.Reader) (*SymbolTable, error) {
	t := NewSymbolTable()
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			parts = strings.Fields(line)
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected symbol and id: %w", lineNum, ErrFormat)
		}
		id, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse id: %w", lineNum, err)
		}
		if err := t.Put(id, parts[0]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func formatWeight(w semiring.Weight) string {
	if math.IsInf(float64(w), 1) {
		return "Infinity"
	}
	return strconv.FormatFloat(float64(w), 'g', -1, 64)
}

// WriteText writes the automaton body: the start state with its final
// weight, every other state with its final weight, then one line per arc.
func WriteText[S semiring.Semiring](w io.Writer, f *Fst[S]) error {
	if !f.HasStart() {
		return ErrNoStart
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\t%s\n", f.start, formatWeight(f.Final(f.start)))
	for _, s := range f.states {
		if s.ID == f.start {
			continue
		}
		fmt.Fprintf(bw, "%d\t%s\n", s.ID, formatWeight(s.Final))
	}
	for _, s := range f.states {
		for _, a := range s.Arcs {
			fmt.Fprintf(bw, "%d\t%d\t%s\t%s\t%s\n", s.ID, a.NextState,
				f.label(f.isyms, a.ILabel), f.label(f.osyms, a.OLabel), formatWeight(a.Weight))
		}
	}
	return bw.Flush()
}

// ReadText parses an automaton body. Arc symbols are resolved through isyms
// and osyms; a nil table is built on the fly, seeded with
// DefaultReservedSymbols. The source state of the first line becomes the
// start state.
func ReadText[S semiring.Semiring](r io.Reader, isyms, osyms *SymbolTable) (*Fst[S], error) {
	dynamicIn, dynamicOut := isyms == nil, osyms == nil
	if dynamicIn {
		isyms = NewSymbolTable(DefaultReservedSymbols...)
	}
	if dynamicOut {
		osyms = NewSymbolTable(DefaultReservedSymbols...)
	}
	f := New[S](isyms, osyms)

	ensure := func(id int) {
		for f.NumStates() <= id {
			f.AddState()
		}
	}
	resolve := func(t *SymbolTable, dynamic bool, sym string) (int, error) {
		if id, ok := t.Find(sym); ok {
			return id, nil
		}
		if dynamic {
			return t.Add(sym), nil
		}
		return 0, fmt.Errorf("unknown symbol %q: %w", sym, ErrFormat)
	}
	parseWeight := func(s string) (semiring.Weight, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, err
		}
		w := semiring.Weight(v)
		if !f.sr.IsMember(w) {
			return 0, ErrUndefinedWeight
		}
		return w, nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	first := true
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		src, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || src < 0 {
			return nil, fmt.Errorf("line %d: bad state %q: %w", lineNum, fields[0], ErrFormat)
		}
		ensure(src)
		if first {
			f.start = src
			first = false
		}

		switch len(fields) {
		case 1, 2:
			w := f.sr.One()
			if len(fields) == 2 {
				if w, err = parseWeight(fields[1]); err != nil {
					return nil, fmt.Errorf("line %d: final weight: %w", lineNum, err)
				}
			}
			f.states[src].Final = w
		case 4, 5:
			dst, err := strconv.Atoi(strings.TrimSpace(fields[1]))
			if err != nil || dst < 0 {
				return nil, fmt.Errorf("line %d: bad state %q: %w", lineNum, fields[1], ErrFormat)
			}
			ensure(dst)
			il, err := resolve(isyms, dynamicIn, fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			ol, err := resolve(osyms, dynamicOut, fields[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			w := f.sr.One()
			if len(fields) == 5 {
				if w, err = parseWeight(fields[4]); err != nil {
					return nil, fmt.Errorf("line %d: arc weight: %w", lineNum, err)
				}
			}
			f.states[src].Arcs = append(f.states[src].Arcs, Arc{ILabel: il, OLabel: ol, Weight: w, NextState: dst})
		default:
			return nil, fmt.Errorf("line %d: %d fields: %w", lineNum, len(fields), ErrFormat)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if first {
		return nil, fmt.Errorf("empty automaton: %w", ErrFormat)
	}
	return f, nil
}

// ExportText writes basename.input.syms, basename.output.syms and
// basename.fst.txt.
func ExportText[S semiring.Semiring](f *Fst[S], basename string) error {
	if f.isyms != nil {
		if err := writeFile(basename+InputSymbolsSuffix, func(w io.Writer) error { return WriteSymbols(w, f.isyms) }); err != nil {
			return err
		}
	}
	if f.osyms != nil {
		if err := writeFile(basename+OutputSymbolsSuffix, func(w io.Writer) error { return WriteSymbols(w, f.osyms) }); err != nil {
			return err
		}
	}
	return writeFile(basename+FstTextSuffix, func(w io.Writer) error { return WriteText(w, f) })
}

// ImportText reads the three files written by ExportText. Missing symbol
// files are tolerated; the tables are then rebuilt from the arc symbols.
func ImportText[S semiring.Semiring](basename string) (*Fst[S], error) {
	isyms, err := readSymbolsFile(basename + InputSymbolsSuffix)
	if err != nil {
		return nil, err
	}
	osyms, err := readSymbolsFile(basename + OutputSymbolsSuffix)
	if err != nil {
		return nil, err
	}
	if isyms != nil && isyms.Equal(osyms) {
		osyms = isyms
	}

	file, err := os.Open(basename + FstTextSuffix)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	f, err := ReadText[S](file, isyms, osyms)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", basename+FstTextSuffix, err)
	}
	return f, nil
}

func readSymbolsFile(path string) (*SymbolTable, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	t, err := ReadSymbols(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
