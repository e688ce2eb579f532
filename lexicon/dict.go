// Package lexicon reads pronunciation word lists and scores predicted
// pronunciations against them.
package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one pronunciation of a word. Phonemes is empty for words listed
// without a reference pronunciation.
type Entry struct {
	Word     string
	Phonemes []string
}

// Dictionary holds word-to-pronunciation mappings in file order.
type Dictionary struct {
	Entries map[string][]Entry
	order   []string
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		Entries: make(map[string][]Entry),
	}
}

// Add adds a pronunciation of word.
func (d *Dictionary) Add(word string, phonemes []string) {
	if _, ok := d.Entries[word]; !ok {
		d.order = append(d.order, word)
	}
	d.Entries[word] = append(d.Entries[word], Entry{Word: word, Phonemes: phonemes})
}

// SplitLine splits a word-list line into the word and its phonemes. The
// word ends at the first tab or double space; a line holding only a word
// yields no phonemes.
func SplitLine(line string) (word string, phonemes []string) {
	line = strings.TrimSpace(line)
	cut := len(line)
	if i := strings.Index(line, "\t"); i >= 0 && i < cut {
		cut = i
	}
	if i := strings.Index(line, "  "); i >= 0 && i < cut {
		cut = i
	}
	return line[:cut], strings.Fields(line[cut:])
}

// Load reads a word list: one "WORD  PH1 PH2 ..." entry per line, separated
// by two spaces or a tab. Blank lines and lines starting with "#" are
// skipped. A word may appear several times with alternative pronunciations.
func Load(r io.Reader) (*Dictionary, error) {
	d := NewDictionary()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, phonemes := SplitLine(line)
		if strings.ContainsAny(word, " ") {
			return nil, fmt.Errorf("line %d: word %q is not separated from its pronunciation by a tab or two spaces", lineNum, word)
		}
		d.Add(word, phonemes)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return d, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Lookup returns all pronunciation variants for a word.
func (d *Dictionary) Lookup(word string) []Entry {
	return d.Entries[word]
}

// PhonemeSequence returns the first pronunciation of a word.
func (d *Dictionary) PhonemeSequence(word string) ([]string, bool) {
	entries := d.Entries[word]
	if len(entries) == 0 {
		return nil, false
	}
	return entries[0].Phonemes, true
}

// Words returns the distinct words in the order they were added.
func (d *Dictionary) Words() []string {
	return append([]string(nil), d.order...)
}

// Write writes every pronunciation of words as "WORD  PH1 PH2 ..." lines.
// Words without pronunciations are written alone.
func (d *Dictionary) Write(w io.Writer, words []string) error {
	bw := bufio.NewWriter(w)
	for _, word := range words {
		for _, e := range d.Entries[word] {
			if len(e.Phonemes) == 0 {
				fmt.Fprintln(bw, word)
				continue
			}
			fmt.Fprintf(bw, "%s  %s\n", word, strings.Join(e.Phonemes, " "))
		}
	}
	return bw.Flush()
}
