package fst

import (
	"bufio"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ieee0824/g2p-go/semiring"
)

// binaryMagic prefixes every binary model, ahead of the deflate stream.
const binaryMagic = "G2PF"

const binaryVersion = 1

// maxCount bounds every length prefix so that corrupt input cannot trigger
// huge allocations.
const maxCount = 1 << 28

type binWriter struct {
	w   io.Writer
	buf [8]byte
	err error
}

func (b *binWriter) int32(v int) {
	if b.err != nil {
		return
	}
	binary.BigEndian.PutUint32(b.buf[:4], uint32(int32(v)))
	_, b.err = b.w.Write(b.buf[:4])
}

func (b *binWriter) float64(v semiring.Weight) {
	if b.err != nil {
		return
	}
	binary.BigEndian.PutUint64(b.buf[:8], math.Float64bits(float64(v)))
	_, b.err = b.w.Write(b.buf[:8])
}

func (b *binWriter) string(s string) {
	b.int32(len(s))
	if b.err != nil {
		return
	}
	_, b.err = io.WriteString(b.w, s)
}

func (b *binWriter) symbols(t *SymbolTable) {
	if t == nil {
		b.int32(-1)
		return
	}
	ids := t.IDs()
	b.int32(len(ids))
	for _, id := range ids {
		sym, _ := t.Symbol(id)
		b.int32(id)
		b.string(sym)
	}
}

type binReader struct {
	r   io.Reader
	buf [8]byte
	err error
}

func (b *binReader) int32() int {
	if b.err != nil {
		return 0
	}
	if _, b.err = io.ReadFull(b.r, b.buf[:4]); b.err != nil {
		return 0
	}
	return int(int32(binary.BigEndian.Uint32(b.buf[:4])))
}

func (b *binReader) count() int {
	n := b.int32()
	if b.err == nil && (n < 0 || n > maxCount) {
		b.err = fmt.Errorf("count %d out of range: %w", n, ErrFormat)
	}
	return n
}

func (b *binReader) float64() semiring.Weight {
	if b.err != nil {
		return 0
	}
	if _, b.err = io.ReadFull(b.r, b.buf[:8]); b.err != nil {
		return 0
	}
	return semiring.Weight(math.Float64frombits(binary.BigEndian.Uint64(b.buf[:8])))
}

func (b *binReader) string() string {
	n := b.count()
	if b.err != nil {
		return ""
	}
	p := make([]byte, n)
	if _, b.err = io.ReadFull(b.r, p); b.err != nil {
		return ""
	}
	return string(p)
}

func (b *binReader) symbols() *SymbolTable {
	n := b.int32()
	if b.err != nil || n == -1 {
		return nil
	}
	if n < 0 || n > maxCount {
		b.err = fmt.Errorf("symbol count %d out of range: %w", n, ErrFormat)
		return nil
	}
	t := NewSymbolTable()
	for i := 0; i < n && b.err == nil; i++ {
		id := b.int32()
		sym := b.string()
		if b.err == nil {
			if err := t.Put(id, sym); err != nil {
				b.err = fmt.Errorf("%v: %w", err, ErrFormat)
			}
		}
	}
	return t
}

// WriteBinary serializes f as a deflate-compressed big-endian stream: start
// id, input symbols, output symbols, semiring name, then per state its id,
// final weight, arc count and (ilabel, olabel, weight, next state) arcs.
func WriteBinary[S semiring.Semiring](w io.Writer, f *Fst[S]) error {
	if _, err := io.WriteString(w, binaryMagic); err != nil {
		return err
	}
	hdr := &binWriter{w: w}
	hdr.int32(binaryVersion)
	if hdr.err != nil {
		return hdr.err
	}

	zw, err := flate.NewWriter(w, flate.DefaultCompression)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(zw)
	b := &binWriter{w: bw}
	b.int32(f.start)
	b.symbols(f.isyms)
	b.symbols(f.osyms)
	b.string(f.sr.Name())
	b.int32(len(f.states))
	for _, s := range f.states {
		b.int32(s.ID)
		b.float64(s.Final)
		b.int32(len(s.Arcs))
		for _, a := range s.Arcs {
			b.int32(a.ILabel)
			b.int32(a.OLabel)
			b.float64(a.Weight)
			b.int32(a.NextState)
		}
	}
	if b.err != nil {
		return b.err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

// ReadBinary deserializes a model written by WriteBinary. The stored
// semiring must be S.
func ReadBinary[S semiring.Semiring](r io.Reader) (*Fst[S], error) {
	magic := make([]byte, len(binaryMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != binaryMagic {
		return nil, fmt.Errorf("bad magic %q: %w", magic, ErrFormat)
	}
	hdr := &binReader{r: r}
	if v := hdr.int32(); hdr.err != nil || v != binaryVersion {
		if hdr.err != nil {
			return nil, hdr.err
		}
		return nil, fmt.Errorf("unsupported version %d: %w", v, ErrFormat)
	}

	zr := flate.NewReader(r)
	defer zr.Close()
	b := &binReader{r: bufio.NewReader(zr)}

	start := b.int32()
	isyms := b.symbols()
	osyms := b.symbols()
	name := b.string()
	if b.err != nil {
		return nil, b.err
	}
	stored, err := semiring.ByName(name)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrFormat)
	}
	var sr S
	if stored.Name() != sr.Name() {
		return nil, fmt.Errorf("model is %q, want %q: %w", name, sr.Name(), ErrSemiringMismatch)
	}
	if isyms != nil && isyms.Equal(osyms) {
		osyms = isyms
	}

	n := b.count()
	f := New[S](isyms, osyms)
	index := make(map[int]int, n)
	for i := 0; i < n && b.err == nil; i++ {
		id := b.int32()
		final := b.float64()
		numArcs := b.count()
		if b.err != nil {
			break
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("duplicate state id %d: %w", id, ErrFormat)
		}
		index[id] = f.AddState()
		s := f.states[i]
		s.Final = final
		s.Arcs = make([]Arc, 0, numArcs)
		for j := 0; j < numArcs && b.err == nil; j++ {
			s.Arcs = append(s.Arcs, Arc{
				ILabel:    b.int32(),
				OLabel:    b.int32(),
				Weight:    b.float64(),
				NextState: b.int32(),
			})
		}
	}
	if b.err != nil {
		return nil, b.err
	}

	for _, s := range f.states {
		if !sr.IsMember(s.Final) {
			return nil, fmt.Errorf("state %d final weight: %w", s.ID, ErrUndefinedWeight)
		}
		for j := range s.Arcs {
			if !sr.IsMember(s.Arcs[j].Weight) {
				return nil, fmt.Errorf("state %d arc %d weight: %w", s.ID, j, ErrUndefinedWeight)
			}
			next, ok := index[s.Arcs[j].NextState]
			if !ok {
				return nil, fmt.Errorf("arc to unknown state %d: %w", s.Arcs[j].NextState, ErrFormat)
			}
			s.Arcs[j].NextState = next
		}
	}
	if start != NoState {
		idx, ok := index[start]
		if !ok {
			return nil, fmt.Errorf("unknown start state %d: %w", start, ErrFormat)
		}
		f.start = idx
	}
	return f, nil
}

// SaveBinary writes f to path.
func SaveBinary[S semiring.Semiring](f *Fst[S], path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteBinary(w, f) })
}

// LoadBinary reads a binary model from path.
func LoadBinary[S semiring.Semiring](path string) (*Fst[S], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	f, err := ReadBinary[S](bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return f, nil
}
