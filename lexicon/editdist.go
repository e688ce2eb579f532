package lexicon

// PhonemeEditDistance computes the Levenshtein distance between two phoneme
// sequences.
func PhonemeEditDistance(a, b []string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub++
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

// Score accumulates phoneme and word error counts over an evaluation run.
type Score struct {
	Words        int
	WordErrors   int
	Phonemes     int
	PhonemeEdits int
}

// Add scores one hypothesis against its reference.
func (s *Score) Add(ref, hyp []string) {
	d := PhonemeEditDistance(ref, hyp)
	s.Words++
	s.Phonemes += len(ref)
	s.PhonemeEdits += d
	if d > 0 {
		s.WordErrors++
	}
}

// PER returns the phoneme error rate: edits per reference phoneme.
func (s Score) PER() float64 {
	if s.Phonemes == 0 {
		return 0
	}
	return float64(s.PhonemeEdits) / float64(s.Phonemes)
}

// WER returns the fraction of words with at least one phoneme error.
func (s Score) WER() float64 {
	if s.Words == 0 {
		return 0
	}
	return float64(s.WordErrors) / float64(s.Words)
}
