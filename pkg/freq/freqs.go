package freq

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// FreqEntry is one row of a frequency file.
type FreqEntry struct {
	Token string
	Freq  float64
}

// Freqs maps tokens to relative frequencies.
type Freqs map[string]float64

// ToFreqs normalizes counts so they sum to 1.
func ToFreqs(c Counts) Freqs {
	total := float64(c.Total())
	out := make(Freqs, len(c))
	if total == 0 {
		return out
	}
	for t, n := range c {
		out[t] = float64(n) / total
	}
	return out
}

// Normalized returns a copy of f scaled to sum to 1. Count files read with
// ReadFreqs become frequencies this way.
func (f Freqs) Normalized() Freqs {
	var total float64
	for _, v := range f {
		total += v
	}
	out := make(Freqs, len(f))
	if total == 0 {
		return out
	}
	for t, v := range f {
		out[t] = v / total
	}
	return out
}

// Sorted returns the entries by frequency descending, then token ascending.
func (f Freqs) Sorted() []FreqEntry {
	entries := make([]FreqEntry, 0, len(f))
	for t, v := range f {
		entries = append(entries, FreqEntry{Token: t, Freq: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Freq != entries[j].Freq {
			return entries[i].Freq > entries[j].Freq
		}
		return entries[i].Token < entries[j].Token
	})
	return entries
}

// MergeFreqs averages the lists. A token missing from a list counts as 0
// there, so tokens seen in a single source are discounted.
func MergeFreqs(lists ...Freqs) Freqs {
	out := make(Freqs)
	if len(lists) == 0 {
		return out
	}
	for _, l := range lists {
		for t, v := range l {
			out[t] += v
		}
	}
	n := float64(len(lists))
	for t := range out {
		out[t] /= n
	}
	return out
}

// ReadFreqs parses a "token\tfreq" file.
func ReadFreqs(r io.Reader) (Freqs, error) {
	freqs := make(Freqs)
	err := scanPairs(r, func(token, value string, lineNo int) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w %d: bad frequency %q", ErrMalformedLine, lineNo, value)
		}
		freqs[token] += v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return freqs, nil
}

// WriteFreqs writes entries as "token\tfreq" with six significant digits.
func WriteFreqs(w io.Writer, entries []FreqEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s\t%.6g\n", e.Token, e.Freq); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FreqToCB converts a frequency to centibels, 100*log10(f) rounded. Zero
// maps to math.MinInt32.
func FreqToCB(f float64) int {
	if f <= 0 {
		return math.MinInt32
	}
	return int(math.Round(100 * math.Log10(f)))
}

// CBToFreq is the inverse of FreqToCB.
func CBToFreq(cb int) float64 {
	return math.Pow(10, float64(cb)/100)
}
