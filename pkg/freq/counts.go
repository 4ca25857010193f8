// Package freq reads, merges and writes word counts and word frequencies,
// and exports them in wordfreq's cBpack format.
package freq

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned for lines that are not "token\tnumber".
var ErrMalformedLine = errors.New("malformed line")

const maxLineSize = 16 * 1024 * 1024

// Entry is one row of a count file.
type Entry struct {
	Token string
	Count int64
}

// Counts maps tokens to occurrence counts.
type Counts map[string]int64

// Add increments token by n.
func (c Counts) Add(token string, n int64) {
	c[token] += n
}

// AddTokens counts each token once.
func (c Counts) AddTokens(tokens []string) {
	for _, t := range tokens {
		c[t]++
	}
}

// Merge adds every count of o into c.
func (c Counts) Merge(o Counts) {
	for t, n := range o {
		c[t] += n
	}
}

// Total is the sum of all counts.
func (c Counts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// Sorted returns the entries by count descending, then token ascending.
func (c Counts) Sorted() []Entry {
	entries := make([]Entry, 0, len(c))
	for t, n := range c {
		entries = append(entries, Entry{Token: t, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Token < entries[j].Token
	})
	return entries
}

// ReadCounts parses a "token\tcount" file. Repeated tokens are summed.
func ReadCounts(r io.Reader) (Counts, error) {
	counts := make(Counts)
	err := scanPairs(r, func(token, value string, lineNo int) error {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w %d: bad count %q", ErrMalformedLine, lineNo, value)
		}
		counts[token] += n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// WriteCounts writes entries in order as "token\tcount".
func WriteCounts(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", e.Token, e.Count); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// CountTokens counts the space-separated tokens of a tokenized corpus.
func CountTokens(r io.Reader) (Counts, error) {
	counts := make(Counts)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		counts.AddTokens(strings.Fields(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func scanPairs(r io.Reader, fn func(token, value string, lineNo int) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		token, value, ok := strings.Cut(line, "\t")
		if !ok || token == "" {
			return fmt.Errorf("%w %d: %q", ErrMalformedLine, lineNo, line)
		}
		if err := fn(token, strings.TrimSpace(value), lineNo); err != nil {
			return err
		}
	}
	return sc.Err()
}
