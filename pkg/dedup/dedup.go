// Package dedup drops repeated lines from a corpus stream.
package dedup

import (
	"bufio"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/corpusio"
)

// Deduper remembers the 64-bit hash of every line it has seen. Collisions
// are possible but negligible below billions of lines. Not safe for
// concurrent use.
type Deduper struct {
	seen map[uint64]struct{}
}

// New returns an empty Deduper.
func New() *Deduper {
	return &Deduper{seen: make(map[uint64]struct{})}
}

// Seen reports whether line (ignoring surrounding whitespace) was seen
// before, and records it.
func (d *Deduper) Seen(line string) bool {
	h := xxhash.Sum64String(strings.TrimSpace(line))
	if _, ok := d.seen[h]; ok {
		return true
	}
	d.seen[h] = struct{}{}
	return false
}

// Len is the number of distinct lines seen.
func (d *Deduper) Len() int {
	return len(d.seen)
}

// Filter copies the first occurrence of each line from r to w. Blank lines
// are dropped.
func (d *Deduper) Filter(r io.Reader, w io.Writer) (kept, dropped int, err error) {
	bw := bufio.NewWriter(w)
	err = corpusio.Lines(r, func(line string) error {
		if strings.TrimSpace(line) == "" || d.Seen(line) {
			dropped++
			return nil
		}
		kept++
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		return bw.WriteByte('\n')
	})
	if err != nil {
		return kept, dropped, err
	}
	return kept, dropped, bw.Flush()
}
