package freq

import (
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultCutoff drops words at or below -600 cB (one in a million).
const DefaultCutoff = 600

// CBHeader is the first element of a cBpack.
type CBHeader struct {
	Format  string `msgpack:"format"`
	Version int    `msgpack:"version"`
}

// CBPack is wordfreq's compact frequency list: Buckets[i] holds the words
// whose frequency rounds to -i centibels, sorted.
type CBPack struct {
	Header  CBHeader
	Buckets [][]string
}

// BuildCBPack buckets entries by centibel. Words with -cB >= cutoff are
// dropped, so the pack has at most cutoff buckets.
func BuildCBPack(entries []FreqEntry, cutoff int) *CBPack {
	pack := &CBPack{Header: CBHeader{Format: "cB", Version: 1}}
	for _, e := range entries {
		if e.Freq <= 0 {
			continue
		}
		cb := FreqToCB(e.Freq)
		if -cb >= cutoff {
			continue
		}
		idx := -cb
		if idx < 0 {
			idx = 0
		}
		for idx >= len(pack.Buckets) {
			pack.Buckets = append(pack.Buckets, []string{})
		}
		pack.Buckets[idx] = append(pack.Buckets[idx], e.Token)
	}
	for _, b := range pack.Buckets {
		sort.Strings(b)
	}
	return pack
}

// Freqs expands a pack back to frequencies. Each word gets the frequency of
// its bucket.
func (p *CBPack) Freqs() Freqs {
	out := make(Freqs)
	for i, bucket := range p.Buckets {
		f := CBToFreq(-i)
		for _, w := range bucket {
			out[w] = f
		}
	}
	return out
}

// Len is the number of words in the pack.
func (p *CBPack) Len() int {
	n := 0
	for _, b := range p.Buckets {
		n += len(b)
	}
	return n
}

// EncodeMsgpack writes the pack as [header, bucket0, bucket1, ...].
func (p *CBPack) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(1 + len(p.Buckets)); err != nil {
		return err
	}
	if err := enc.Encode(p.Header); err != nil {
		return err
	}
	for _, bucket := range p.Buckets {
		if err := enc.EncodeArrayLen(len(bucket)); err != nil {
			return err
		}
		for _, w := range bucket {
			if err := enc.EncodeString(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeMsgpack reads the layout written by EncodeMsgpack.
func (p *CBPack) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("cBpack: missing header")
	}
	if err := dec.Decode(&p.Header); err != nil {
		return fmt.Errorf("cBpack header: %w", err)
	}
	if p.Header.Format != "cB" {
		return fmt.Errorf("cBpack: unsupported format %q", p.Header.Format)
	}
	p.Buckets = make([][]string, 0, n-1)
	for i := 1; i < n; i++ {
		var bucket []string
		if err := dec.Decode(&bucket); err != nil {
			return fmt.Errorf("cBpack bucket %d: %w", i-1, err)
		}
		if bucket == nil {
			bucket = []string{}
		}
		p.Buckets = append(p.Buckets, bucket)
	}
	return nil
}

// WriteCBPack writes the pack as gzipped msgpack (.msgpack.gz).
func WriteCBPack(w io.Writer, p *CBPack) error {
	gz := gzip.NewWriter(w)
	if err := msgpack.NewEncoder(gz).Encode(p); err != nil {
		_ = gz.Close()
		return fmt.Errorf("encode cBpack: %w", err)
	}
	return gz.Close()
}

// ReadCBPack reads a gzipped msgpack cBpack.
func ReadCBPack(r io.Reader) (*CBPack, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open cBpack: %w", err)
	}
	defer gz.Close()
	var p CBPack
	if err := msgpack.NewDecoder(gz).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode cBpack: %w", err)
	}
	return &p, nil
}
