// Package corpusio opens and creates corpus files, picking the codec from
// the file extension (.gz, .zst or plain). "-" stands for stdin/stdout.
package corpusio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MaxLineSize bounds a single line read by Lines.
const MaxLineSize = 16 * 1024 * 1024

// Stdio is the path that means stdin or stdout.
const Stdio = "-"

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns a reader for path, decompressing by extension.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdio {
		return NewReader(os.Stdin, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &readCloser{Reader: r, closers: []func() error{r.Close, f.Close}}, nil
}

// NewReader wraps src in the decoder that name's extension calls for.
// Closing the result does not close src.
func NewReader(src io.Reader, name string) (io.ReadCloser, error) {
	switch Codec(name) {
	case ".gz":
		gz, err := gzip.NewReader(bufio.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("open gzip stream %s: %w", name, err)
		}
		return gz, nil
	case ".zst":
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream %s: %w", name, err)
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(src), nil
	}
}

// Codec returns ".gz", ".zst" or "" for name.
func Codec(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".gz", ".tgz":
		return ".gz"
	case ".zst", ".zstd":
		return ".zst"
	}
	return ""
}

// Writer is an output stream. Files are written to a pending temp file
// and only replace the destination when Close succeeds.
type Writer struct {
	io.Writer
	buf     *bufio.Writer
	enc     io.WriteCloser
	pending *renameio.PendingFile
	done    bool
}

// Create opens path for writing, compressing by extension.
func Create(path string) (*Writer, error) {
	w := &Writer{}
	var sink io.Writer
	if path == Stdio {
		sink = os.Stdout
	} else {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create output directory: %w", err)
			}
		}
		pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
		if err != nil {
			return nil, fmt.Errorf("create pending file %s: %w", path, err)
		}
		w.pending = pf
		sink = pf
	}

	w.buf = bufio.NewWriterSize(sink, 256*1024)
	switch Codec(path) {
	case ".gz":
		w.enc = gzip.NewWriter(w.buf)
	case ".zst":
		enc, err := zstd.NewWriter(w.buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			w.Abort()
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w.enc = enc
	}
	if w.enc != nil {
		w.Writer = w.enc
	} else {
		w.Writer = w.buf
	}
	return w, nil
}

// Close flushes all layers and atomically commits the file.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			w.cleanup()
			return fmt.Errorf("finish compressed stream: %w", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		w.cleanup()
		return err
	}
	if w.pending != nil {
		if err := w.pending.CloseAtomicallyReplace(); err != nil {
			w.cleanup()
			return fmt.Errorf("commit output: %w", err)
		}
	}
	return nil
}

// Abort discards a file output. It is a no-op after Close.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.cleanup()
}

func (w *Writer) cleanup() {
	if w.pending != nil {
		_ = w.pending.Cleanup()
	}
}

// Lines calls fn for every line of r, without the trailing newline.
func Lines(r io.Reader, fn func(line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MaxLineSize)
	for sc.Scan() {
		if err := fn(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}
