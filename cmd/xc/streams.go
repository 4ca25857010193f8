package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/corpusio"
)

// withInput opens path (or stdin for "-") and passes it to fn.
func withInput(path string, fn func(r io.Reader) error) error {
	r, err := corpusio.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()
	return fn(r)
}

// withOutput creates path (or stdout for "-"), runs fn and commits the file
// only if fn succeeds.
func withOutput(path string, fn func(w io.Writer) error) error {
	w, err := corpusio.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(w); err != nil {
		w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// mapLines writes fn(line) for every input line. Lines for which fn
// returns "" are dropped.
func mapLines(inPath, outPath string, fn func(line string) (string, error)) (read, written int, err error) {
	err = withInput(inPath, func(r io.Reader) error {
		return withOutput(outPath, func(w io.Writer) error {
			return corpusio.Lines(r, func(line string) error {
				read++
				out, err := fn(line)
				if err != nil {
					return fmt.Errorf("line %d: %w", read, err)
				}
				if out == "" {
					return nil
				}
				written++
				if _, err := io.WriteString(w, out); err != nil {
					return err
				}
				_, err = io.WriteString(w, "\n")
				return err
			})
		})
	})
	return read, written, err
}

// splitList parses a comma separated flag value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
