// Package tokenize splits text into the word tokens that xc counts.
//
// Japanese goes through kagome's morphological analyzer; every other
// language is segmented on Unicode UAX #29 word boundaries. Tokens are NFKC
// normalized and case-folded so counts from different sources line up.
package tokenize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/langid"
)

// Tokenizer turns a line of text into word tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// UnicodeTokenizer segments on UAX #29 word boundaries. It is safe for
// concurrent use.
type UnicodeTokenizer struct{}

// Tokenize implements Tokenizer.
func (UnicodeTokenizer) Tokenize(text string) []string {
	var out []string
	state := -1
	var word string
	for len(text) > 0 {
		word, text, state = uniseg.FirstWordInString(text, state)
		if w := foldToken(word); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// ForLanguage picks the tokenizer for a BCP 47 language code.
func ForLanguage(lang string) (Tokenizer, error) {
	switch langid.Base(lang) {
	case "ja":
		a, err := SharedAnalyzer()
		if err != nil {
			return nil, fmt.Errorf("load japanese analyzer: %w", err)
		}
		return a, nil
	default:
		return UnicodeTokenizer{}, nil
	}
}

// Line tokenizes text and joins the tokens with single spaces, which is
// the on-disk format of a tokenized corpus.
func Line(t Tokenizer, text string) string {
	return strings.Join(t.Tokenize(text), " ")
}

// foldToken normalizes a segment and returns "" for segments that are not
// words (punctuation, whitespace, symbols).
func foldToken(s string) string {
	if !isWordy(s) {
		return ""
	}
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.TrimSpace(s)
}

func isWordy(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
			return true
		}
	}
	return false
}

// SplitSentences splits text on sentence-final punctuation and newlines.
// ASCII terminators only end a sentence when followed by whitespace, so
// "3.14" and "e.g." mid-sentence survive.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '。', '！', '？', '\n':
			flush()
		case '.', '!', '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return sentences
}
