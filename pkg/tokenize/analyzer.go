package tokenize

import (
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token represents a single analyzed unit of Japanese text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // The pronunciation (katakana, e.g. "イッ")
	PartsOfSpeech []string // e.g. ["動詞", "自立", "*", "*"] (Kagome POS labels)
	// PrimaryPOS stores the first (primary) part of speech if available.
	PrimaryPOS string
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer performs morphological analysis of Japanese with the IPA dictionary.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance. Loading the dictionary is
// slow; callers that only need one should use SharedAnalyzer.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// SharedAnalyzer returns a process-wide Analyzer.
var SharedAnalyzer = sync.OnceValues(NewAnalyzer)

// Analyze breaks text into tokens with readings and base forms.
func (a *Analyzer) Analyze(text string) []Token {
	tokens := a.t.Tokenize(text)
	var result []Token

	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: 0-3 POS levels, 4-5 conjugation, 6 base form, 7 reading.
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}

		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}

		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
		})
	}

	return result
}

// AnalyzeDocument splits the text into sentences and analyzes each one.
func (a *Analyzer) AnalyzeDocument(text string) []Sentence {
	var result []Sentence
	for _, s := range SplitSentences(text) {
		result = append(result, Sentence{
			Text:   s,
			Tokens: a.Analyze(s),
		})
	}
	return result
}

// Tokenize returns the surface forms of the word tokens in text, the way
// wordfreq counts Japanese.
func (a *Analyzer) Tokenize(text string) []string {
	var out []string
	for _, t := range a.Analyze(text) {
		if isSymbolPOS(t.PrimaryPOS) {
			continue
		}
		if w := foldToken(t.Surface); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Lemmatizer adapts an Analyzer to count dictionary forms instead of surfaces.
type Lemmatizer struct {
	*Analyzer
}

// Tokenize returns base forms, so 行っ and 行く count as one word.
func (l Lemmatizer) Tokenize(text string) []string {
	var out []string
	for _, t := range l.Analyze(text) {
		if isSymbolPOS(t.PrimaryPOS) {
			continue
		}
		if w := foldToken(t.BaseForm); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func isSymbolPOS(pos string) bool {
	return pos == "記号" || pos == "補助記号"
}
