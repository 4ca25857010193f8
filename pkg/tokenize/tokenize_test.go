package tokenize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnicodeTokenizer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"punctuation dropped", "Don't STOP believing, 3.14!", []string{"don't", "stop", "believing", "3.14"}},
		{"nfkc ligature", "ﬁne ＡＢＣ", []string{"fine", "abc"}},
		{"han characters", "我爱你", []string{"我", "爱", "你"}},
		{"only symbols", "... --- !!!", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnicodeTokenizer{}.Tokenize(tt.in))
		})
	}
}

func TestTokensNeverBlank(t *testing.T) {
	in := "  tabs\tand\nnewlines — dashes “quotes” "
	for _, tok := range (UnicodeTokenizer{}).Tokenize(in) {
		assert.NotEmpty(t, strings.TrimSpace(tok))
	}
}

func TestForLanguage(t *testing.T) {
	tok, err := ForLanguage("en-US")
	require.NoError(t, err)
	assert.IsType(t, UnicodeTokenizer{}, tok)

	tok, err = ForLanguage("ja")
	require.NoError(t, err)
	words := tok.Tokenize("吾輩は猫である。")
	assert.Contains(t, words, "吾輩")
	assert.Contains(t, words, "猫")
	assert.NotContains(t, words, "。")
}

func TestLine(t *testing.T) {
	assert.Equal(t, "hello world", Line(UnicodeTokenizer{}, "Hello, World!"))
}

func TestLemmatizer(t *testing.T) {
	a, err := SharedAnalyzer()
	require.NoError(t, err)

	words := Lemmatizer{a}.Tokenize("学校に行った。")
	assert.Contains(t, words, "行く")
	assert.NotContains(t, words, "行っ")
}

func TestAnalyzePrimaryPOS(t *testing.T) {
	a, err := SharedAnalyzer()
	require.NoError(t, err)

	tokens := a.Analyze("猫が好きです")
	require.NotEmpty(t, tokens)
	for _, tok := range tokens {
		require.NotEmpty(t, tok.PartsOfSpeech)
		assert.Equal(t, tok.PartsOfSpeech[0], tok.PrimaryPOS)
	}
}

func TestAnalyzeDocument(t *testing.T) {
	a, err := SharedAnalyzer()
	require.NoError(t, err)

	sentences := a.AnalyzeDocument("今日は晴れです。明日は雨でしょう！")
	require.Len(t, sentences, 2)
	for _, s := range sentences {
		assert.NotEmpty(t, s.Tokens, "sentence %q has no tokens", s.Text)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Hello world. It is 3.14 today! 日本語です。次の文")
	assert.Equal(t, []string{"Hello world.", "It is 3.14 today!", "日本語です。", "次の文"}, got)

	assert.Empty(t, SplitSentences("   \n\n  "))
}
