package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/langid"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/tokenize"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize IN OUT",
	Short: "Tokenize a single-language corpus",
	Long:  "Writes the space separated, case-folded word tokens of every line.",
	Args:  cobra.ExactArgs(2),
	RunE:  runTokenize,
}

var (
	tokenizeLanguage  string
	tokenizeLemmatize bool
	tokenizeSentences bool
)

func init() {
	tokenizeCmd.Flags().StringVarP(&tokenizeLanguage, "language", "l", "", "Language of the corpus (required)")
	tokenizeCmd.Flags().BoolVar(&tokenizeLemmatize, "lemmatize", false, "Write dictionary forms instead of surfaces (Japanese only)")
	tokenizeCmd.Flags().BoolVar(&tokenizeSentences, "sentences", false, "Split lines into sentences, one per output line")
	if err := tokenizeCmd.MarkFlagRequired("language"); err != nil {
		panic(fmt.Sprintf("failed to mark language flag as required: %v", err))
	}
	rootCmd.AddCommand(tokenizeCmd)
}

// tokenizerFor resolves the tokenizer for a language flag.
func tokenizerFor(language string, lemmatize bool) (tokenize.Tokenizer, string, error) {
	lang, err := langid.Standardize(language)
	if err != nil {
		return nil, "", err
	}
	if lemmatize {
		if langid.Base(lang) != "ja" {
			return nil, "", fmt.Errorf("lemmatization is only available for Japanese, not %q", lang)
		}
		a, err := tokenize.SharedAnalyzer()
		if err != nil {
			return nil, "", err
		}
		return tokenize.Lemmatizer{Analyzer: a}, lang, nil
	}
	tok, err := tokenize.ForLanguage(lang)
	return tok, lang, err
}

func runTokenize(_ *cobra.Command, args []string) error {
	tok, lang, err := tokenizerFor(tokenizeLanguage, tokenizeLemmatize)
	if err != nil {
		return err
	}
	read, written, err := mapLines(args[0], args[1], func(line string) (string, error) {
		if !tokenizeSentences {
			return tokenize.Line(tok, line), nil
		}
		var out []string
		for _, s := range tokenize.SplitSentences(line) {
			if t := tokenize.Line(tok, s); t != "" {
				out = append(out, t)
			}
		}
		return strings.Join(out, "\n"), nil
	})
	if err != nil {
		return err
	}
	logger := cmdLogger("tokenize")
	logger.Info().Str("language", lang).Int("read", read).Int("written", written).Msg("tokenized")
	return nil
}
