package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/corpusio"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/langid"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/tokenize"
)

var tokenizeByLanguageCmd = &cobra.Command{
	Use:   "tokenize-by-language IN OUTDIR",
	Short: "Split a multilingual corpus into tokenized per-language files",
	Long: "Detects the language of every line. Lines in one of --languages are tokenized and " +
		"written to OUTDIR/<lang>.txt (or .txt.zst); all other lines are discarded.",
	Args: cobra.ExactArgs(2),
	RunE: runTokenizeByLanguage,
}

var (
	byLanguageLanguages string
	byLanguageZst       bool
)

func init() {
	tokenizeByLanguageCmd.Flags().StringVar(&byLanguageLanguages, "languages", "", "Comma separated languages to keep (required)")
	tokenizeByLanguageCmd.Flags().BoolVar(&byLanguageZst, "zst", false, "Compress the outputs with zstd")
	if err := tokenizeByLanguageCmd.MarkFlagRequired("languages"); err != nil {
		panic(fmt.Sprintf("failed to mark languages flag as required: %v", err))
	}
	rootCmd.AddCommand(tokenizeByLanguageCmd)
}

type languageOutput struct {
	tok   tokenize.Tokenizer
	w     *corpusio.Writer
	lines int
}

func runTokenizeByLanguage(_ *cobra.Command, args []string) error {
	log := cmdLogger("tokenize-by-language")
	inPath, outDir := args[0], args[1]

	wanted := make(map[string]bool)
	for _, code := range splitList(byLanguageLanguages) {
		lang, err := langid.Standardize(code)
		if err != nil {
			return err
		}
		wanted[langid.Base(lang)] = true
	}
	if len(wanted) == 0 {
		return fmt.Errorf("--languages must name at least one language")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	// Detection runs over every language so lines in other languages are
	// recognized and dropped instead of being forced into a wanted one.
	detector, err := langid.NewDetector()
	if err != nil {
		return err
	}

	ext := ".txt"
	if byLanguageZst {
		ext = ".txt.zst"
	}
	outputs := make(map[string]*languageOutput)
	abortAll := func() {
		for _, o := range outputs {
			o.w.Abort()
		}
	}

	discarded := 0
	err = withInput(inPath, func(r io.Reader) error {
		return corpusio.Lines(r, func(line string) error {
			res, ok := detector.Detect(line)
			if !ok || !wanted[res.Language] {
				discarded++
				return nil
			}
			out, ok := outputs[res.Language]
			if !ok {
				tok, err := tokenize.ForLanguage(res.Language)
				if err != nil {
					return err
				}
				w, err := corpusio.Create(filepath.Join(outDir, res.Language+ext))
				if err != nil {
					return err
				}
				out = &languageOutput{tok: tok, w: w}
				outputs[res.Language] = out
			}
			text := tokenize.Line(out.tok, line)
			if strings.TrimSpace(text) == "" {
				discarded++
				return nil
			}
			out.lines++
			_, err := io.WriteString(out.w, text+"\n")
			return err
		})
	})
	if err != nil {
		abortAll()
		return err
	}

	for lang, o := range outputs {
		if err := o.w.Close(); err != nil {
			abortAll()
			return fmt.Errorf("write %s output: %w", lang, err)
		}
		log.Info().Str("language", lang).Int("lines", o.lines).Msg("wrote language file")
	}
	log.Info().Int("discarded", discarded).Msg("tokenized by language")
	return nil
}
