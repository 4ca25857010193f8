package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/langid"
)

// undetermined is the BCP 47 code written for lines with no reliable guess.
const undetermined = "und"

var detectLanguageCmd = &cobra.Command{
	Use:   "detect-language IN OUT",
	Short: "Prefix every line with its detected language",
	Long:  "Writes 'lang<TAB>line' for every non-blank line. Lines that cannot be identified get 'und'.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDetectLanguage,
}

var detectLanguages string

func init() {
	detectLanguageCmd.Flags().StringVar(&detectLanguages, "languages", "", "Comma separated languages to choose from (default: all)")
	rootCmd.AddCommand(detectLanguageCmd)
}

func runDetectLanguage(_ *cobra.Command, args []string) error {
	detector, err := langid.NewDetector(splitList(detectLanguages)...)
	if err != nil {
		return err
	}
	stats := make(map[string]int)
	read, _, err := mapLines(args[0], args[1], func(line string) (string, error) {
		// Blank lines are labelled too, so output lines match input lines.
		lang := undetermined
		if strings.TrimSpace(line) != "" {
			if res, ok := detector.Detect(line); ok {
				lang = res.Language
			}
		}
		stats[lang]++
		return lang + "\t" + line, nil
	})
	if err != nil {
		return err
	}
	log := cmdLogger("detect-language")
	ev := log.Info().Int("lines", read)
	for lang, n := range stats {
		ev = ev.Int(lang, n)
	}
	ev.Msg("detected languages")
	return nil
}
