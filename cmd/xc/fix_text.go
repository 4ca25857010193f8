package main

import (
	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/textfix"
)

var fixTextCmd = &cobra.Command{
	Use:   "fix-text IN OUT",
	Short: "Repair mojibake, HTML entities and control characters line by line",
	Args:  cobra.ExactArgs(2),
	RunE:  runFixText,
}

var fixTextStripMarkup bool

func init() {
	fixTextCmd.Flags().BoolVar(&fixTextStripMarkup, "strip-markup", false, "Also remove wiki and HTML markup")
	rootCmd.AddCommand(fixTextCmd)
}

func runFixText(_ *cobra.Command, args []string) error {
	log := cmdLogger("fix-text")
	read, written, err := mapLines(args[0], args[1], func(line string) (string, error) {
		line = textfix.FixText(line)
		if fixTextStripMarkup {
			stripped, err := textfix.StripMarkup(line)
			if err != nil {
				return "", err
			}
			line = stripped
		}
		return line, nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("read", read).Int("written", written).Msg("fixed text")
	return nil
}
