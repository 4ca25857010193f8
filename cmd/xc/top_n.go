package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/corpusio"
)

var topNCmd = &cobra.Command{
	Use:   "top-n IN OUT",
	Short: "Keep the first N lines of a sorted count or frequency file",
	Args:  cobra.ExactArgs(2),
	RunE:  runTopN,
}

var topN int

// errEnough stops reading once N lines are written.
var errEnough = errors.New("enough lines")

func init() {
	topNCmd.Flags().IntVarP(&topN, "n", "n", 1000, "Number of lines to keep")
	rootCmd.AddCommand(topNCmd)
}

func runTopN(_ *cobra.Command, args []string) error {
	if topN < 0 {
		return errors.New("-n must not be negative")
	}
	return withInput(args[0], func(r io.Reader) error {
		return withOutput(args[1], func(w io.Writer) error {
			if topN == 0 {
				return nil
			}
			written := 0
			err := corpusio.Lines(r, func(line string) error {
				if _, err := io.WriteString(w, line+"\n"); err != nil {
					return err
				}
				written++
				if written >= topN {
					return errEnough
				}
				return nil
			})
			if errors.Is(err, errEnough) {
				return nil
			}
			return err
		})
	})
}
