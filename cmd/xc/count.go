package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/freq"
)

var countCmd = &cobra.Command{
	Use:   "count IN OUT",
	Short: "Count the tokens of a tokenized corpus",
	Long:  "Writes 'token<TAB>count' lines, most frequent first and ties broken by token.",
	Args:  cobra.ExactArgs(2),
	RunE:  runCount,
}

var mergeCountsCmd = &cobra.Command{
	Use:   "merge-counts OUT IN...",
	Short: "Sum several count files",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runMergeCounts,
}

func init() {
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(mergeCountsCmd)
}

func runCount(_ *cobra.Command, args []string) error {
	var counts freq.Counts
	err := withInput(args[0], func(r io.Reader) error {
		var err error
		counts, err = freq.CountTokens(r)
		return err
	})
	if err != nil {
		return err
	}
	if err := writeCounts(args[1], counts); err != nil {
		return err
	}
	logger := cmdLogger("count")
	logger.Info().Int("types", len(counts)).Int64("tokens", counts.Total()).Msg("counted tokens")
	return nil
}

func runMergeCounts(_ *cobra.Command, args []string) error {
	out, inputs := args[0], args[1:]
	merged := make(freq.Counts)
	for _, path := range inputs {
		counts, err := readCounts(path)
		if err != nil {
			return err
		}
		merged.Merge(counts)
	}
	if err := writeCounts(out, merged); err != nil {
		return err
	}
	logger := cmdLogger("merge-counts")
	logger.Info().Int("inputs", len(inputs)).Int("types", len(merged)).Msg("merged counts")
	return nil
}

func readCounts(path string) (freq.Counts, error) {
	var counts freq.Counts
	err := withInput(path, func(r io.Reader) error {
		var err error
		counts, err = freq.ReadCounts(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return counts, nil
}

func writeCounts(path string, counts freq.Counts) error {
	return withOutput(path, func(w io.Writer) error {
		return freq.WriteCounts(w, counts.Sorted())
	})
}
