package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/corpusio"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/freq"
)

var freqsToCBCmd = &cobra.Command{
	Use:   "freqs-to-cB IN OUT",
	Short: "Convert a count or frequency file to centibels",
	Long:  "Normalizes IN to frequencies and writes 'token<TAB>cB', where cB = round(100 * log10(freq)).",
	Args:  cobra.ExactArgs(2),
	RunE:  runFreqsToCB,
}

var mergeFreqsCmd = &cobra.Command{
	Use:   "merge-freqs OUT IN...",
	Short: "Average the normalized frequencies of several sources",
	Long: "Each input (counts or frequencies) is normalized to sum to 1, then the mean is taken. " +
		"A token missing from a source contributes 0 for that source.",
	Args: cobra.MinimumNArgs(2),
	RunE: runMergeFreqs,
}

var exportToWordfreqCmd = &cobra.Command{
	Use:   "export-to-wordfreq IN OUT",
	Short: "Write a wordfreq cBpack (.msgpack.gz)",
	Args:  cobra.ExactArgs(2),
	RunE:  runExportToWordfreq,
}

var (
	mergeFreqsCutoff     int
	exportWordfreqCutoff int
)

func init() {
	mergeFreqsCmd.Flags().IntVar(&mergeFreqsCutoff, "cutoff", 0, "Drop tokens below -N centibels (0 keeps everything)")
	exportToWordfreqCmd.Flags().IntVar(&exportWordfreqCutoff, "cutoff", freq.DefaultCutoff, "Drop tokens below -N centibels")
	rootCmd.AddCommand(freqsToCBCmd)
	rootCmd.AddCommand(mergeFreqsCmd)
	rootCmd.AddCommand(exportToWordfreqCmd)
}

func readFreqs(path string) (freq.Freqs, error) {
	var f freq.Freqs
	err := withInput(path, func(r io.Reader) error {
		var err error
		f, err = freq.ReadFreqs(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Normalized(), nil
}

func runFreqsToCB(_ *cobra.Command, args []string) error {
	f, err := readFreqs(args[0])
	if err != nil {
		return err
	}
	return withOutput(args[1], func(w io.Writer) error {
		for _, e := range f.Sorted() {
			// Zero has no centibel value.
			if e.Freq <= 0 {
				continue
			}
			if _, err := fmt.Fprintf(w, "%s\t%d\n", e.Token, freq.FreqToCB(e.Freq)); err != nil {
				return err
			}
		}
		return nil
	})
}

func runMergeFreqs(_ *cobra.Command, args []string) error {
	out, inputs := args[0], args[1:]
	lists := make([]freq.Freqs, 0, len(inputs))
	for _, path := range inputs {
		f, err := readFreqs(path)
		if err != nil {
			return err
		}
		lists = append(lists, f)
	}
	merged := freq.MergeFreqs(lists...)

	entries := merged.Sorted()
	if mergeFreqsCutoff > 0 {
		kept := entries[:0]
		for _, e := range entries {
			if freq.FreqToCB(e.Freq) >= -mergeFreqsCutoff {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if err := withOutput(out, func(w io.Writer) error {
		return freq.WriteFreqs(w, entries)
	}); err != nil {
		return err
	}
	logger := cmdLogger("merge-freqs")
	logger.Info().Int("inputs", len(inputs)).Int("tokens", len(entries)).Msg("merged frequencies")
	return nil
}

func runExportToWordfreq(_ *cobra.Command, args []string) error {
	f, err := readFreqs(args[0])
	if err != nil {
		return err
	}
	pack := freq.BuildCBPack(f.Sorted(), exportWordfreqCutoff)

	// The pack is gzipped by WriteCBPack itself, so it bypasses the
	// extension-based compression of corpusio.
	var buf bytes.Buffer
	if err := freq.WriteCBPack(&buf, pack); err != nil {
		return err
	}
	if args[1] == corpusio.Stdio {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := renameio.WriteFile(args[1], buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", args[1], err)
	}
	logger := cmdLogger("export-to-wordfreq")
	logger.Info().
		Int("words", pack.Len()).
		Int("buckets", len(pack.Buckets)).
		Str("path", args[1]).
		Msg("exported cBpack")
	return nil
}
