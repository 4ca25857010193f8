package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/dedup"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup IN OUT",
	Short: "Drop repeated lines",
	Args:  cobra.ExactArgs(2),
	RunE:  runDedup,
}

func init() {
	rootCmd.AddCommand(dedupCmd)
}

func runDedup(_ *cobra.Command, args []string) error {
	var kept, dropped int
	err := withInput(args[0], func(r io.Reader) error {
		return withOutput(args[1], func(w io.Writer) error {
			var err error
			kept, dropped, err = dedup.New().Filter(r, w)
			return err
		})
	})
	if err != nil {
		return err
	}
	logger := cmdLogger("dedup")
	logger.Info().Int("kept", kept).Int("dropped", dropped).Msg("deduplicated")
	return nil
}
