package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "exquisite_corpus %s\n", version)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
