// Command xc downloads and processes natural-language corpora into word
// frequency lists.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/config"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "xc",
	Short: "Download and process many gigabytes of natural language data",
	Long: "xc builds word frequency lists from large text corpora. Each subcommand is one " +
		"pipeline step reading and writing plain, gzip or zstd text; '-' means stdin or stdout.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

var (
	logLevel   string
	verbose    bool
	configPath string

	// runID tags every log line of one invocation.
	runID string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "sources.yaml", "Path to the source manifest")
}

func setupLogging(_ *cobra.Command, _ []string) error {
	level := logLevel
	if verbose {
		level = "debug"
	}
	if level == "" {
		level = os.Getenv("XC_LOG_LEVEL")
	}
	logging.Configure(logging.Config{Level: level})
	runID = uuid.NewString()
	return nil
}

// applyConfigLogLevel uses the manifest's log_level (or XC_LOG_LEVEL, which
// the config already folds in) unless the command line chose a level.
func applyConfigLogLevel(cfg *config.Config) error {
	if logLevel != "" || verbose || cfg.LogLevel == "" {
		return nil
	}
	return logging.SetLevel(cfg.LogLevel)
}

// cmdLogger returns the logger for one subcommand.
func cmdLogger(name string) zerolog.Logger {
	return logging.Derive(func(c *zerolog.Context) {
		*c = c.Str("component", "cli").Str("command", name)
		if runID != "" {
			*c = c.Str("run_id", runID)
		}
	})
}

// commandContext returns cmd's context, or a background context when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
