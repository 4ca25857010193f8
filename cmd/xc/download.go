package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/config"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/download"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch the sources listed in the manifest",
	Long:  "Downloads every source of --config (or only those named with --source) into <data-dir>/raw. Files already on disk are kept.",
	Args:  cobra.NoArgs,
	RunE:  runDownload,
}

var (
	downloadSources  []string
	downloadDataDir  string
	downloadJobs     int
	downloadMaxBytes int64
	downloadProgress bool
	downloadRate     float64
)

func init() {
	downloadCmd.Flags().StringArrayVar(&downloadSources, "source", nil, "Source to download (repeatable; default: all)")
	downloadCmd.Flags().StringVar(&downloadDataDir, "data-dir", "", "Override the manifest's data_dir")
	downloadCmd.Flags().IntVarP(&downloadJobs, "jobs", "j", 4, "Parallel downloads")
	downloadCmd.Flags().Int64Var(&downloadMaxBytes, "max-bytes", 0, "Fail sources larger than this many bytes (0: no limit)")
	downloadCmd.Flags().BoolVar(&downloadProgress, "progress", true, "Show a progress bar on stderr")
	downloadCmd.Flags().Float64Var(&downloadRate, "rate", 0, "Maximum requests per second across all jobs (0: unlimited)")
	rootCmd.AddCommand(downloadCmd)
}

// selectSources returns the named sources, or all of them.
func selectSources(cfg *config.Config, names []string) ([]config.Source, error) {
	if len(names) == 0 {
		return cfg.Sources, nil
	}
	out := make([]config.Source, 0, len(names))
	for _, name := range names {
		src, ok := cfg.Source(name)
		if !ok {
			return nil, fmt.Errorf("unknown source %q in %s", name, configPath)
		}
		out = append(out, src)
	}
	return out, nil
}

func runDownload(cmd *cobra.Command, _ []string) error {
	log := cmdLogger("download")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyConfigLogLevel(cfg); err != nil {
		return err
	}
	if downloadDataDir != "" {
		cfg.DataDir = downloadDataDir
	}
	sources, err := selectSources(cfg, downloadSources)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		log.Warn().Str("config", configPath).Msg("no sources to download")
		return nil
	}

	f := download.NewFetcher()
	f.Logger = log
	f.MaxBytes = downloadMaxBytes
	if downloadRate > 0 {
		f.Limiter = rate.NewLimiter(rate.Limit(downloadRate), 1)
	}
	if downloadProgress {
		bar := progressbar.NewOptions(len(sources),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
		f.OnDone = func(download.Result) { _ = bar.Add(1) }
	}

	results, err := f.FetchAll(commandContext(cmd), sources, cfg.RawDir(), downloadJobs)
	if err != nil {
		return err
	}
	cached := 0
	var total int64
	for _, r := range results {
		if r.Cached {
			cached++
		}
		total += r.Bytes
	}
	log.Info().
		Int("sources", len(results)).
		Int("cached", cached).
		Int64("bytes", total).
		Str("dir", cfg.RawDir()).
		Msg("download finished")
	return nil
}
