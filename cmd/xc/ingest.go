package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/corpusio"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/db"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/freq"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/ingest"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/langid"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest IN",
	Short: "Count a corpus into the SQLite store",
	Long: "Tokenizes every line of IN and adds the counts to --source in --db. An interrupted " +
		"run picks up after the last committed line.",
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var exportDBCmd = &cobra.Command{
	Use:   "export-db OUT",
	Short: "Write the counts stored for a language",
	Long:  "Writes 'token<TAB>count' summed over every source of --language, or only --source.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportDB,
}

var (
	dbPath string

	ingestSource    string
	ingestLanguage  string
	ingestURL       string
	ingestWorkers   int
	ingestBatchSize int
	ingestLemmatize bool
	ingestProgress  bool

	exportLanguage string
	exportSource   string
)

func init() {
	for _, c := range []*cobra.Command{ingestCmd, exportDBCmd} {
		c.Flags().StringVar(&dbPath, "db", "xc.db", "Path to the SQLite database")
	}

	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "Source name to count into (required)")
	ingestCmd.Flags().StringVarP(&ingestLanguage, "language", "l", "", "Language of the corpus (required)")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "Where the corpus came from, recorded with the source")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 4, "Tokenizer goroutines")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 50, "Lines per transaction")
	ingestCmd.Flags().BoolVar(&ingestLemmatize, "lemmatize", false, "Count dictionary forms (Japanese only)")
	ingestCmd.Flags().BoolVar(&ingestProgress, "progress", true, "Show a progress bar on stderr")
	for _, name := range []string{"source", "language"} {
		if err := ingestCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	exportDBCmd.Flags().StringVarP(&exportLanguage, "language", "l", "", "Language to export (required)")
	exportDBCmd.Flags().StringVar(&exportSource, "source", "", "Export a single source instead of the whole language")
	if err := exportDBCmd.MarkFlagRequired("language"); err != nil {
		panic(fmt.Sprintf("failed to mark language flag as required: %v", err))
	}

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(exportDBCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := cmdLogger("ingest")

	tok, lang, err := tokenizerFor(ingestLanguage, ingestLemmatize)
	if err != nil {
		return err
	}

	in, err := corpusio.Open(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	defer in.Close()

	conn, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	url := ingestURL
	if url == "" && args[0] != corpusio.Stdio {
		url = args[0]
	}
	sourceID, err := db.CreateOrGetSource(conn, ingestSource, lang, url)
	if err != nil {
		return fmt.Errorf("failed to persist source: %w", err)
	}

	counter := ingest.NewCounter(conn, tok, lang)
	counter.Logger = log
	counter.Workers = ingestWorkers
	counter.BatchSize = ingestBatchSize
	// The input is streamed, so the bar shows a line count without a total.
	var bar *progressbar.ProgressBar
	if ingestProgress {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(ingestSource),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("lines"),
			progressbar.OptionShowIts(),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
		defer func() { _ = bar.Finish() }()
	}
	lines := 0
	counter.OnProgress = func(n int) {
		lines = n
		if bar != nil {
			_ = bar.Set(n)
		}
	}

	n, err := counter.Count(commandContext(cmd), sourceID, in)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", ingestSource, err)
	}
	log.Info().
		Str("source", ingestSource).
		Int64("source_id", sourceID).
		Int("lines", lines).
		Int("tokens", n).
		Msg("ingest finished")
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Counted %d tokens into source %q.\n", n, ingestSource)
	return err
}

func runExportDB(_ *cobra.Command, args []string) error {
	lang, err := langid.Standardize(exportLanguage)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database %s: %w", dbPath, err)
	}
	conn, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	var rows []db.TokenCount
	if exportSource != "" {
		src, err := db.GetSource(conn, exportSource)
		if err != nil {
			return fmt.Errorf("source %q: %w", exportSource, err)
		}
		rows, err = db.SourceCounts(conn, src.ID)
		if err != nil {
			return err
		}
	} else {
		rows, err = db.LanguageCounts(conn, lang)
		if err != nil {
			return err
		}
	}

	entries := make([]freq.Entry, len(rows))
	for i, r := range rows {
		entries[i] = freq.Entry{Token: r.Token, Count: r.Count}
	}
	if err := withOutput(args[0], func(w io.Writer) error {
		return freq.WriteCounts(w, entries)
	}); err != nil {
		return err
	}
	logger := cmdLogger("export-db")
	logger.Info().Str("language", lang).Int("tokens", len(entries)).Msg("exported counts")
	return nil
}
