package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/config"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/freq"
)

// set assigns a package-level flag variable for the duration of a test.
func set[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	assert.Equal(t, "exquisite_corpus 0.1\n", out.String())
}

func TestRootRegistersSubcommands(t *testing.T) {
	want := []string{
		"version", "download", "fix-text", "dedup", "detect-language", "tokenize",
		"tokenize-by-language", "count", "merge-counts", "freqs-to-cB", "merge-freqs",
		"export-to-wordfreq", "top-n", "ingest", "export-db",
	}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestFixTextCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "cafÃ© &amp; co\n\n  spaced   out  \n[[Link|label]] text\n")
	out := filepath.Join(dir, "out.txt")

	require.NoError(t, runFixText(nil, []string{in, out}))
	assert.Equal(t, "café & co\nspaced out\n[[Link|label]] text\n", readFile(t, out))

	set(t, &fixTextStripMarkup, true)
	require.NoError(t, runFixText(nil, []string{in, out}))
	assert.Equal(t, "café & co\nspaced out\nlabel text\n", readFile(t, out))
}

func TestDedupCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "a\nb\n a \n\nc\nb\n")
	out := filepath.Join(dir, "out.txt.gz")

	require.NoError(t, runDedup(nil, []string{in, out}))

	// Output is gzipped by extension; feed it back through dedup to read it.
	plain := filepath.Join(dir, "plain.txt")
	require.NoError(t, runDedup(nil, []string{out, plain}))
	assert.Equal(t, "a\nb\nc\n", readFile(t, plain))
}

func TestDetectLanguageCommand(t *testing.T) {
	dir := t.TempDir()
	english := "The quick brown fox jumps over the lazy dog and keeps running through the forest."
	in := writeFile(t, dir, "in.txt", english+"\n\n!!\n")
	out := filepath.Join(dir, "out.txt")

	require.NoError(t, runDetectLanguage(nil, []string{in, out}))
	assert.Equal(t, "en\t"+english+"\nund\t\nund\t!!\n", readFile(t, out))

	set(t, &detectLanguages, "xx-invalid-!!")
	assert.Error(t, runDetectLanguage(nil, []string{in, out}))
}

func TestTokenizeCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "Hello, World! Hello.\n...\nOne two. Three four.\n")
	out := filepath.Join(dir, "out.txt")

	set(t, &tokenizeLanguage, "en")
	require.NoError(t, runTokenize(nil, []string{in, out}))
	assert.Equal(t, "hello world hello\none two three four\n", readFile(t, out))

	set(t, &tokenizeSentences, true)
	require.NoError(t, runTokenize(nil, []string{in, out}))
	assert.Equal(t, "hello world\nhello\none two\nthree four\n", readFile(t, out))

	set(t, &tokenizeLemmatize, true)
	err := runTokenize(nil, []string{in, out})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only available for Japanese")
}

func TestTokenizeByLanguageCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt",
		"The quick brown fox jumps over the lazy dog and keeps running through the forest.\n"+
			"Съешь же ещё этих мягких французских булок, да выпей чаю.\n"+
			"ok\n")
	outDir := filepath.Join(dir, "by-lang")

	set(t, &byLanguageLanguages, "en, de")
	require.NoError(t, runTokenizeByLanguage(nil, []string{in, outDir}))

	assert.Equal(t,
		"the quick brown fox jumps over the lazy dog and keeps running through the forest\n",
		readFile(t, filepath.Join(outDir, "en.txt")))
	assert.NoFileExists(t, filepath.Join(outDir, "ru.txt"))
	assert.NoFileExists(t, filepath.Join(outDir, "de.txt"))

	set(t, &byLanguageZst, true)
	require.NoError(t, runTokenizeByLanguage(nil, []string{in, outDir}))
	assert.FileExists(t, filepath.Join(outDir, "en.txt.zst"))

	set(t, &byLanguageLanguages, "")
	assert.Error(t, runTokenizeByLanguage(nil, []string{in, outDir}))
}

func TestCountAndMergeCountsCommands(t *testing.T) {
	dir := t.TempDir()
	tokens := writeFile(t, dir, "tokens.txt", "the cat\nthe dog the end\n")
	counts := filepath.Join(dir, "counts.txt")

	require.NoError(t, runCount(nil, []string{tokens, counts}))
	assert.Equal(t, "the\t3\ncat\t1\ndog\t1\nend\t1\n", readFile(t, counts))

	other := writeFile(t, dir, "other.txt", "dog\t5\nthe\t1\n")
	merged := filepath.Join(dir, "merged.txt")
	require.NoError(t, runMergeCounts(nil, []string{merged, counts, other}))
	assert.Equal(t, "dog\t6\nthe\t4\ncat\t1\nend\t1\n", readFile(t, merged))

	bad := writeFile(t, dir, "bad.txt", "dog\tmany\n")
	err := runMergeCounts(nil, []string{merged, counts, bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, freq.ErrMalformedLine)
}

func TestFreqsToCBCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "counts.txt", "a\t3\nb\t1\n")
	out := filepath.Join(dir, "cb.txt")

	require.NoError(t, runFreqsToCB(nil, []string{in, out}))
	assert.Equal(t, "a\t-12\nb\t-60\n", readFile(t, out))

	withZero := writeFile(t, dir, "zero.txt", "a\t3\nb\t1\nnever\t0\n")
	require.NoError(t, runFreqsToCB(nil, []string{withZero, out}))
	assert.Equal(t, "a\t-12\nb\t-60\n", readFile(t, out))
}

func TestMergeFreqsCommand(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.txt", "a\t1\nb\t1\n")
	two := writeFile(t, dir, "two.txt", "a\t3\nc\t1\n")
	out := filepath.Join(dir, "merged.txt")

	require.NoError(t, runMergeFreqs(nil, []string{out, one, two}))
	assert.Equal(t, "a\t0.625\nb\t0.25\nc\t0.125\n", readFile(t, out))

	set(t, &mergeFreqsCutoff, 80)
	require.NoError(t, runMergeFreqs(nil, []string{out, one, two}))
	assert.Equal(t, "a\t0.625\nb\t0.25\n", readFile(t, out))
}

func TestExportToWordfreqCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "freqs.txt", "the\t0.05\nof\t0.05\ncat\t0.001\nrare\t0.00000001\n")
	out := filepath.Join(dir, "small_en.msgpack.gz")

	set(t, &exportWordfreqCutoff, freq.DefaultCutoff)
	require.NoError(t, runExportToWordfreq(nil, []string{in, out}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	pack, err := freq.ReadCBPack(f)
	require.NoError(t, err)
	assert.Equal(t, "cB", pack.Header.Format)
	// "rare" is below the cutoff once normalized.
	assert.Equal(t, 3, pack.Len())
}

func TestTopNCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "a\t5\nb\t4\nc\t3\nd\t2\n")
	out := filepath.Join(dir, "out.txt")

	set(t, &topN, 2)
	require.NoError(t, runTopN(nil, []string{in, out}))
	assert.Equal(t, "a\t5\nb\t4\n", readFile(t, out))

	set(t, &topN, 10)
	require.NoError(t, runTopN(nil, []string{in, out}))
	assert.Equal(t, "a\t5\nb\t4\nc\t3\nd\t2\n", readFile(t, out))

	set(t, &topN, -1)
	assert.Error(t, runTopN(nil, []string{in, out}))
}

func TestIngestAndExportDBCommands(t *testing.T) {
	dir := t.TempDir()
	corpus := writeFile(t, dir, "corpus.txt", "the cat sat\nthe dog\n\nThe end\n")
	out := filepath.Join(dir, "export.txt")

	set(t, &dbPath, filepath.Join(dir, "xc.db"))
	set(t, &ingestSource, "sample")
	set(t, &ingestLanguage, "EN")
	set(t, &ingestWorkers, 2)
	set(t, &ingestBatchSize, 2)
	set(t, &ingestProgress, false)
	set(t, &exportLanguage, "en")

	var stdout bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)

	require.NoError(t, runIngest(cmd, []string{corpus}))
	assert.Contains(t, stdout.String(), "Counted 7 tokens")

	require.NoError(t, runExportDB(nil, []string{out}))
	assert.Equal(t, "the\t3\ncat\t1\ndog\t1\nend\t1\nsat\t1\n", readFile(t, out))

	// Everything is already counted, so a rerun adds nothing.
	stdout.Reset()
	require.NoError(t, runIngest(cmd, []string{corpus}))
	assert.Contains(t, stdout.String(), "Counted 0 tokens")

	require.NoError(t, runExportDB(nil, []string{out}))
	assert.Equal(t, "the\t3\ncat\t1\ndog\t1\nend\t1\nsat\t1\n", readFile(t, out))

	set(t, &exportSource, "sample")
	require.NoError(t, runExportDB(nil, []string{out}))
	assert.Equal(t, "the\t3\ncat\t1\ndog\t1\nend\t1\nsat\t1\n", readFile(t, out))

	set(t, &exportSource, "missing")
	assert.Error(t, runExportDB(nil, []string{out}))
}

func TestExportDBMissingDatabase(t *testing.T) {
	set(t, &dbPath, filepath.Join(t.TempDir(), "nope.db"))
	set(t, &exportLanguage, "en")
	assert.Error(t, runExportDB(nil, []string{filepath.Join(t.TempDir(), "out.txt")}))
}

func TestManifestLogLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	set(t, &logLevel, "")
	set(t, &verbose, false)

	require.NoError(t, applyConfigLogLevel(&config.Config{LogLevel: "warn"}))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	// A level from the command line wins over the manifest.
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	set(t, &logLevel, "info")
	require.NoError(t, applyConfigLogLevel(&config.Config{LogLevel: "error"}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestDownloadCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/corpus.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("line one\nline two\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	manifest := writeFile(t, dir, "sources.yaml", "sources:\n"+
		"  - name: sample\n"+
		"    url: "+srv.URL+"/corpus.txt\n"+
		"    language: en\n")

	set(t, &configPath, manifest)
	set(t, &downloadDataDir, filepath.Join(dir, "data"))
	set(t, &downloadProgress, false)
	set(t, &downloadJobs, 2)

	require.NoError(t, runDownload(nil, nil))
	assert.Equal(t, "line one\nline two\n", readFile(t, filepath.Join(dir, "data", "raw", "sample.txt")))

	set(t, &downloadSources, []string{"other"})
	err := runDownload(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}
