// Package download fetches the raw corpora listed in the source manifest.
package download

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/config"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/corpusio"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/logging"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/textfix"
)

// ErrTooLarge is returned when a response exceeds Fetcher.MaxBytes.
var ErrTooLarge = errors.New("response exceeds size limit")

const defaultUserAgent = "exquisite-corpus/0.1 (+https://github.com/LuminosoInsight/exquisite-corpus)"

// Fetcher downloads sources over HTTP.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	// MaxBytes caps the size of a single response body; 0 means no limit.
	MaxBytes int64
	// Limiter, if set, spaces out requests. Cache hits do not wait.
	Limiter *rate.Limiter
	Logger  zerolog.Logger
	// OnDone is called after each source is fetched or found in the cache.
	// FetchAll calls it from several goroutines.
	OnDone func(Result)
}

// Result describes one fetched source.
type Result struct {
	Source string
	Path   string
	Bytes  int64
	Cached bool
}

// NewFetcher returns a Fetcher with a 30 minute request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: 30 * time.Minute},
		UserAgent: defaultUserAgent,
		Logger:    logging.WithComponent("download"),
	}
}

// Fetch downloads src into destDir/src.Dest. An existing destination is
// treated as already downloaded.
func (f *Fetcher) Fetch(ctx context.Context, src config.Source, destDir string) (Result, error) {
	dest := filepath.Join(destDir, src.Dest)
	res := Result{Source: src.Name, Path: dest}

	if fi, err := os.Stat(dest); err == nil {
		res.Bytes = fi.Size()
		res.Cached = true
		f.Logger.Debug().Str("source", src.Name).Str("path", dest).Msg("already downloaded")
		f.done(res)
		return res, nil
	} else if !os.IsNotExist(err) {
		return res, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return res, fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("fetch %s: %w", src.Name, err)
		}
	}

	f.Logger.Info().Str("source", src.Name).Str("url", src.URL).Msg("downloading")
	start := time.Now()

	body, err := f.get(ctx, src.URL)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", src.Name, err)
	}
	defer body.Close()

	switch src.Kind {
	case config.KindHTML:
		res.Bytes, err = saveArticle(body, src.URL, dest)
	case config.KindTar:
		res.Bytes, err = saveTarText(body, dest)
	default:
		res.Bytes, err = saveRaw(body, dest)
	}
	if err != nil {
		return res, fmt.Errorf("save %s: %w", src.Name, err)
	}

	f.Logger.Info().
		Str("source", src.Name).
		Str("path", dest).
		Int64("bytes", res.Bytes).
		Dur("took", time.Since(start)).
		Msg("downloaded")
	f.done(res)
	return res, nil
}

// FetchAll fetches sources with at most jobs downloads in flight. The
// first failure cancels the remaining downloads. Results are in the order
// of sources.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.Source, destDir string, jobs int) ([]Result, error) {
	if jobs <= 0 {
		jobs = 1
	}
	results := make([]Result, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := f.Fetch(ctx, src, destDir)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (f *Fetcher) done(res Result) {
	if f.OnDone != nil {
		f.OnDone(res)
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: content-length %d > %d", ErrTooLarge, resp.ContentLength, f.MaxBytes)
	}
	if f.MaxBytes <= 0 {
		return resp.Body, nil
	}
	return &limitedBody{rc: resp.Body, left: f.MaxBytes}, nil
}

// limitedBody fails with ErrTooLarge instead of silently truncating.
type limitedBody struct {
	rc   io.ReadCloser
	left int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.left < 0 {
		return 0, ErrTooLarge
	}
	// Read one byte past the limit to tell "exactly at" from "over".
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.rc.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

func (l *limitedBody) Close() error { return l.rc.Close() }

// saveRaw stores the body byte for byte; compressed corpora stay compressed.
func saveRaw(body io.Reader, dest string) (int64, error) {
	pf, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0o644))
	if err != nil {
		return 0, err
	}
	defer pf.Cleanup()

	n, err := io.Copy(pf, body)
	if err != nil {
		return n, err
	}
	return n, pf.CloseAtomicallyReplace()
}

// saveArticle extracts the readable text of an HTML page.
func saveArticle(body io.Reader, pageURL, dest string) (int64, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return 0, err
	}
	raw = textfix.SanitizeRuby(raw)

	u, err := url.Parse(pageURL)
	if err != nil {
		return 0, err
	}
	article, err := readability.FromReader(bytes.NewReader(raw), u)
	if err != nil {
		return 0, fmt.Errorf("extract article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return 0, errors.New("no article text found")
	}
	return writeText(dest, func(w io.Writer) (int64, error) {
		n, err := io.WriteString(w, text+"\n")
		return int64(n), err
	})
}

// saveTarText concatenates the .txt members of a tarball, gzipped or not.
func saveTarText(body io.Reader, dest string) (int64, error) {
	br := bufio.NewReader(body)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return 0, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	return writeText(dest, func(w io.Writer) (int64, error) {
		var total int64
		found := false
		for {
			header, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return total, fmt.Errorf("error reading tar archive: %w", err)
			}
			if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, ".txt") {
				continue
			}
			found = true
			n, err := copyMember(w, tr)
			total += n
			if err != nil {
				return total, fmt.Errorf("copy %s: %w", header.Name, err)
			}
		}
		if !found {
			return total, errors.New("no .txt file found in archive")
		}
		return total, nil
	})
}

// copyMember copies one member and makes sure it ends in a newline, so the
// last line of a member never runs into the first line of the next.
func copyMember(w io.Writer, r io.Reader) (int64, error) {
	var last byte
	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			total += int64(m)
			if werr != nil {
				return total, werr
			}
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}
	}
	if total > 0 && last != '\n' {
		m, err := io.WriteString(w, "\n")
		total += int64(m)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func writeText(dest string, fill func(io.Writer) (int64, error)) (int64, error) {
	w, err := corpusio.Create(dest)
	if err != nil {
		return 0, err
	}
	n, err := fill(w)
	if err != nil {
		w.Abort()
		return n, err
	}
	return n, w.Close()
}
