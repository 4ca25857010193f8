// Package ingest counts the tokens of a corpus into the SQLite store.
//
// Lines are tokenized by a worker pool, put back in order by a single
// consumer and written in batched transactions. Each line's counts commit
// together with a checkpoint of its index, so an interrupted run resumes
// after the last committed line without double counting.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/corpusio"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/db"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/logging"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/tokenize"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Counter ingests the lines of one source in one language.
type Counter struct {
	DB        *sql.DB
	Tokenizer tokenize.Tokenizer
	Language  string
	BatchSize int
	// FlushInterval bounds how long counted lines wait for a commit.
	FlushInterval time.Duration
	Logger        zerolog.Logger
	// OnProgress is called periodically, and once at the end, with the
	// number of lines handled so far, checkpointed lines included.
	OnProgress func(lines int)

	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewCounter creates a Counter with default batching and concurrency.
func NewCounter(conn *sql.DB, tok tokenize.Tokenizer, language string) *Counter {
	return &Counter{
		DB:            conn,
		Tokenizer:     tok,
		Language:      language,
		BatchSize:     50,
		FlushInterval: 100 * time.Millisecond,
		Logger:        logging.WithComponent("ingest"),
		Workers:       4,
	}
}

type tokenCount struct {
	Token string
	Count int64
}

// countedLine is the result of tokenizing one line.
type countedLine struct {
	Index  int
	Tokens []tokenCount
	Error  error
}

func (l countedLine) total() int64 {
	var n int64
	for _, t := range l.Tokens {
		n += t.Count
	}
	return n
}

// errStopScan ends the line scan early without being an error itself.
var errStopScan = errors.New("stop scan")

// Count tokenizes the lines of r and adds their counts to sourceID, skipping
// lines up to the source's checkpoint. Lines are streamed, so r may be far
// larger than memory. It returns the number of tokens committed.
func (c *Counter) Count(ctx context.Context, sourceID int64, r io.Reader) (int, error) {
	if c.Tokenizer == nil {
		return 0, errors.New("ingest: no tokenizer configured")
	}
	lastProcessed, err := db.GetSourceProgress(c.DB, sourceID)
	if err != nil {
		c.Logger.Warn().Err(err).Int64("source_id", sourceID).Msg("failed to retrieve progress, starting from the first line")
		lastProcessed = -1
	}
	startIdx := lastProcessed + 1
	if startIdx > 0 {
		c.Logger.Info().Int64("source_id", sourceID).Int("skipped", startIdx).Msg("resuming from checkpoint")
	}

	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if c.PoolFactory != nil {
		wp = c.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	resultCh := make(chan countedLine, workers*2)
	doneCh := make(chan error, 1)

	bw := NewBatchWriter(c.DB, c.BatchSize, c.FlushInterval)
	defer func() {
		// Safe on every path; the normal path has already closed it.
		_ = bw.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	go func() {
		defer close(doneCh)
		buffer := make(map[int]countedLine)
		nextIdx := startIdx
		var firstErr error

		// Keep receiving after a failure so workers never block on resultCh.
		for res := range resultCh {
			if firstErr != nil || ctx.Err() != nil {
				continue
			}
			if res.Error != nil {
				firstErr = res.Error
				cancel()
				continue
			}
			buffer[res.Index] = res

			for {
				item, ok := buffer[nextIdx]
				if !ok {
					break
				}
				delete(buffer, nextIdx)
				if err := bw.SubmitCounted(c.writeLine(sourceID, item), item.total()); err != nil {
					firstErr = err
					cancel()
					break
				}
				nextIdx++
				if c.OnProgress != nil && (nextIdx-startIdx)%c.progressEvery() == 0 {
					c.OnProgress(nextIdx)
				}
			}
		}

		if firstErr == nil && ctx.Err() != nil {
			firstErr = ctx.Err()
		}
		if firstErr == nil && c.OnProgress != nil {
			c.OnProgress(nextIdx)
		}
		doneCh <- firstErr
	}()

	var submitErr error
	idx := 0
	scanErr := corpusio.Lines(r, func(line string) error {
		i := idx
		idx++
		if i < startIdx {
			return nil
		}
		if ctx.Err() != nil {
			return errStopScan
		}
		job := func(ctx context.Context) error {
			res := c.countLine(i, line)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, ctx.Err()) || err == ErrPoolClosed {
				return errStopScan
			}
			submitErr = fmt.Errorf("submit line %d: %w", i, err)
			cancel()
			return errStopScan
		}
		return nil
	})
	if errors.Is(scanErr, errStopScan) {
		scanErr = nil
	} else if scanErr != nil {
		scanErr = fmt.Errorf("read line %d: %w", idx, scanErr)
		cancel()
	}

	// No worker can send after Close returns, so closing resultCh is safe.
	wp.Close()
	close(resultCh)

	consumerErr := <-doneCh
	batchErr := bw.Close()

	stats := bw.Stats()
	committed := int(stats.Tokens)
	c.Logger.Debug().
		Int64("batches", stats.Batches).
		Int64("writes", stats.Writes).
		Int64("dropped", stats.Dropped).
		Int64("tokens", stats.Tokens).
		Msg("batch writer finished")
	if idx <= startIdx && scanErr == nil {
		c.Logger.Info().Int64("source_id", sourceID).Int("lines", idx).Msg("source already fully counted")
	}

	switch {
	case submitErr != nil:
		return committed, submitErr
	case scanErr != nil:
		return committed, scanErr
	case consumerErr != nil:
		return committed, consumerErr
	case batchErr != nil && batchErr != ErrBatchWriterClosed:
		return committed, batchErr
	}
	return committed, nil
}

func (c *Counter) progressEvery() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return 50
}

// writeLine returns the transactional write for one counted line: its
// counts plus the checkpoint.
func (c *Counter) writeLine(sourceID int64, item countedLine) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, t := range item.Tokens {
			wordID, err := db.CreateOrGetWord(tx, t.Token, c.Language)
			if err != nil {
				return fmt.Errorf("failed to persist token %q: %w", t.Token, err)
			}
			if err := db.AddWordCount(tx, wordID, sourceID, t.Count); err != nil {
				return fmt.Errorf("failed to count token %q: %w", t.Token, err)
			}
		}
		if err := db.UpdateSourceProgress(tx, sourceID, item.Index); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
		return nil
	}
}

// countLine tokenizes a line and counts its tokens in first-seen order.
func (c *Counter) countLine(index int, line string) countedLine {
	counts := make(map[string]int64)
	var ordered []string
	for _, tok := range c.Tokenizer.Tokenize(line) {
		if _, seen := counts[tok]; !seen {
			ordered = append(ordered, tok)
		}
		counts[tok]++
	}
	out := countedLine{Index: index, Tokens: make([]tokenCount, 0, len(ordered))}
	for _, tok := range ordered {
		out.Tokens = append(out.Tokens, tokenCount{Token: tok, Count: counts[tok]})
	}
	return out
}
