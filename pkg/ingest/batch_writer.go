package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// WriteFunc is a callback that performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchStats reports what a BatchWriter has committed so far.
type BatchStats struct {
	Batches int64
	Writes  int64
	// Tokens sums the counts passed to SubmitCounted, for committed writes only.
	Tokens int64
	// Dropped counts writes lost to a failed or abandoned batch.
	Dropped int64
}

// pendingWrite is a write plus the number of tokens it adds to the store.
type pendingWrite struct {
	fn     WriteFunc
	tokens int64
}

func batchTokens(batch []pendingWrite) int64 {
	var n int64
	for _, w := range batch {
		n += w.tokens
	}
	return n
}

// BatchWriter buffers write operations and flushes them in batches inside a
// transaction. A failing write rolls back its whole batch.
type BatchWriter struct {
	mu          sync.Mutex
	buf         []pendingWrite
	cap         int
	flushTicker *time.Ticker
	closed      bool
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	commitCh chan []pendingWrite
	db       *sql.DB
	OnError  func(error)

	batches atomic.Int64
	writes  atomic.Int64
	tokens  atomic.Int64
	dropped atomic.Int64

	// lastErr stores the first asynchronous error seen by the writer. Protected by errMu.
	errMu   sync.Mutex
	lastErr error
}

// NewBatchWriter creates a new BatchWriter.
// db: the database connection to use for transactions.
// bufferSize: flush when buffer reaches this size.
// flushInterval: flush after this duration (0 to disable).
func NewBatchWriter(db *sql.DB, bufferSize int, flushInterval time.Duration) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		buf:      make([]pendingWrite, 0, bufferSize),
		cap:      bufferSize,
		ctx:      ctx,
		cancel:   cancel,
		commitCh: make(chan []pendingWrite, 2),
		db:       db,
	}

	bw.wg.Add(1)
	go bw.committer()

	if flushInterval > 0 {
		bw.flushTicker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.loop()
	}
	return bw
}

// Submit enqueues a write function that adds no tokens.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	return bw.SubmitCounted(w, 0)
}

// SubmitCounted enqueues a write that adds tokens to the store. The tokens
// show up in Stats once the write's batch commits.
func (bw *BatchWriter) SubmitCounted(w WriteFunc, tokens int64) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, pendingWrite{fn: w, tokens: tokens})
	if len(bw.buf) >= bw.cap {
		bw.flushLocked()
	}
	return nil
}

// Stats returns the number of committed batches and writes.
func (bw *BatchWriter) Stats() BatchStats {
	return BatchStats{
		Batches: bw.batches.Load(),
		Writes:  bw.writes.Load(),
		Tokens:  bw.tokens.Load(),
		Dropped: bw.dropped.Load(),
	}
}

// flushLocked assumes bw.mu is held. Blocking on a busy committer here is
// what gives Submit its backpressure.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]pendingWrite, 0, bw.cap)

	select {
	case bw.commitCh <- batch:
	case <-bw.ctx.Done():
		bw.dropped.Add(int64(len(batch)))
		bw.recordErr(fmt.Errorf("batch writer: dropping batch of %d items (%d tokens) due to context cancellation", len(batch), batchTokens(batch)))
	}
}

func (bw *BatchWriter) recordErr(err error) {
	bw.errMu.Lock()
	if bw.lastErr == nil {
		bw.lastErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		if err := bw.executeBatch(batch); err != nil {
			bw.dropped.Add(int64(len(batch)))
			bw.recordErr(err)
			continue
		}
		bw.batches.Add(1)
		bw.writes.Add(int64(len(batch)))
		bw.tokens.Add(batchTokens(batch))
	}
}

func (bw *BatchWriter) executeBatch(batch []pendingWrite) error {
	// Without a DB (tests), run callbacks with a nil tx.
	if bw.db == nil {
		for _, w := range batch {
			if err := w.fn(bw.ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// Background context: a closing writer must still commit what it holds.
	ctx := context.Background()

	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, w := range batch {
		if err := w.fn(ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d items, %d tokens): %w", len(batch), batchTokens(batch), err)
	}
	return nil
}

func (bw *BatchWriter) loop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.flushTicker.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

// Close stops accepting submissions, flushes what is buffered and waits for
// pending writes. It returns the first asynchronous error, if any.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.flushTicker != nil {
		bw.flushTicker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()
	close(bw.commitCh)
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.lastErr
}

// ErrBatchWriterClosed is returned by Submit and Close after Close.
var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

// BatchWriterError is the typed error for BatchWriter state errors.
type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
