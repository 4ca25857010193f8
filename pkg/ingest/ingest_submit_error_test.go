package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/goleak"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/db"
	"github.com/LuminosoInsight/exquisite-corpus/pkg/tokenize"
)

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) Submit(job Job) error      { return errors.New("submit failed") }
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestCountReturnsSubmitError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	conn := setupDB(t)
	defer conn.Close()

	sourceID, err := db.CreateOrGetSource(conn, "submit-error", "en", "http://submit")
	if err != nil {
		t.Fatal(err)
	}

	c := NewCounter(conn, tokenize.UnicodeTokenizer{}, "en")
	c.PoolFactory = func(workers, queue int) WorkerPoolInterface { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := c.Count(ctx, sourceID, linesReader(repeatLines("test line", 10)))
	if err == nil {
		t.Fatalf("expected submit error, got nil")
	}
	if n != 0 {
		t.Errorf("expected nothing committed, got %d", n)
	}
	progress, _ := db.GetSourceProgress(conn, sourceID)
	if progress != -1 {
		t.Errorf("expected untouched checkpoint, got %d", progress)
	}
}
