// Package fetcher downloads every manifest URL into the story's raw
// directory. Fetches are idempotent: a chapter file that already exists is
// skipped unless force is set, and a failed chapter never aborts the batch.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brogergvhs/storyd/internal/story"
	"github.com/brogergvhs/storyd/internal/transport"
	"github.com/brogergvhs/storyd/internal/util"
)

type Status string

const (
	StatusFetched Status = "fetched"
	StatusSkipped Status = "skipped-cached"
	StatusFailed  Status = "failed"
)

// Record is the outcome for one manifest URL. Records are created during
// the fetch phase and never mutated afterward.
type Record struct {
	URL    string
	Index  int
	Path   string
	Status Status
	Bytes  int64
	Err    error
}

type Options struct {
	Force   bool
	Workers int

	// OnRecord is called once per finished record, from worker goroutines.
	OnRecord func(Record)
}

type Fetcher struct {
	tc *transport.Context
}

func New(tc *transport.Context) *Fetcher {
	return &Fetcher{tc: tc}
}

// FetchAll processes the manifest in order, one record per URL. Chapter
// index is the 1-based manifest position. On context cancellation no new
// fetch is started; already written files stay intact and the records
// collected so far are returned with ctx.Err().
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, plan story.Plan, opts Options) ([]Record, error) {
	if err := os.MkdirAll(plan.RawDir(), 0755); err != nil {
		return nil, err
	}
	util.CleanupStrayTemp(plan.RawDir())

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(urls) && len(urls) > 0 {
		workers = len(urls)
	}

	records := make([]Record, len(urls))
	flog := &failureLog{path: plan.FetchLogPath()}

	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			rec := f.fetchOne(ctx, urls[i], i+1, plan, opts.Force)
			if rec.Status == StatusFailed {
				flog.append(rec)
			}

			records[i] = rec
			if opts.OnRecord != nil {
				opts.OnRecord(rec)
			}
		}
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go worker()
	}

	var runErr error
dispatch:
	for i := range urls {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}

	close(jobs)
	wg.Wait()

	// on cancellation the tail of the manifest was never started; those
	// slots carry no record
	done := records[:0]
	for _, rec := range records {
		if rec.Status != "" {
			done = append(done, rec)
		}
	}

	// a fully failed or never-started run leaves nothing behind
	util.RemoveIfEmpty(plan.RawDir())

	return done, runErr
}

func (f *Fetcher) fetchOne(ctx context.Context, url string, index int, plan story.Plan, force bool) Record {
	rec := Record{URL: url, Index: index, Path: plan.RawPath(index)}

	if !force && util.FileExists(rec.Path) {
		rec.Status = StatusSkipped
		return rec
	}

	body, err := f.tc.FetchBytes(ctx, url)
	if err != nil {
		rec.Status = StatusFailed
		rec.Err = fmt.Errorf("fetch chapter %d: %w", index, err)
		return rec
	}

	if err := util.WriteFileAtomic(rec.Path, body, 0644); err != nil {
		rec.Status = StatusFailed
		rec.Err = fmt.Errorf("write chapter %d: %w", index, err)
		return rec
	}

	rec.Status = StatusFetched
	rec.Bytes = int64(len(body))
	return rec
}

// failureLog appends one line per failed fetch. Append-only; consumed by
// humans or a later retry, never read back by the pipeline.
type failureLog struct {
	mu   sync.Mutex
	path string
}

func (l *failureLog) append(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer func() {
		_ = f.Close()
	}()

	ts := time.Now().Format("2006-01-02T15:04:05")
	fmt.Fprintf(f, "%s ERROR chapter %03d %s -> %v\n", ts, rec.Index, rec.URL, rec.Err)
}

// Summary tallies a finished run.
type Summary struct {
	Fetched int
	Skipped int
	Failed  int
	Bytes   int64
}

func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		switch r.Status {
		case StatusFetched:
			s.Fetched++
			s.Bytes += r.Bytes
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}

	return s
}
