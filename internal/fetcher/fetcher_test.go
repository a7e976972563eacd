package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/storyd/internal/story"
	"github.com/brogergvhs/storyd/internal/transport"
)

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()

	tc, err := transport.New(transport.Options{
		Timeout:   5 * time.Second,
		Retries:   1,
		Transport: http.DefaultTransport,
	})
	require.NoError(t, err)

	return New(tc)
}

func testPlan(t *testing.T) story.Plan {
	t.Helper()
	return story.NewPlan("https://example.com/Story/index.html", t.TempDir(), "", "tale", "")
}

func chapterServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		fmt.Fprintf(w, "<html><body>content of %s</body></html>", r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestFetchAllWritesChapterFiles(t *testing.T) {
	srv := chapterServer(t, nil)
	plan := testPlan(t)
	urls := []string{srv.URL + "/ch1.html", srv.URL + "/ch2.html", srv.URL + "/ch3.html"}

	records, err := testFetcher(t).FetchAll(context.Background(), urls, plan, Options{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		assert.Equal(t, StatusFetched, rec.Status)
		assert.Equal(t, i+1, rec.Index)
		assert.Equal(t, plan.RawPath(i+1), rec.Path)
		assert.FileExists(t, rec.Path)
	}
}

func TestFetchAllIsIdempotent(t *testing.T) {
	var hits atomic.Int64
	srv := chapterServer(t, &hits)
	plan := testPlan(t)
	urls := []string{srv.URL + "/ch1.html", srv.URL + "/ch2.html"}

	f := testFetcher(t)

	_, err := f.FetchAll(context.Background(), urls, plan, Options{})
	require.NoError(t, err)
	firstHits := hits.Load()

	before, err := os.ReadFile(plan.RawPath(1))
	require.NoError(t, err)

	records, err := f.FetchAll(context.Background(), urls, plan, Options{})
	require.NoError(t, err)

	// no network call happened for cached chapters
	assert.Equal(t, firstHits, hits.Load())
	for _, rec := range records {
		assert.Equal(t, StatusSkipped, rec.Status)
	}

	after, err := os.ReadFile(plan.RawPath(1))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFetchAllForceRefetches(t *testing.T) {
	var hits atomic.Int64
	srv := chapterServer(t, &hits)
	plan := testPlan(t)
	urls := []string{srv.URL + "/ch1.html", srv.URL + "/ch2.html"}

	f := testFetcher(t)

	_, err := f.FetchAll(context.Background(), urls, plan, Options{})
	require.NoError(t, err)

	records, err := f.FetchAll(context.Background(), urls, plan, Options{Force: true})
	require.NoError(t, err)

	assert.Equal(t, int64(4), hits.Load())
	for _, rec := range records {
		assert.Equal(t, StatusFetched, rec.Status)
	}
}

func TestFetchAllPartialFailureContinues(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ch1.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("one"))
	})
	mux.HandleFunc("/ch2.html", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/ch3.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("three"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	plan := testPlan(t)
	urls := []string{srv.URL + "/ch1.html", srv.URL + "/ch2.html", srv.URL + "/ch3.html"}

	records, err := testFetcher(t).FetchAll(context.Background(), urls, plan, Options{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, StatusFetched, records[0].Status)
	assert.Equal(t, StatusFailed, records[1].Status)
	assert.Error(t, records[1].Err)
	assert.Equal(t, StatusFetched, records[2].Status)

	assert.FileExists(t, plan.RawPath(1))
	assert.NoFileExists(t, plan.RawPath(2))
	assert.FileExists(t, plan.RawPath(3))

	// failure log carries url, chapter index and error detail
	logData, err := os.ReadFile(plan.FetchLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(logData), "chapter 002")
	assert.Contains(t, string(logData), srv.URL+"/ch2.html")
}

func TestFetchAllFailedChapterRetriedOnRerun(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/ch1.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("one"))
	})
	mux.HandleFunc("/ch2.html", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("two"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	plan := testPlan(t)
	urls := []string{srv.URL + "/ch1.html", srv.URL + "/ch2.html"}
	f := testFetcher(t)

	records, err := f.FetchAll(context.Background(), urls, plan, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, records[1].Status)

	fail.Store(false)

	records, err = f.FetchAll(context.Background(), urls, plan, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, records[0].Status)
	assert.Equal(t, StatusFetched, records[1].Status)
	assert.FileExists(t, plan.RawPath(2))
}

func TestFetchAllWorkerPool(t *testing.T) {
	srv := chapterServer(t, nil)
	plan := testPlan(t)

	var urls []string
	for i := 1; i <= 8; i++ {
		urls = append(urls, fmt.Sprintf("%s/ch%d.html", srv.URL, i))
	}

	records, err := testFetcher(t).FetchAll(context.Background(), urls, plan, Options{Workers: 4})
	require.NoError(t, err)
	require.Len(t, records, 8)

	for i := 1; i <= 8; i++ {
		assert.FileExists(t, plan.RawPath(i))
	}
}

func TestFetchAllFullFailureLeavesNoEmptyDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	plan := testPlan(t)
	urls := []string{srv.URL + "/ch1.html", srv.URL + "/ch2.html"}

	records, err := testFetcher(t).FetchAll(context.Background(), urls, plan, Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, StatusFailed, records[0].Status)
	assert.Equal(t, StatusFailed, records[1].Status)

	_, statErr := os.Stat(plan.RawDir())
	assert.True(t, os.IsNotExist(statErr))
	assert.FileExists(t, plan.FetchLogPath())
}

func TestFetchAllCancelledBeforeStartFetchesNothing(t *testing.T) {
	var hits atomic.Int64
	srv := chapterServer(t, &hits)
	plan := testPlan(t)
	urls := []string{srv.URL + "/ch1.html", srv.URL + "/ch2.html"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := testFetcher(t).FetchAll(ctx, urls, plan, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, records)
	assert.Equal(t, int64(0), hits.Load())
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{Status: StatusFetched, Bytes: 100},
		{Status: StatusFetched, Bytes: 50},
		{Status: StatusSkipped},
		{Status: StatusFailed},
	}

	s := Summarize(records)
	assert.Equal(t, 2, s.Fetched)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, int64(150), s.Bytes)
}
