package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, opts Options) *Context {
	t.Helper()

	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Retries == 0 {
		opts.Retries = 1
	}

	tc, err := New(opts)
	require.NoError(t, err)

	return tc
}

func TestRequestIdentityHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	tc := newTestContext(t, Options{UserAgent: "test-agent/1.0"})

	_, err := tc.FetchBytes(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0", got.Get("User-Agent"))
	assert.Contains(t, got.Get("Accept"), "text/html")
	assert.Equal(t, "en-US,en;q=0.5", got.Get("Accept-Language"))
	assert.Equal(t, "1", got.Get("DNT"))
}

func TestCookieHeaderInline(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	tc := newTestContext(t, Options{Cookie: "session=abc123"})

	_, err := tc.FetchBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "session=abc123", got)
}

func TestCookieHeaderFromFile(t *testing.T) {
	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookieFile, []byte("\ntoken=xyz\nignored=rest\n"), 0644))

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	tc := newTestContext(t, Options{CookieFile: cookieFile})

	_, err := tc.FetchBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "token=xyz", got)
}

func TestNonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tc := newTestContext(t, Options{})

	_, err := tc.FetchBytes(context.Background(), srv.URL)
	require.Error(t, err)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
}

func TestServerErrorIsRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	tc := newTestContext(t, Options{Retries: 2})

	body, err := tc.FetchBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int64(2), hits.Load())
}

func TestPacingDelayBounds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tc := newTestContext(t, Options{
		MinDelay: 30 * time.Millisecond,
		MaxDelay: 60 * time.Millisecond,
	})

	start := time.Now()
	_, err := tc.FetchBytes(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPacingRespectsCancellation(t *testing.T) {
	tc := newTestContext(t, Options{
		MinDelay: 10 * time.Second,
		MaxDelay: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tc.Get(ctx, "https://example.invalid/")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPickUserAgent(t *testing.T) {
	assert.Equal(t, "custom", PickUserAgent("custom"))
	assert.Contains(t, PickUserAgent(""), "Mozilla/5.0")
}
