// Package transport owns the HTTP side of a run: one client with a fixed
// request identity, optional pre-seeded cookies, and a jittered politeness
// delay before every request. All network I/O in the pipeline goes through
// a Context constructed once per run.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:145.0) Gecko/20100101 Firefox/145.0"

// defaultHeaders mimics a regular browser navigation request.
var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"DNT":                       "1",
	"Sec-GPC":                   "1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Connection":                "keep-alive",
	"Priority":                  "u=0, i",
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
}

type Options struct {
	Timeout    time.Duration
	UserAgent  string
	Cookie     string
	CookieFile string

	// Politeness delay bounds. A uniform random delay in [MinDelay, MaxDelay]
	// precedes every request.
	MinDelay time.Duration
	MaxDelay time.Duration

	Retries   int
	Transport http.RoundTripper

	DebugLogger interface {
		Debugf(string, ...any)
	}
}

type Context struct {
	client   *http.Client
	minDelay time.Duration
	maxDelay time.Duration
	retries  int
	log      interface{ Debugf(string, ...any) }
}

func New(opts Options) (*Context, error) {
	jar, _ := cookiejar.New(nil)

	base := opts.Transport
	if base == nil {
		base = cloudflarebp.AddCloudFlareByPass(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxConnsPerHost:     100,
			MaxIdleConnsPerHost: 100,
			ForceAttemptHTTP2:   true,
		})
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retries := opts.Retries
	if retries < 1 {
		retries = 3
	}

	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}

	tc := &Context{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			Transport: roundTripper{
				base:         base,
				ua:           PickUserAgent(opts.UserAgent),
				cookieHeader: joinCookies(opts.Cookie, opts.CookieFile),
				log:          opts.DebugLogger,
			},
		},
		minDelay: opts.MinDelay,
		maxDelay: opts.MaxDelay,
		retries:  retries,
		log:      opts.DebugLogger,
	}

	if opts.DebugLogger != nil {
		opts.DebugLogger.Debugf("transport ready (timeout=%s, delay=%s..%s, retries=%d)\n",
			timeout, tc.minDelay, tc.maxDelay, tc.retries)
	}

	return tc, nil
}

// Do performs the request after the politeness delay, retrying transport
// failures and 5xx responses with linear backoff.
func (tc *Context) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := tc.pace(ctx); err != nil {
		return nil, err
	}

	var resp *http.Response
	var err error

	for attempt := 1; attempt <= tc.retries; attempt++ {
		resp, err = tc.client.Do(req.WithContext(ctx))
		if err == nil && resp.StatusCode < 500 {
			break
		}

		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if attempt == tc.retries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	return resp, nil
}

func (tc *Context) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	return tc.Do(ctx, req)
}

// FetchBytes GETs url and returns the full response body.
func (tc *Context) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := tc.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return io.ReadAll(resp.Body)
}

func (tc *Context) pace(ctx context.Context) error {
	if tc.maxDelay <= 0 {
		return nil
	}

	delay := tc.minDelay
	if span := tc.maxDelay - tc.minDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

type roundTripper struct {
	base         http.RoundTripper
	ua           string
	cookieHeader string
	log          interface{ Debugf(string, ...any) }
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range defaultHeaders {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	if rt.ua != "" {
		req.Header.Set("User-Agent", rt.ua)
	}

	if rt.cookieHeader != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", rt.cookieHeader)
	}

	if rt.log != nil {
		rt.log.Debugf("HTTP %s %s\n", req.Method, req.URL.String())
	}

	return rt.base.RoundTrip(req)
}

func joinCookies(inline, file string) string {
	s := strings.TrimSpace(inline)
	if file != "" {
		if b, err := os.ReadFile(file); err == nil {
			// first non-empty line
			sc := bufio.NewScanner(strings.NewReader(string(b)))
			for sc.Scan() {
				line := strings.TrimSpace(sc.Text())
				if line != "" {
					if s == "" {
						s = line
					} else {
						s = s + "; " + line
					}
					break
				}
			}
		}
	}

	return s
}

func PickUserAgent(override string) string {
	if override != "" {
		return override
	}

	return defaultUserAgent
}
