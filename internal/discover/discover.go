// Package discover turns one seed URL into the ordered, deduplicated list
// of in-scope chapter URLs and persists it as the run's manifest.
package discover

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/storyd/internal/transport"
)

// DiscoveryError means the seed page could not be retrieved or parsed.
// It is fatal to the run: no manifest is produced.
type DiscoveryError struct {
	SeedURL string
	Err     error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", e.SeedURL, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Listing is the result of the list phase. Title and Author are filled only
// by site strategies that can read them off the seed page.
type Listing struct {
	URLs   []string
	Title  string
	Author string
}

// Default discovers chapter links by scraping every anchor on the seed page
// and keeping those inside the seed's host and directory scope.
//
// Sorter, when set, reorders the in-scope links before deduplication. It
// must be deterministic and total; first-seen order after it becomes the
// canonical chapter order.
type Default struct {
	Sorter func(urls []string)
}

func (d Default) Discover(ctx context.Context, tc *transport.Context, seedURL string) (Listing, error) {
	doc, err := FetchSeed(ctx, tc, seedURL)
	if err != nil {
		return Listing{}, err
	}

	return Listing{URLs: d.SelectLinks(doc, seedURL)}, nil
}

// FetchSeed retrieves and parses the seed page. Site strategies that need
// the parsed page for metadata reuse it so the seed is fetched only once.
func FetchSeed(ctx context.Context, tc *transport.Context, seedURL string) (*goquery.Document, error) {
	body, err := tc.FetchBytes(ctx, seedURL)
	if err != nil {
		return nil, &DiscoveryError{SeedURL: seedURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &DiscoveryError{SeedURL: seedURL, Err: err}
	}

	return doc, nil
}

// SelectLinks applies the scope filter and dedup to every anchor in doc.
func (d Default) SelectLinks(doc *goquery.Document, seedURL string) []string {
	base, err := url.Parse(seedURL)
	if err != nil {
		return nil
	}
	baseDir := baseDirectory(base.Path)

	var inScope []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		abs, ok := resolveURL(base, href)
		if !ok {
			return
		}

		if inScopeOf(base, baseDir, abs) {
			inScope = append(inScope, abs.String())
		}
	})

	if d.Sorter != nil {
		d.Sorter(inScope)
	}

	// dedupe preserving first-seen order; that order is the chapter order
	seen := map[string]bool{}
	ordered := make([]string, 0, len(inScope))
	for _, u := range inScope {
		if seen[u] {
			continue
		}
		seen[u] = true
		ordered = append(ordered, u)
	}

	return ordered
}

func resolveURL(base *url.URL, href string) (*url.URL, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}

	return base.ResolveReference(ref), true
}

func inScopeOf(base *url.URL, baseDir string, candidate *url.URL) bool {
	return base.Scheme == candidate.Scheme &&
		base.Host == candidate.Host &&
		strings.HasPrefix(candidate.Path, baseDir)
}

// baseDirectory is the seed's containing directory with leading and
// trailing slashes, e.g. "/Story/index.html" -> "/Story/".
func baseDirectory(p string) string {
	if p == "" {
		p = "/"
	}

	var dir string
	if strings.HasSuffix(p, "/") {
		dir = path.Clean(p)
	} else {
		dir = path.Dir(p)
	}

	if dir == "" || dir == "." {
		dir = "/"
	}
	if !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	return dir
}

// NumericPathSorter orders URLs by the last number found in their path,
// falling back to a lexical comparison. Useful for sites whose index pages
// list chapters out of order.
func NumericPathSorter(urls []string) {
	sort.SliceStable(urls, func(i, j int) bool {
		ni, oki := lastPathNumber(urls[i])
		nj, okj := lastPathNumber(urls[j])
		if oki && okj && ni != nj {
			return ni < nj
		}
		if oki != okj {
			return oki
		}
		return urls[i] < urls[j]
	})
}

func lastPathNumber(rawURL string) (int, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}

	n := 0
	found := false
	cur := 0
	inNum := false
	for _, r := range u.Path {
		if r >= '0' && r <= '9' {
			cur = cur*10 + int(r-'0')
			inNum = true
			continue
		}
		if inNum {
			n = cur
			found = true
			cur = 0
			inNum = false
		}
	}
	if inNum {
		n = cur
		found = true
	}

	return n, found
}
