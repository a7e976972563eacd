package sites

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/atom"

	"github.com/brogergvhs/storyd/internal/discover"
	"github.com/brogergvhs/storyd/internal/extract"
	"github.com/brogergvhs/storyd/internal/transport"
)

// mcstoriesDiscoverer reads title and byline off the index page in addition
// to the default link scrape.
type mcstoriesDiscoverer struct{}

func (mcstoriesDiscoverer) Discover(ctx context.Context, tc *transport.Context, seedURL string) (discover.Listing, error) {
	doc, err := discover.FetchSeed(ctx, tc, seedURL)
	if err != nil {
		return discover.Listing{}, err
	}

	listing := discover.Listing{
		URLs:  discover.Default{}.SelectLinks(doc, seedURL),
		Title: squeeze(doc.Find("h3.title").First().Text()),
	}

	byline := squeeze(doc.Find("h3.byline").First().Text())
	listing.Author = strings.TrimSpace(strings.TrimPrefix(byline, "by "))

	return listing, nil
}

// mcstoriesExtractor normalizes the archive's markup before the default
// heuristic runs: story titles are h3.title, scene breaks are
// span.milestone, and every chapter carries an h3.trailer nav line.
func mcstoriesExtractor() Extractor {
	return extract.Extractor{Preprocess: func(doc *goquery.Document) {
		doc.Find("h3.title").Each(func(_ int, s *goquery.Selection) {
			renameNode(s, "h1", atom.H1)
		})

		doc.Find("h3.trailer").Remove()

		doc.Find("span.milestone").Each(func(_ int, s *goquery.Selection) {
			s.Empty()
			s.RemoveAttr("class")
			renameNode(s, "hr", atom.Hr)
		})

		doc.Find("section.foreword").Each(func(_ int, s *goquery.Selection) {
			renameNode(s, "em", atom.Em)
		})
	}}
}

func renameNode(s *goquery.Selection, tag string, a atom.Atom) {
	n := s.Get(0)
	n.Data = tag
	n.DataAtom = a
}

func squeeze(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
