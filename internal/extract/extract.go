// Package extract isolates the narrative content of a raw chapter page and
// converts it into the normalized block document. The heuristic is fully
// deterministic: identical markup and strategy always produce identical
// output.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/brogergvhs/storyd/internal/document"
)

// ExtractionError means no plausible content root exists in the markup.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "extract: " + e.Reason
}

// chromeSelector matches boilerplate stripped before any scoring.
const chromeSelector = "script, style, nav, header, footer, " +
	`[role="navigation"], [role="banner"], [role="contentinfo"]`

// itemtype values treated as article-semantic containers.
var articleKeywords = []string{"article", "blogposting", "newsarticle", "creativework"}

const headingWeight = 1000

// Extractor is the default content extraction strategy. Preprocess, when
// set, may rewrite the parse tree before the heuristic runs; site
// strategies use it to normalize site-specific markup.
type Extractor struct {
	Preprocess func(doc *goquery.Document)
}

type candidate struct {
	sel   *goquery.Selection
	score int
	depth int
	order int
}

func (x Extractor) Extract(markup []byte) (*document.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, &ExtractionError{Reason: fmt.Sprintf("parse: %v", err)}
	}

	if x.Preprocess != nil {
		x.Preprocess(doc)
	}

	doc.Find(chromeSelector).Remove()

	root, err := contentRoot(doc)
	if err != nil {
		return nil, err
	}

	out := convertSubtree(root)
	if out.Empty() {
		return nil, &ExtractionError{Reason: "content root has no text"}
	}

	return out, nil
}

// contentRoot picks the best candidate from the first non-empty tier:
// main landmark, then role=main, then article-semantic containers, then
// parents of heading elements. Highest score wins; ties go to the
// shallowest candidate, then the first in document order.
func contentRoot(doc *goquery.Document) (*goquery.Selection, error) {
	order := documentOrder(doc)

	tiers := [][]*goquery.Selection{
		collect(doc.Find("main")),
		collect(roleMain(doc)),
		append(collect(doc.Find("article")), collect(articleLike(doc))...),
		collect(headingParents(doc)),
	}

	for _, tier := range tiers {
		if best := pickBest(tier, order); best != nil {
			return best, nil
		}
	}

	body := doc.Find("body")
	if body.Length() > 0 && visibleTextLen(body.First()) > 0 {
		return body.First(), nil
	}

	return nil, &ExtractionError{Reason: "no plausible content root"}
}

func collect(sel *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

func roleMain(doc *goquery.Document) *goquery.Selection {
	return doc.Find("[role]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		role, _ := s.Attr("role")
		return strings.EqualFold(strings.TrimSpace(role), "main")
	})
}

func articleLike(doc *goquery.Document) *goquery.Selection {
	return doc.Find("[itemtype]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		itemtype, _ := s.Attr("itemtype")
		itemtype = strings.ToLower(itemtype)
		for _, kw := range articleKeywords {
			if strings.Contains(itemtype, kw) {
				return true
			}
		}
		return false
	})
}

// headingParents yields the deepest subtree around each h1/h2: the heading's
// parent element. Duplicates collapse during scoring via document order.
func headingParents(doc *goquery.Document) *goquery.Selection {
	seen := map[*html.Node]bool{}
	parents := doc.Find("h1, h2").Parent().FilterFunction(func(_ int, s *goquery.Selection) bool {
		n := s.Get(0)
		if seen[n] {
			return false
		}
		seen[n] = true
		return true
	})

	return parents
}

func pickBest(tier []*goquery.Selection, order map[*html.Node]int) *goquery.Selection {
	var best *candidate

	for _, sel := range tier {
		if sel.Length() == 0 {
			continue
		}

		text := visibleTextLen(sel)
		if text == 0 {
			continue
		}

		c := &candidate{
			sel:   sel,
			score: headingWeight*sel.Find("h1, h2, h3, h4, h5, h6").Length() + text,
			depth: nodeDepth(sel),
			order: order[sel.Get(0)],
		}

		if best == nil || c.beats(best) {
			best = c
		}
	}

	if best == nil {
		return nil
	}

	return best.sel
}

func (c *candidate) beats(other *candidate) bool {
	if c.score != other.score {
		return c.score > other.score
	}
	if c.depth != other.depth {
		return c.depth < other.depth
	}
	return c.order < other.order
}

func visibleTextLen(sel *goquery.Selection) int {
	return len(strings.Join(strings.Fields(sel.Text()), " "))
}

func nodeDepth(sel *goquery.Selection) int {
	depth := 0
	for n := sel.Get(0); n.Parent != nil; n = n.Parent {
		depth++
	}
	return depth
}

// documentOrder assigns each element its position in a pre-order walk, so
// tie-breaks never depend on selector evaluation order.
func documentOrder(doc *goquery.Document) map[*html.Node]int {
	order := map[*html.Node]int{}
	i := 0
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		order[s.Get(0)] = i
		i++
	})
	return order
}
