package extract

import (
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/brogergvhs/storyd/internal/document"
)

// convertSubtree flattens the chosen content subtree into the ordered block
// sequence. Inline formatting inside each block goes through the markdown
// converter; container elements recurse so nested wrappers disappear.
func convertSubtree(root *goquery.Selection) *document.Document {
	conv := md.NewConverter("", true, nil)
	out := &document.Document{}

	walkBlocks(root, conv, out)

	return out
}

func walkBlocks(sel *goquery.Selection, conv *md.Converter, out *document.Document) {
	var inlineRun []*html.Node

	flushInline := func() {
		if len(inlineRun) == 0 {
			return
		}
		text := renderNodes(inlineRun, conv)
		inlineRun = nil
		if text != "" {
			out.Append(document.Paragraph(text))
		}
	}

	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		n := child.Get(0)

		if n.Type == html.TextNode {
			if strings.TrimSpace(n.Data) != "" {
				inlineRun = append(inlineRun, n)
			}
			return
		}
		if n.Type != html.ElementNode {
			return
		}

		tag := strings.ToLower(n.Data)
		switch tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			flushInline()
			level, _ := strconv.Atoi(tag[1:])
			if text := inlineText(child, conv); text != "" {
				out.Append(document.Heading(level, text))
			}
		case "hr":
			flushInline()
			out.Append(document.Rule())
		case "p":
			flushInline()
			if text := inlineText(child, conv); text != "" {
				out.Append(document.Paragraph(text))
			}
		case "div", "section", "article", "main", "aside", "figure":
			flushInline()
			walkBlocks(child, conv, out)
		case "ul", "ol", "blockquote", "pre", "table", "dl":
			flushInline()
			if text := strings.TrimSpace(conv.Convert(child)); text != "" {
				out.Append(document.Paragraph(text))
			}
		case "br":
			inlineRun = append(inlineRun, n)
		default:
			// inline element: part of the current paragraph run
			inlineRun = append(inlineRun, n)
		}
	})

	flushInline()
}

// inlineText renders one block element's inner content as markdown, without
// the block's own markup (the caller decides the block kind).
func inlineText(sel *goquery.Selection, conv *md.Converter) string {
	return strings.TrimSpace(conv.Convert(sel.Contents()))
}

// renderNodes converts a run of loose inline nodes as one paragraph.
func renderNodes(nodes []*html.Node, conv *md.Converter) string {
	wrapper := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: 0}
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(wrapper)

	for _, n := range nodes {
		wrapper.AppendChild(cloneNode(n))
	}

	sel := newSelectionFromNode(doc)
	return strings.TrimSpace(conv.Convert(sel))
}

func cloneNode(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:     n.Type,
		DataAtom: n.DataAtom,
		Data:     n.Data,
		Attr:     append([]html.Attribute(nil), n.Attr...),
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneNode(c))
	}

	return clone
}

func newSelectionFromNode(doc *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(doc).Selection
}
