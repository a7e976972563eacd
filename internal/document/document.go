package document

import "strings"

type BlockKind int

const (
	KindHeading BlockKind = iota
	KindParagraph
	KindRule
)

// Block is one block-level element of a normalized chapter. Text holds
// markdown with inline formatting already resolved.
type Block struct {
	Kind  BlockKind
	Level int
	Text  string
}

func Heading(level int, text string) Block {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return Block{Kind: KindHeading, Level: level, Text: text}
}

func Paragraph(text string) Block {
	return Block{Kind: KindParagraph, Text: text}
}

func Rule() Block {
	return Block{Kind: KindRule}
}

// Document is the ordered block sequence for one chapter.
type Document struct {
	Blocks []Block
}

func (d *Document) Append(b Block) {
	d.Blocks = append(d.Blocks, b)
}

func (d *Document) Empty() bool {
	for _, b := range d.Blocks {
		if b.Kind == KindRule || strings.TrimSpace(b.Text) != "" {
			return false
		}
	}
	return true
}

// Markdown renders the document in its canonical text form. The output is
// byte-stable: identical block sequences always render identically.
func (d *Document) Markdown() string {
	var sb strings.Builder

	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteString("\n")
		}

		switch b.Kind {
		case KindHeading:
			sb.WriteString(strings.Repeat("#", b.Level))
			sb.WriteString(" ")
			sb.WriteString(b.Text)
			sb.WriteString("\n")
		case KindRule:
			sb.WriteString("---\n")
		default:
			sb.WriteString(b.Text)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
