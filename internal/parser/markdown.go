package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/cvtree/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser imports general Markdown using goldmark. Constructs outside
// the dialect are flattened: nested lists become flat bullets, links and
// images keep only their text, code blocks become plain lines.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(MarkdownToDialect(src)), nil
}

// MarkdownToDialect converts Markdown source into dialect text.
func MarkdownToDialect(src []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var w dialectWriter
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		writeMarkdownBlock(&w, n, src)
	}
	return w.String()
}

func writeMarkdownBlock(w *dialectWriter, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(markdownInline(node, src, false))
	case *ast.List:
		writeMarkdownList(w, node, src)
		w.blank()
	case *ast.Paragraph, *ast.TextBlock:
		w.lines(markdownInline(node, src, false))
		w.blank()
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			w.lines(string(line.Value(src)))
		}
		w.blank()
	case *ast.ThematicBreak:
		w.blank()
	case *ast.HTMLBlock:
		// Raw HTML carries no dialect meaning.
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			writeMarkdownBlock(w, c, src)
		}
	}
}

func writeMarkdownList(w *dialectWriter, list *ast.List, src []byte) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				writeMarkdownList(w, nested, src)
				continue
			}
			w.bullet(markdownInline(c, src, false))
		}
	}
}

// markdownInline renders inline content with dialect emphasis markers. Inside
// an emphasis span nested emphasis is dropped, as the dialect has one level.
func markdownInline(n ast.Node, src []byte, inEmphasis bool) string {
	var sb strings.Builder
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			sb.Write(line.Value(src))
		}
		return sb.String()
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.Emphasis:
			inner := markdownInline(node, src, true)
			if inEmphasis {
				sb.WriteString(inner)
				continue
			}
			marker := italicMarker
			if node.Level >= 2 {
				marker = boldMarker
			}
			sb.WriteString(emphasize(marker, inner))
		case *ast.AutoLink:
			sb.Write(node.Label(src))
		case *ast.RawHTML:
		default:
			sb.WriteString(markdownInline(c, src, inEmphasis))
		}
	}
	return sb.String()
}
