// Package serializer emits canonical dialect text for a document tree.
//
// Output re-parses into an equal tree: child order is preserved exactly, a
// blank line precedes every section after the first line, and adjacent
// bullet lists are separated by a blank line so they stay distinct.
package serializer

import (
	"io"
	"strings"

	"github.com/dgallion1/cvtree/internal/doctree"
	"github.com/dgallion1/cvtree/internal/parser"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

type writer struct {
	lines    []string
	lastList bool
}

func (w *writer) line(s string) {
	w.lines = append(w.lines, s)
	w.lastList = false
}

func (w *writer) blank() {
	if len(w.lines) > 0 && w.lines[len(w.lines)-1] != "" {
		w.lines = append(w.lines, "")
	}
}

// Serialize renders the tree as dialect text ending in a single newline.
// An empty tree yields the empty string.
func Serialize(t *doctree.Tree) string {
	if t == nil {
		return ""
	}
	w := &writer{}
	for _, n := range t.Children {
		w.node(n)
	}
	if len(w.lines) == 0 {
		return ""
	}
	return strings.Join(w.lines, "\n") + "\n"
}

// Write serializes t to out.
func Write(out io.Writer, t *doctree.Tree) error {
	_, err := io.WriteString(out, Serialize(t))
	return err
}

func (w *writer) node(n *doctree.Node) {
	switch n.Kind {
	case doctree.KindName:
		w.line(header(Inline(n)))
	case doctree.KindSection:
		w.blank()
		w.line(header(Inline(n)))
		for _, c := range n.Children {
			w.node(c)
		}
	case doctree.KindBulletList:
		if len(n.Children) == 0 {
			return
		}
		if w.lastList {
			w.blank()
		}
		for _, item := range n.Children {
			w.line(BulletLine(item))
		}
		w.lastList = true
	case doctree.KindBulletItem:
		w.line(BulletLine(n))
	default:
		if text := Inline(n); text != "" {
			w.line(text)
		}
	}
}

func header(title string) string {
	if title == "" {
		return "#"
	}
	return "# " + title
}

// BulletLine renders a single bullet item, including its list marker.
func BulletLine(n *doctree.Node) string {
	if n.Job != nil {
		title := "**" + oneLine(n.Job.Title) + "**"
		if sub := oneLine(n.Job.Subtitle); sub != "" {
			return "- " + title + " | " + sub
		}
		return "- " + title + " |"
	}
	if text := Inline(n); text != "" {
		return "- " + text
	}
	return "-"
}

// Inline renders a node's own text with emphasis markers.
func Inline(n *doctree.Node) string {
	if len(n.Runs) > 0 {
		return oneLine(parser.FormatRuns(n.Runs))
	}
	return oneLine(n.Text)
}

func oneLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}
