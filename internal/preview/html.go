// Package preview renders document trees for display: HTML for the live
// preview served by the API, and styled terminal text for the CLI.
package preview

import (
	"bytes"
	"fmt"

	"github.com/dgallion1/cvtree/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML renders the tree as an HTML fragment rooted at an <article>. Every
// element carries a data-path attribute with its structural path, which a
// client can use as a stable key and as the target of edit actions.
func HTML(t *doctree.Tree) (string, error) {
	root := element(atom.Article, "resume")
	if t != nil {
		for i, n := range t.Children {
			if el := htmlNode(doctree.Path{i}, n); el != nil {
				root.AppendChild(el)
			}
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func htmlNode(p doctree.Path, n *doctree.Node) *html.Node {
	var el *html.Node
	switch n.Kind {
	case doctree.KindName:
		el = element(atom.H1, "name")
		appendRuns(el, n)
	case doctree.KindContact:
		el = element(atom.P, "contact")
		appendRuns(el, n)
	case doctree.KindSection:
		el = element(atom.Section, "")
		h := element(atom.H2, "")
		appendRuns(h, n)
		el.AppendChild(h)
		for i, c := range n.Children {
			if child := htmlNode(appendPath(p, i), c); child != nil {
				el.AppendChild(child)
			}
		}
	case doctree.KindBulletList:
		if len(n.Children) == 0 {
			return nil
		}
		el = element(atom.Ul, "")
		for i, item := range n.Children {
			li := htmlItem(n, i, item)
			setAttr(li, "data-path", appendPath(p, i).String())
			el.AppendChild(li)
		}
	case doctree.KindBulletItem:
		el = element(atom.Li, "")
		appendRuns(el, n)
	case doctree.KindJobTitle:
		el = element(atom.P, "job-title")
		appendRuns(el, n)
	default:
		el = element(atom.P, "")
		appendRuns(el, n)
	}
	setAttr(el, "data-path", p.String())
	return el
}

// htmlItem renders item i of list. Job items show the title in bold with the
// subtitle beside it; plain items that belong to a job are marked as details.
func htmlItem(list *doctree.Node, i int, item *doctree.Node) *html.Node {
	if item.Job != nil {
		li := element(atom.Li, "job")
		title := element(atom.Strong, "")
		title.AppendChild(text(item.Job.Title))
		li.AppendChild(title)
		if item.Job.Subtitle != "" {
			li.AppendChild(text(" "))
			sub := element(atom.Span, "subtitle")
			sub.AppendChild(text(item.Job.Subtitle))
			li.AppendChild(sub)
		}
		return li
	}

	class := ""
	if doctree.OwnerOf(list, i) >= 0 {
		class = "detail"
	}
	li := element(atom.Li, class)
	appendRuns(li, item)
	return li
}

func appendRuns(el *html.Node, n *doctree.Node) {
	if len(n.Runs) == 0 {
		el.AppendChild(text(n.Text))
		return
	}
	for _, r := range n.Runs {
		var node *html.Node
		switch {
		case r.Bold:
			node = element(atom.Strong, "")
			node.AppendChild(text(r.Text))
		case r.Italic:
			node = element(atom.Em, "")
			node.AppendChild(text(r.Text))
		default:
			node = text(r.Text)
		}
		el.AppendChild(node)
	}
}

func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		setAttr(n, "class", class)
	}
	return n
}

func setAttr(n *html.Node, key, val string) {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func appendPath(p doctree.Path, i int) doctree.Path {
	return append(append(doctree.Path{}, p...), i)
}
