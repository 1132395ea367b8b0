package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/cvtree/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser imports HTML documents.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	raw, err := HTMLToDialect(r)
	if err != nil {
		return nil, err
	}
	return Parse(raw), nil
}

// HTMLToDialect converts an HTML document into dialect text. Headings become
// header lines, list items bullets, and b/strong or i/em emphasis markers.
func HTMLToDialect(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var w dialectWriter
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			w.lines(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			if headingLevel(n.Data) > 0 {
				w.heading(htmlInline(n, false))
				return
			}

			switch n.Data {
			case "script", "style", "nav", "head", "template":
				return
			case "li":
				w.bullet(htmlInline(n, false))
				// Nested lists flatten into the same bullet run.
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
						walk(c)
					}
				}
				return
			case "ul", "ol":
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				w.blank()
				return
			case "p", "td", "th", "blockquote", "dt", "dd", "address", "pre":
				w.lines(htmlInline(n, false))
				if n.Data == "p" || n.Data == "blockquote" || n.Data == "pre" {
					w.blank()
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return w.String(), nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// htmlInline renders the inline text of n with dialect emphasis markers,
// skipping nested lists.
func htmlInline(n *html.Node, inEmphasis bool) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			buf.WriteString(spaceRun.ReplaceAllString(c.Data, " "))
		case html.ElementNode:
			switch c.Data {
			case "ul", "ol", "script", "style":
				continue
			case "br":
				buf.WriteByte('\n')
				continue
			case "b", "strong", "i", "em":
				inner := htmlInline(c, true)
				if inEmphasis {
					buf.WriteString(inner)
					continue
				}
				marker := italicMarker
				if c.Data == "b" || c.Data == "strong" {
					marker = boldMarker
				}
				buf.WriteString(emphasize(marker, inner))
				continue
			}
			buf.WriteString(htmlInline(c, inEmphasis))
		}
	}
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
