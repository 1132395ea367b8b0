package parser

import (
	"strings"

	"github.com/dgallion1/cvtree/internal/doctree"
)

// Build assembles classified lines into a tree. Consecutive bullet items are
// coalesced into one list; a blank line, a section, or any other node closes
// the open list. Section content is flat up to the next section.
func Build(lines []Line) *doctree.Tree {
	tree := &doctree.Tree{}
	var section *doctree.Node
	var list *doctree.Node

	appendChild := func(n *doctree.Node) {
		if section != nil {
			section.Children = append(section.Children, n)
			return
		}
		tree.Children = append(tree.Children, n)
	}

	for _, l := range lines {
		if l.Break {
			list = nil
			continue
		}

		switch l.Kind {
		case doctree.KindSection:
			list = nil
			section = &doctree.Node{Kind: doctree.KindSection, Text: l.Text}
			tree.Children = append(tree.Children, section)

		case doctree.KindBulletItem:
			if list == nil {
				list = &doctree.Node{Kind: doctree.KindBulletList}
				appendChild(list)
			}
			list.Children = append(list.Children, lineNode(l))

		default:
			list = nil
			appendChild(lineNode(l))
		}
	}
	return tree
}

func lineNode(l Line) *doctree.Node {
	n := &doctree.Node{Kind: l.Kind, Text: l.Text, Runs: l.Runs}
	if l.Job != nil {
		job := *l.Job
		n.Job = &job
	}
	return n
}

// Parse turns raw dialect text into a tree. It never fails: lines that match
// no construct degrade to paragraphs.
func Parse(raw string) *doctree.Tree {
	return Build(Classify(SplitLines(raw)))
}

// SplitLines splits raw text on line breaks, accepting CRLF and CR endings.
func SplitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
