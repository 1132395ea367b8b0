package doctree

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a document node.
type Kind int

const (
	KindParagraph Kind = iota
	KindName
	KindContact
	KindSection
	KindBulletList
	KindBulletItem
	KindJobTitle
	KindMixed
)

var kindNames = map[Kind]string{
	KindParagraph:  "paragraph",
	KindName:       "name",
	KindContact:    "contact",
	KindSection:    "section",
	KindBulletList: "bullet_list",
	KindBulletItem: "bullet_item",
	KindJobTitle:   "job_title",
	KindMixed:      "mixed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown node kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", string(b))
}

// TextRun is a contiguous styled fragment of inline text.
type TextRun struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

// Job holds the title/subtitle pair of a job bullet item.
type Job struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Tree is the root of a parsed career document.
//
// Trees are immutable once produced: mutations in the mutate package return a
// new Tree and share untouched subtrees with the input, so callers must never
// modify a Tree or any Node reachable from it in place.
type Tree struct {
	Children []*Node `json:"children"`
}

// Node is one element of the document tree.
//
// Text and Runs are mutually exclusive. Job is set only on job bullet items,
// which carry no Text or Runs of their own.
type Node struct {
	Kind     Kind      `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Runs     []TextRun `json:"runs,omitempty"`
	Job      *Job      `json:"job,omitempty"`
	Children []*Node   `json:"children,omitempty"`
}

// IsJob reports whether n is a job bullet item.
func (n *Node) IsJob() bool {
	return n != nil && n.Kind == KindBulletItem && n.Job != nil
}

// HasRuns reports whether the node's text is span-based.
func (n *Node) HasRuns() bool {
	return n != nil && len(n.Runs) > 0
}

// PlainText returns the node's text with styling removed.
func (n *Node) PlainText() string {
	if n == nil {
		return ""
	}
	if n.Job != nil {
		if n.Job.Subtitle == "" {
			return n.Job.Title
		}
		return n.Job.Title + " | " + n.Job.Subtitle
	}
	if len(n.Runs) > 0 {
		return RunsText(n.Runs)
	}
	return n.Text
}

// RunsText concatenates the text of runs without markers.
func RunsText(runs []TextRun) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Sections returns the section nodes in document order.
func (t *Tree) Sections() []*Node {
	if t == nil {
		return nil
	}
	var out []*Node
	for _, n := range t.Children {
		if n.Kind == KindSection {
			out = append(out, n)
		}
	}
	return out
}

// SectionIndex maps the ordinal of a section (0 = first section) to its
// position among the root children. It returns -1 when out of range.
func (t *Tree) SectionIndex(ordinal int) int {
	if t == nil || ordinal < 0 {
		return -1
	}
	seen := 0
	for i, n := range t.Children {
		if n.Kind != KindSection {
			continue
		}
		if seen == ordinal {
			return i
		}
		seen++
	}
	return -1
}

// Name returns the document's name node, or nil.
func (t *Tree) Name() *Node {
	if t == nil || len(t.Children) == 0 {
		return nil
	}
	if first := t.Children[0]; first.Kind == KindName {
		return first
	}
	return nil
}

// OwnerOf returns the index of the job item that the item at position i of a
// bullet list belongs to, or -1. The dialect has no real nesting: plain items
// following a job item in the same list are attributed to it.
func OwnerOf(list *Node, i int) int {
	if list == nil || i < 0 || i >= len(list.Children) {
		return -1
	}
	if list.Children[i].IsJob() {
		return -1
	}
	for j := i - 1; j >= 0; j-- {
		if list.Children[j].IsJob() {
			return j
		}
	}
	return -1
}
