// Package mutate implements path-addressed edits over document trees.
//
// Every function is total and pure: indices that no longer address anything
// return the input tree unchanged, and a successful edit returns a new tree
// that shares every untouched subtree with its input. Inputs are never
// modified, so earlier snapshots stay valid for other readers.
package mutate

import (
	"github.com/dgallion1/cvtree/internal/doctree"
	"github.com/dgallion1/cvtree/internal/parser"
)

// AtEnd selects the end of a sequence for insertions.
const AtEnd = -1

// Value is replacement content for Update. A value with Runs is styled;
// otherwise Text is used. Subtitle applies to job bullet items only.
type Value struct {
	Text     string            `json:"text,omitempty"`
	Runs     []doctree.TextRun `json:"runs,omitempty"`
	Subtitle string            `json:"subtitle,omitempty"`
}

// Plain returns an unstyled value.
func Plain(s string) Value {
	return Value{Text: s}
}

// Styled returns a run-based value.
func Styled(runs ...doctree.TextRun) Value {
	return Value{Runs: runs}
}

func (v Value) styled() bool {
	return len(v.Runs) > 0
}

func (v Value) plainText() string {
	if v.styled() {
		return doctree.RunsText(v.Runs)
	}
	return v.Text
}

// Update replaces the content of the node at p without changing its kind.
//
// A plain value on a run-based node collapses it to a single unstyled run; a
// styled value on a plain node switches it to runs. Header and contact nodes
// keep plain text, so styled values are stored with their emphasis markers.
// Job items take their title from the value text and their subtitle from
// Value.Subtitle. Bullet lists carry no content of their own and are left
// unchanged.
func Update(t *doctree.Tree, p doctree.Path, v Value) *doctree.Tree {
	n := t.At(p)
	if n == nil || n.Kind == doctree.KindBulletList {
		return t
	}
	return edit(t, p, func(n *doctree.Node) *doctree.Node {
		cp := shallowCopy(n)
		switch {
		case n.Job != nil:
			cp.Job = &doctree.Job{Title: v.plainText(), Subtitle: v.Subtitle}
		case n.Kind == doctree.KindName || n.Kind == doctree.KindSection || n.Kind == doctree.KindContact:
			cp.Runs = nil
			cp.Text = v.Text
			if v.styled() {
				cp.Text = parser.FormatRuns(v.Runs)
			}
		case v.styled():
			cp.Text = ""
			cp.Runs = compactRuns(v.Runs)
		case n.HasRuns():
			cp.Text = ""
			cp.Runs = nil
			if v.Text != "" {
				cp.Runs = []doctree.TextRun{{Text: v.Text}}
			}
		default:
			cp.Runs = nil
			cp.Text = v.Text
		}
		return cp
	})
}

// AddBullet inserts a new plain bullet item into the section's bullets at
// position (AtEnd appends). Bullets are addressed across all of the section's
// lists in document order; a section without a list gets one appended.
func AddBullet(t *doctree.Tree, section, position int, text string) *doctree.Tree {
	return insertBullet(t, section, position, &doctree.Node{Kind: doctree.KindBulletItem, Text: text})
}

// RemoveBullet deletes a bullet item. Removing the last item of a list
// deletes the list; the enclosing section stays.
func RemoveBullet(t *doctree.Tree, section, bullet int) *doctree.Tree {
	si := t.SectionIndex(section)
	if si < 0 {
		return t
	}
	refs := bulletRefs(t.Children[si])
	if bullet < 0 || bullet >= len(refs) {
		return t
	}
	r := refs[bullet]
	return edit(t, doctree.Path{si, r.child, r.item}, func(*doctree.Node) *doctree.Node { return nil })
}

// MoveBullet relocates the bullet at from so that it ends up at position to,
// clamping to into the valid range.
func MoveBullet(t *doctree.Tree, section, from, to int) *doctree.Tree {
	si := t.SectionIndex(section)
	if si < 0 {
		return t
	}
	sec := t.Children[si]
	refs := bulletRefs(sec)
	if from < 0 || from >= len(refs) {
		return t
	}
	to = min(max(to, 0), len(refs)-1)
	if from == to {
		return t
	}
	r := refs[from]
	item := sec.Children[r.child].Children[r.item]
	return insertBullet(RemoveBullet(t, section, from), section, to, item)
}

// AddSection inserts a new empty section before the section with ordinal
// position (AtEnd appends after the last root child).
func AddSection(t *doctree.Tree, position int, title string) *doctree.Tree {
	count := len(t.Sections())
	if position == AtEnd {
		position = count
	}
	if position < 0 || position > count {
		return t
	}
	at := len(t.Children)
	if position < count {
		at = t.SectionIndex(position)
	}
	sec := &doctree.Node{Kind: doctree.KindSection, Text: title}
	return &doctree.Tree{Children: insertAt(t.Children, at, sec)}
}

// RemoveSection deletes a section and everything in it.
func RemoveSection(t *doctree.Tree, section int) *doctree.Tree {
	si := t.SectionIndex(section)
	if si < 0 {
		return t
	}
	return edit(t, doctree.Path{si}, func(*doctree.Node) *doctree.Node { return nil })
}

// MoveSection reorders sections, clamping to into range. Root nodes that are
// not sections keep their positions.
func MoveSection(t *doctree.Tree, from, to int) *doctree.Tree {
	var slots []int
	for i, n := range t.Children {
		if n.Kind == doctree.KindSection {
			slots = append(slots, i)
		}
	}
	if from < 0 || from >= len(slots) {
		return t
	}
	to = min(max(to, 0), len(slots)-1)
	if from == to {
		return t
	}

	order := make([]*doctree.Node, 0, len(slots))
	for _, i := range slots {
		order = append(order, t.Children[i])
	}
	moved := order[from]
	order = append(order[:from], order[from+1:]...)
	order = insertAt(order, to, moved)

	children := append([]*doctree.Node(nil), t.Children...)
	for k, i := range slots {
		children[i] = order[k]
	}
	return &doctree.Tree{Children: children}
}

// RemoveNode deletes the node at p. A bullet list emptied by the removal is
// deleted as well.
func RemoveNode(t *doctree.Tree, p doctree.Path) *doctree.Tree {
	if t.At(p) == nil {
		return t
	}
	return edit(t, p, func(*doctree.Node) *doctree.Node { return nil })
}

type bulletRef struct {
	child int // index of the bullet list among the section's children
	item  int // index of the item within that list
}

func bulletRefs(sec *doctree.Node) []bulletRef {
	var refs []bulletRef
	for ci, c := range sec.Children {
		if c.Kind != doctree.KindBulletList {
			continue
		}
		for ii := range c.Children {
			refs = append(refs, bulletRef{child: ci, item: ii})
		}
	}
	return refs
}

func insertBullet(t *doctree.Tree, section, position int, item *doctree.Node) *doctree.Tree {
	si := t.SectionIndex(section)
	if si < 0 {
		return t
	}
	sec := t.Children[si]
	refs := bulletRefs(sec)
	if position == AtEnd {
		position = len(refs)
	}
	if position < 0 || position > len(refs) {
		return t
	}

	if len(refs) == 0 {
		list := &doctree.Node{Kind: doctree.KindBulletList, Children: []*doctree.Node{item}}
		return edit(t, doctree.Path{si}, func(n *doctree.Node) *doctree.Node {
			cp := shallowCopy(n)
			cp.Children = insertAt(n.Children, len(n.Children), list)
			return cp
		})
	}

	var r bulletRef
	if position == len(refs) {
		last := refs[len(refs)-1]
		r = bulletRef{child: last.child, item: last.item + 1}
	} else {
		r = refs[position]
	}
	return edit(t, doctree.Path{si, r.child}, func(list *doctree.Node) *doctree.Node {
		cp := shallowCopy(list)
		cp.Children = insertAt(list.Children, r.item, item)
		return cp
	})
}

// edit returns a copy of t in which the node at p is replaced by fn's result,
// copying only the nodes along the path. A nil result deletes the node, and
// a bullet list left empty by the deletion is deleted too.
func edit(t *doctree.Tree, p doctree.Path, fn func(*doctree.Node) *doctree.Node) *doctree.Tree {
	if len(p) == 0 {
		return t
	}
	children, ok := editNodes(t.Children, p, fn)
	if !ok {
		return t
	}
	return &doctree.Tree{Children: children}
}

func editNodes(nodes []*doctree.Node, p doctree.Path, fn func(*doctree.Node) *doctree.Node) ([]*doctree.Node, bool) {
	idx := p[0]
	if idx < 0 || idx >= len(nodes) {
		return nodes, false
	}

	var repl *doctree.Node
	if len(p) == 1 {
		repl = fn(nodes[idx])
	} else {
		kids, ok := editNodes(nodes[idx].Children, p[1:], fn)
		if !ok {
			return nodes, false
		}
		repl = shallowCopy(nodes[idx])
		repl.Children = kids
		if repl.Kind == doctree.KindBulletList && len(kids) == 0 {
			repl = nil
		}
	}

	out := make([]*doctree.Node, 0, len(nodes))
	out = append(out, nodes[:idx]...)
	if repl != nil {
		out = append(out, repl)
	}
	out = append(out, nodes[idx+1:]...)
	return out, true
}

func shallowCopy(n *doctree.Node) *doctree.Node {
	cp := *n
	return &cp
}

// insertAt returns a new slice with n inserted at i.
func insertAt(nodes []*doctree.Node, i int, n *doctree.Node) []*doctree.Node {
	out := make([]*doctree.Node, 0, len(nodes)+1)
	out = append(out, nodes[:i]...)
	out = append(out, n)
	out = append(out, nodes[i:]...)
	return out
}

func compactRuns(runs []doctree.TextRun) []doctree.TextRun {
	out := make([]doctree.TextRun, 0, len(runs))
	for _, r := range runs {
		if r.Text != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
