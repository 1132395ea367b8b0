package doctree

import (
	"fmt"
	"strconv"
	"strings"
)

// Path locates a node by child indices from the root. A node's identity is
// its position in the tree.
type Path []int

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// ParsePath parses the "/"-separated form produced by Path.String.
func ParsePath(s string) (Path, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, "/")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse path %q: %w", s, err)
		}
		p = append(p, n)
	}
	return p, nil
}

// At returns the node addressed by p, or nil when the path no longer exists.
func (t *Tree) At(p Path) *Node {
	if t == nil || len(p) == 0 {
		return nil
	}
	children := t.Children
	var n *Node
	for _, idx := range p {
		if idx < 0 || idx >= len(children) {
			return nil
		}
		n = children[idx]
		children = n.Children
	}
	return n
}

// Walk visits every node depth-first with its path. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(fn func(p Path, n *Node) bool) {
	if t == nil {
		return
	}
	var walk func(prefix Path, nodes []*Node)
	walk = func(prefix Path, nodes []*Node) {
		for i, n := range nodes {
			p := append(append(Path{}, prefix...), i)
			if fn(p, n) {
				walk(p, n.Children)
			}
		}
	}
	walk(nil, t.Children)
}

// Equal reports whether two trees are structurally equal. Nil and empty
// slices compare equal.
func Equal(a, b *Tree) bool {
	if a == nil || b == nil {
		return a == b || (a == nil && len(b.Children) == 0) || (b == nil && len(a.Children) == 0)
	}
	return nodesEqual(a.Children, b.Children)
}

// NodeEqual reports whether two nodes are structurally equal.
func NodeEqual(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Text != b.Text {
		return false
	}
	if (a.Job == nil) != (b.Job == nil) {
		return false
	}
	if a.Job != nil && *a.Job != *b.Job {
		return false
	}
	if len(a.Runs) != len(b.Runs) {
		return false
	}
	for i := range a.Runs {
		if a.Runs[i] != b.Runs[i] {
			return false
		}
	}
	return nodesEqual(a.Children, b.Children)
}

func nodesEqual(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !NodeEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	return &Tree{Children: cloneNodes(t.Children)}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Text: n.Text}
	if n.Runs != nil {
		c.Runs = append([]TextRun(nil), n.Runs...)
	}
	if n.Job != nil {
		job := *n.Job
		c.Job = &job
	}
	c.Children = cloneNodes(n.Children)
	return c
}

func cloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// Validate checks the structural invariants of the tree.
func (t *Tree) Validate() error {
	if t == nil {
		return nil
	}
	for i, n := range t.Children {
		switch n.Kind {
		case KindName:
			if i != 0 {
				return fmt.Errorf("name node at root position %d", i)
			}
		case KindBulletItem:
			return fmt.Errorf("bare bullet item at root position %d", i)
		}
		if err := validateNode(Path{i}, n); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(p Path, n *Node) error {
	if n.Text != "" && len(n.Runs) > 0 {
		return fmt.Errorf("node %s has both text and runs", p)
	}
	if n.Job != nil && n.Kind != KindBulletItem {
		return fmt.Errorf("node %s of kind %s carries job fields", p, n.Kind)
	}
	switch n.Kind {
	case KindBulletList:
		if len(n.Children) == 0 {
			return fmt.Errorf("empty bullet list at %s", p)
		}
		for i, c := range n.Children {
			if c.Kind != KindBulletItem {
				return fmt.Errorf("bullet list %s holds %s at %d", p, c.Kind, i)
			}
		}
	case KindSection:
		for i, c := range n.Children {
			switch c.Kind {
			case KindSection, KindName:
				return fmt.Errorf("section %s holds %s at %d", p, c.Kind, i)
			case KindBulletItem:
				return fmt.Errorf("bare bullet item in section %s at %d", p, i)
			}
		}
	default:
		if len(n.Children) > 0 {
			return fmt.Errorf("leaf node %s of kind %s has children", p, n.Kind)
		}
	}
	for i, c := range n.Children {
		if err := validateNode(append(append(Path{}, p...), i), c); err != nil {
			return err
		}
	}
	return nil
}
