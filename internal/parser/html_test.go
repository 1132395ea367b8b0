package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/cvtree/internal/doctree"
)

func TestHTMLToDialect(t *testing.T) {
	input := `<html><head><title>cv</title><style>p{}</style></head><body>
<h1>Jane Doe</h1>
<p>jane@example.com | 555-0100</p>
<h2>Experience</h2>
<ul>
  <li><strong>Acme Corp</strong> | 2020-2023
    <ul><li>Shipped <em>three</em> releases</li></ul>
  </li>
</ul>
<script>alert(1)</script>
</body></html>`

	want := `# Jane Doe
jane@example.com | 555-0100

# Experience
- **Acme Corp** | 2020-2023
- Shipped *three* releases
`
	got, err := HTMLToDialect(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("unexpected dialect:\n--- want\n%s\n--- got\n%s", want, got)
	}
}

func TestHTMLParser_Tree(t *testing.T) {
	input := `<body><h1>Jane</h1><h2>Skills</h2><p>Go<br>Rust</p></body>`
	p := &HTMLParser{}
	tree, err := p.Parse(strings.NewReader(input), "cv.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	skills := tree.At(doctree.Path{1})
	if skills == nil || skills.Kind != doctree.KindSection {
		t.Fatalf("expected skills section, got %+v", skills)
	}
	if len(skills.Children) != 2 {
		t.Fatalf("expected br to split into 2 paragraphs, got %d", len(skills.Children))
	}
	if skills.Children[1].Text != "Rust" {
		t.Errorf("expected %q, got %q", "Rust", skills.Children[1].Text)
	}
}
