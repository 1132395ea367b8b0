package preview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/cvtree/internal/doctree"
)

// Styles holds the lipgloss styles used by Terminal.
type Styles struct {
	Name      lipgloss.Style
	Contact   lipgloss.Style
	Section   lipgloss.Style
	Divider   lipgloss.Style
	JobTitle  lipgloss.Style
	JobName   lipgloss.Style
	Subtitle  lipgloss.Style
	Bullet    lipgloss.Style
	Paragraph lipgloss.Style
	Bold      lipgloss.Style
	Italic    lipgloss.Style

	// Width of the section divider rule; 0 disables it.
	Width int
}

// DefaultStyles returns the styles used by `cvtree show`.
func DefaultStyles() *Styles {
	return &Styles{
		Name:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Contact:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Section:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36")),
		Divider:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		JobTitle:  lipgloss.NewStyle().Italic(true),
		JobName:   lipgloss.NewStyle().Bold(true),
		Subtitle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Bullet:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Paragraph: lipgloss.NewStyle(),
		Bold:      lipgloss.NewStyle().Bold(true),
		Italic:    lipgloss.NewStyle().Italic(true),
		Width:     60,
	}
}

// Terminal renders the tree as styled text for a terminal. Nil styles
// select DefaultStyles.
func Terminal(t *doctree.Tree, s *Styles) string {
	if s == nil {
		s = DefaultStyles()
	}
	if t == nil {
		return ""
	}

	var lines []string
	for _, n := range t.Children {
		lines = append(lines, s.node(n)...)
	}
	return strings.Join(lines, "\n")
}

func (s *Styles) node(n *doctree.Node) []string {
	switch n.Kind {
	case doctree.KindName:
		return []string{s.Name.Render(n.PlainText())}
	case doctree.KindContact:
		return []string{s.Contact.Render(n.PlainText())}
	case doctree.KindSection:
		out := []string{"", s.Section.Render(strings.ToUpper(n.PlainText()))}
		if s.Width > 0 {
			out = append(out, s.Divider.Render(strings.Repeat("─", s.Width)))
		}
		for _, c := range n.Children {
			out = append(out, s.node(c)...)
		}
		return out
	case doctree.KindBulletList:
		var out []string
		for i, item := range n.Children {
			out = append(out, s.item(n, i, item))
		}
		return out
	case doctree.KindBulletItem:
		return []string{s.Bullet.Render("•") + " " + s.runs(n, s.Paragraph)}
	case doctree.KindJobTitle:
		return []string{s.runs(n, s.JobTitle)}
	default:
		if n.PlainText() == "" {
			return nil
		}
		return []string{s.runs(n, s.Paragraph)}
	}
}

func (s *Styles) item(list *doctree.Node, i int, item *doctree.Node) string {
	if item.Job != nil {
		line := s.JobName.Render(item.Job.Title)
		if item.Job.Subtitle != "" {
			line += "  " + s.Subtitle.Render(item.Job.Subtitle)
		}
		return line
	}
	indent := ""
	if doctree.OwnerOf(list, i) >= 0 {
		indent = "  "
	}
	return indent + s.Bullet.Render("•") + " " + s.runs(item, s.Paragraph)
}

func (s *Styles) runs(n *doctree.Node, base lipgloss.Style) string {
	if len(n.Runs) == 0 {
		return base.Render(n.Text)
	}
	var sb strings.Builder
	for _, r := range n.Runs {
		switch {
		case r.Bold:
			sb.WriteString(s.Bold.Render(r.Text))
		case r.Italic:
			sb.WriteString(s.Italic.Render(r.Text))
		default:
			sb.WriteString(base.Render(r.Text))
		}
	}
	return sb.String()
}
