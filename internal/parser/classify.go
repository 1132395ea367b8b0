package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/cvtree/internal/doctree"
)

// ContactSeparator joins normalized contact fields.
const ContactSeparator = " • "

var (
	headerRegex = regexp.MustCompile(`^(#+)(?:\s+(.*))?$`)
	bulletRegex = regexp.MustCompile(`^[-*•](?:\s+(.*))?$`)
	// Heuristic only: a 4-digit year, an English month name, or an open-ended marker.
	dateRegex = regexp.MustCompile(`(?i)\b(\d{4}|jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|june?|july?|aug(ust)?|sept?(ember)?|oct(ober)?|nov(ember)?|dec(ember)?|present|current)\b`)
)

// Line is one classified input line.
type Line struct {
	Kind  doctree.Kind
	Text  string
	Runs  []doctree.TextRun
	Job   *doctree.Job
	Break bool // blank line: closes any open bullet list
	Num   int  // 1-based source line number
}

// Classifier labels lines with node kinds using ordered heuristics. It tracks
// whether the next non-blank line is the first one and whether the scan is
// still inside the leading contact zone (before the first section).
type Classifier struct {
	seenContent bool
	pastContact bool
}

// Classify labels every line of the input in order.
func Classify(lines []string) []Line {
	c := &Classifier{}
	out := make([]Line, 0, len(lines))
	for i, raw := range lines {
		l := c.Next(raw)
		l.Num = i + 1
		out = append(out, l)
	}
	return out
}

// Next classifies a single line, advancing the classifier state.
func (c *Classifier) Next(raw string) Line {
	line := strings.TrimSpace(raw)
	if line == "" {
		return Line{Break: true}
	}
	first := !c.seenContent
	c.seenContent = true

	if title, ok := headerTitle(line); ok {
		return c.header(title, first)
	}

	body, isBullet := bulletBody(line)
	seps := countSeparators(line)

	if !c.pastContact && !isBullet && seps >= 1 && seps <= 2 {
		if fields := splitFields(line); len(fields) >= 2 {
			return Line{Kind: doctree.KindContact, Text: strings.Join(fields, ContactSeparator)}
		}
	}

	if isBullet {
		return bulletLine(body)
	}

	if seps >= 1 && seps <= 2 && hasDateField(line) {
		return textLine(doctree.KindJobTitle, line)
	}

	if HasEmphasis(line) {
		return Line{Kind: doctree.KindMixed, Runs: ParseSpans(line)}
	}
	return Line{Kind: doctree.KindParagraph, Text: line}
}

func (c *Classifier) header(title string, first bool) Line {
	if first {
		return Line{Kind: doctree.KindName, Text: title}
	}
	c.pastContact = true
	return Line{Kind: doctree.KindSection, Text: title}
}

// headerTitle recognizes the two header syntaxes: a leading '#' run, or a line
// wrapped in a single bold pair with no pair nested inside.
func headerTitle(line string) (string, bool) {
	if m := headerRegex.FindStringSubmatch(line); m != nil {
		title := strings.TrimSpace(m[2])
		if inner, ok := boldWrapped(title); ok {
			title = inner
		}
		return title, true
	}
	if inner, ok := boldWrapped(line); ok {
		return inner, true
	}
	return "", false
}

func boldWrapped(s string) (string, bool) {
	if len(s) <= 2*len(boldMarker) || !strings.HasPrefix(s, boldMarker) || !strings.HasSuffix(s, boldMarker) {
		return "", false
	}
	inner := s[len(boldMarker) : len(s)-len(boldMarker)]
	if strings.Contains(inner, boldMarker) {
		return "", false
	}
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return "", false
	}
	return inner, true
}

func bulletBody(line string) (string, bool) {
	m := bulletRegex.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// bulletLine builds a bullet item. A bullet whose first run is bold and which
// contains a field separator is a job item: the bold prefix is the title and
// the remainder, minus its leading separator, the subtitle.
func bulletLine(body string) Line {
	runs := ParseSpans(body)
	if len(runs) > 0 && runs[0].Bold && strings.TrimSpace(runs[0].Text) != "" && countSeparators(body) > 0 {
		rest := strings.TrimPrefix(body, FormatRuns(runs[:1]))
		return Line{
			Kind: doctree.KindBulletItem,
			Job: &doctree.Job{
				Title:    strings.TrimSpace(runs[0].Text),
				Subtitle: trimLeadingSeparator(rest),
			},
		}
	}
	return textLine(doctree.KindBulletItem, body)
}

func textLine(kind doctree.Kind, text string) Line {
	if HasEmphasis(text) {
		return Line{Kind: kind, Runs: ParseSpans(text)}
	}
	return Line{Kind: kind, Text: text}
}

func trimLeadingSeparator(s string) string {
	s = strings.TrimSpace(s)
	for _, sep := range fieldSeparators {
		if strings.HasPrefix(s, sep) {
			return strings.TrimSpace(strings.TrimPrefix(s, sep))
		}
	}
	return s
}

var fieldSeparators = []string{"|", "•"}

func countSeparators(s string) int {
	n := 0
	for _, sep := range fieldSeparators {
		n += strings.Count(s, sep)
	}
	return n
}

func splitFields(s string) []string {
	s = strings.ReplaceAll(s, "•", "|")
	parts := strings.Split(s, "|")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}

func hasDateField(line string) bool {
	for _, f := range splitFields(line) {
		if dateRegex.MatchString(f) {
			return true
		}
	}
	return false
}
