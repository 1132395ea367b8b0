package parser

import (
	"strings"

	"github.com/dgallion1/cvtree/internal/doctree"
)

const (
	boldMarker   = "**"
	italicMarker = "*"
)

// ParseSpans splits a line into alternating plain and emphasized runs.
//
// "**x**" yields a bold run and "*x*" an italic run. Only one level of
// emphasis is recognized: markers inside an open run are literal text, as
// are markers without a partner. Empty runs are dropped and adjacent plain
// runs are merged.
func ParseSpans(s string) []doctree.TextRun {
	var runs []doctree.TextRun
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			runs = append(runs, doctree.TextRun{Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], boldMarker) {
			if end := strings.Index(s[i+2:], boldMarker); end > 0 {
				flush()
				runs = append(runs, doctree.TextRun{Text: s[i+2 : i+2+end], Bold: true})
				i += 2 + end + 2
				continue
			}
			plain.WriteString(boldMarker)
			i += 2
			continue
		}
		if s[i] == '*' {
			if end := closingItalic(s, i+1); end > i+1 {
				flush()
				runs = append(runs, doctree.TextRun{Text: s[i+1 : end], Italic: true})
				i = end + 1
				continue
			}
		}
		plain.WriteByte(s[i])
		i++
	}
	flush()
	return runs
}

// closingItalic finds the single '*' closing an italic run opened just before
// start. Double markers never close an italic run. It returns -1 when none.
func closingItalic(s string, start int) int {
	if start >= len(s) || s[start] == ' ' {
		return -1
	}
	for j := start; j < len(s); j++ {
		if s[j] != '*' {
			continue
		}
		if j+1 < len(s) && s[j+1] == '*' {
			return -1
		}
		if s[j-1] == ' ' {
			return -1
		}
		return j
	}
	return -1
}

// HasEmphasis reports whether s contains at least one emphasis pair.
func HasEmphasis(s string) bool {
	if !strings.Contains(s, italicMarker) {
		return false
	}
	for _, r := range ParseSpans(s) {
		if r.Bold || r.Italic {
			return true
		}
	}
	return false
}

// FormatRuns renders runs back into dialect text.
func FormatRuns(runs []doctree.TextRun) string {
	var sb strings.Builder
	for _, r := range runs {
		switch {
		case r.Text == "":
		case r.Bold:
			sb.WriteString(boldMarker + r.Text + boldMarker)
		case r.Italic:
			sb.WriteString(italicMarker + r.Text + italicMarker)
		default:
			sb.WriteString(r.Text)
		}
	}
	return sb.String()
}
