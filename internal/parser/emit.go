package parser

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`\s+`)

// dialectWriter accumulates dialect lines produced by the format importers.
type dialectWriter struct {
	sb           strings.Builder
	pendingBlank bool
}

func (w *dialectWriter) heading(s string) {
	if s = oneLine(s); s == "" {
		return
	}
	w.blank()
	w.write("# " + s)
}

func (w *dialectWriter) bullet(s string) {
	if s = oneLine(s); s == "" {
		return
	}
	w.write("- " + s)
}

// lines writes each line of a multi-line block separately.
func (w *dialectWriter) lines(s string) {
	for _, l := range strings.Split(s, "\n") {
		if l = oneLine(l); l != "" {
			w.write(l)
		}
	}
}

func (w *dialectWriter) blank() {
	if w.sb.Len() > 0 {
		w.pendingBlank = true
	}
}

func (w *dialectWriter) write(s string) {
	if w.pendingBlank {
		w.sb.WriteByte('\n')
		w.pendingBlank = false
	}
	w.sb.WriteString(s)
	w.sb.WriteByte('\n')
}

func (w *dialectWriter) String() string {
	return w.sb.String()
}

func oneLine(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// emphasize wraps inner text in a marker, moving surrounding whitespace
// outside so the pair stays recognizable.
func emphasize(marker, inner string) string {
	trimmed := strings.TrimSpace(inner)
	if trimmed == "" {
		return inner
	}
	lead := inner[:strings.Index(inner, trimmed)]
	trail := inner[len(lead)+len(trimmed):]
	return lead + marker + trimmed + marker + trail
}
