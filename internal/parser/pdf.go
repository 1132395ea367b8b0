package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/cvtree/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser imports PDF files. It tries the Go library first, then falls
// back to pdftotext if enabled and available. Extracted lines are classified
// as dialect text; bullet glyphs and separators survive extraction.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "cvtree-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if (err != nil || strings.TrimSpace(text) == "") && p.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var w dialectWriter
	for _, page := range strings.Split(text, "\f") {
		for _, line := range pageLines(page) {
			if line == "" {
				w.blank()
				continue
			}
			w.lines(line)
		}
		w.blank()
	}
	return Parse(w.String()), nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

var (
	// "3", "- 3 -", "Page 3", "Page 3 of 5", "3/5"
	pageNumberRegex = regexp.MustCompile(`(?i)^(?:-\s*)?(?:page\s+)?\d{1,3}(?:\s*(?:of|/)\s*\d{1,3})?(?:\s*-)?$`)
	hyphenBreakRegex = regexp.MustCompile(`\p{L}-$`)
)

// pageLines returns the text lines of one extracted page with page-number
// furniture dropped and words hyphenated across a line break rejoined.
// Blank lines are kept as "" so paragraph and list breaks survive.
func pageLines(page string) []string {
	var out []string
	for _, raw := range SplitLines(page) {
		line := strings.TrimSpace(raw)
		if pageNumberRegex.MatchString(line) {
			continue
		}
		if n := len(out); n > 0 && line != "" && hyphenBreakRegex.MatchString(out[n-1]) && startsLower(line) {
			prev := out[n-1]
			out[n-1] = prev[:len(prev)-1] + line
			continue
		}
		out = append(out, line)
	}
	return out
}

func startsLower(s string) bool {
	for _, r := range s {
		return unicode.IsLower(r)
	}
	return false
}
