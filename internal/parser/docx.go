package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/cvtree/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser imports .docx files. Heading styles become header lines, list
// styles bullets, and bold or italic runs emphasis markers.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "cvtree-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var w dialectWriter
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		switch {
		case strings.TrimSpace(text) == "":
			w.blank()
		case docxHeadingLevel(para) > 0:
			w.heading(text)
		case docxIsListItem(para):
			w.bullet(text)
		default:
			w.lines(text)
		}
	}
	return Parse(w.String()), nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
}

func docxHeadingLevel(para *docx.Paragraph) int {
	style := docxStyle(para)
	switch style {
	case "title":
		return 1
	case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
		return int(style[len(style)-1] - '0')
	}
	return 0
}

func docxIsListItem(para *docx.Paragraph) bool {
	style := docxStyle(para)
	return strings.HasPrefix(style, "list")
}

// docxParagraphText joins the paragraph's runs, wrapping bold runs in bold
// markers and italic runs in italic markers.
func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var text strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				text.WriteString(t.Text)
			}
		}
		switch {
		case run.RunProperties != nil && run.RunProperties.Bold != nil:
			buf.WriteString(emphasize(boldMarker, text.String()))
		case run.RunProperties != nil && run.RunProperties.Italic != nil:
			buf.WriteString(emphasize(italicMarker, text.String()))
		default:
			buf.WriteString(text.String())
		}
	}
	return strings.ReplaceAll(buf.String(), boldMarker+boldMarker, "")
}
