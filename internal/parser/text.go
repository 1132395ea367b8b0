package parser

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dgallion1/cvtree/internal/doctree"
)

// DialectParser reads files already written in the document dialect.
type DialectParser struct{}

func (p *DialectParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	c := &Classifier{}
	var lines []Line
	for n := 1; scanner.Scan(); n++ {
		l := c.Next(scanner.Text())
		l.Num = n
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return Build(lines), nil
}
