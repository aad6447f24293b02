package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docrhythm/internal/markdown"
)

// TextParser handles plain text files. Lines are read through the Markdown
// subset parser, so headings and lists written by hand are kept.
type TextParser struct {
	Marker string
}

func (p *TextParser) Parse(r io.Reader, filename string) (*Article, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	tree := markdown.New(p.Marker).ParseTree(strings.Join(lines, "\n"))
	title := firstHeading(tree)
	if title == "" {
		title = stem(filename)
	}
	return &Article{Title: title, Format: "text", Tree: tree}, nil
}
