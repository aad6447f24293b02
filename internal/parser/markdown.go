package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/dgallion1/docrhythm/internal/markdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown articles with optional front matter.
type MarkdownParser struct {
	Marker string
}

type frontMatter struct {
	Title                 string  `yaml:"title" toml:"title" json:"title"`
	SentencesPerParagraph *int    `yaml:"sentences_per_paragraph" toml:"sentences_per_paragraph" json:"sentences_per_paragraph"`
	Reflow                *bool   `yaml:"reflow" toml:"reflow" json:"reflow"`
	Disclosure            *string `yaml:"disclosure" toml:"disclosure" json:"disclosure"`
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Article, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	a := &Article{
		Title:  strings.TrimSpace(meta.Title),
		Format: "markdown",
		Tree:   markdown.New(p.Marker).ParseTree(string(body)),
		Overrides: Overrides{
			SentencesPerParagraph: meta.SentencesPerParagraph,
			Reflow:                meta.Reflow,
			Disclosure:            meta.Disclosure,
		},
	}
	if a.Title == "" {
		a.Title = headingTitle(body)
	}
	if a.Title == "" {
		a.Title = stem(filename)
	}
	return a, nil
}

// headingTitle returns the text of the first level-1 ATX or setext heading.
func headingTitle(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return strings.TrimSpace(string(h.Text(src)))
		}
	}
	return ""
}
