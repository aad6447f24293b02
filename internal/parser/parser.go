// Package parser imports article sources of several formats into document
// trees.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
)

// Article is an imported source document.
type Article struct {
	Title     string
	Format    string
	Tree      *doctree.Node
	Overrides Overrides
}

// Overrides carries per-article settings found in the source itself.
// Nil fields defer to the service configuration.
type Overrides struct {
	SentencesPerParagraph *int    `json:"sentences_per_paragraph,omitempty"`
	Reflow                *bool   `json:"reflow,omitempty"`
	Disclosure            *string `json:"disclosure,omitempty"`
}

// Merge returns o with every field set in top replacing its own.
func (o Overrides) Merge(top Overrides) Overrides {
	if top.SentencesPerParagraph != nil {
		o.SentencesPerParagraph = top.SentencesPerParagraph
	}
	if top.Reflow != nil {
		o.Reflow = top.Reflow
	}
	if top.Disclosure != nil {
		o.Disclosure = top.Disclosure
	}
	return o
}

// Parser converts raw source bytes into an Article.
type Parser interface {
	Parse(r io.Reader, filename string) (*Article, error)
}

// Options tune the parsers returned by ForFile.
type Options struct {
	Marker       string // bold delimiter for Markdown-subset sources
	SanitizeHTML bool
	PDFFallback  bool // shell out to pdftotext when the Go reader fails
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{Marker: opts.Marker}, nil
	case ".md", ".markdown":
		return &MarkdownParser{Marker: opts.Marker}, nil
	case ".html", ".htm":
		return &HTMLParser{Sanitize: opts.SanitizeHTML}, nil
	case ".pdf":
		return &PDFParser{Marker: opts.Marker, FallbackPdftotext: opts.PDFFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// firstHeading returns the text of the first level-1 heading directly under
// root.
func firstHeading(root *doctree.Node) string {
	for _, c := range root.Children {
		if c.Kind == doctree.KindHeading && c.Level == 1 {
			return strings.TrimSpace(doctree.PlainText(c))
		}
	}
	return ""
}
