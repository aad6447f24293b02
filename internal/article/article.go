// Package article runs the conversion pipeline for one article: reflow with
// inline markup protected, disclosure insertion and serialisation.
package article

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
	"github.com/dgallion1/docrhythm/internal/parser"
	"github.com/dgallion1/docrhythm/internal/reflow"
	"github.com/dgallion1/docrhythm/internal/render"
)

// ErrNoTree is returned for an article without a document tree.
var ErrNoTree = errors.New("article has no document tree")

// Options control a conversion. Per-article overrides take precedence.
type Options struct {
	SentencesPerParagraph int
	Reflow                bool
	Disclosure            string
	Marker                string
}

// Result is a converted article.
type Result struct {
	Title string
	Tree  *doctree.Node
	HTML  string
	Stats reflow.Stats
	// Reflowed is false when reflow was disabled for this article.
	Reflowed bool
}

// Convert reflows and renders a.
func Convert(a *parser.Article, opts Options) (*Result, error) {
	if a == nil || a.Tree == nil {
		return nil, ErrNoTree
	}
	opts = opts.with(a.Overrides)

	res := &Result{Title: a.Title, Tree: a.Tree}
	if opts.Reflow {
		res.Tree, res.Stats = reflow.Rewrite(a.Tree, opts.SentencesPerParagraph)
		res.Reflowed = true
	}
	if opts.Disclosure != "" {
		res.Tree = InsertDisclosure(res.Tree, opts.Disclosure)
	}

	out, err := render.HTML(res.Tree)
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", a.Title, err)
	}
	res.HTML = out
	return res, nil
}

// ConvertMarkdown parses text, front matter included, and converts it.
func ConvertMarkdown(text string, opts Options) (*Result, error) {
	a, err := (&parser.MarkdownParser{Marker: opts.Marker}).Parse(strings.NewReader(text), "article.md")
	if err != nil {
		return nil, err
	}
	return Convert(a, opts)
}

func (o Options) with(ov parser.Overrides) Options {
	if ov.SentencesPerParagraph != nil {
		o.SentencesPerParagraph = *ov.SentencesPerParagraph
	}
	if ov.Reflow != nil {
		o.Reflow = *ov.Reflow
	}
	if ov.Disclosure != nil {
		o.Disclosure = *ov.Disclosure
	}
	if o.SentencesPerParagraph < 1 {
		o.SentencesPerParagraph = reflow.DefaultSentencesPerParagraph
	}
	return o
}

// Document renders the result as a complete HTML page.
func (r *Result) Document() (string, error) {
	return render.Document(r.Tree, r.Title)
}

// WriteDOCX writes the result as a Word document.
func (r *Result) WriteDOCX(w io.Writer) error {
	return render.DOCX(w, r.Tree, r.Title)
}

// InsertDisclosure returns a copy of root with a disclosure paragraph right
// after the first top-level h1, or first when there is none.
func InsertDisclosure(root *doctree.Node, text string) *doctree.Node {
	out := root.Clone()
	para := doctree.NewParagraph(doctree.NewText(text))

	at := 0
	for i, c := range out.Children {
		if c.Kind == doctree.KindHeading && c.Level == 1 {
			at = i + 1
			break
		}
	}
	children := make([]*doctree.Node, 0, len(out.Children)+1)
	children = append(children, out.Children[:at]...)
	children = append(children, para)
	children = append(children, out.Children[at:]...)
	out.Children = children
	return out
}
