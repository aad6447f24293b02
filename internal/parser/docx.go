package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Article, error) {
	// go-docx needs a ReaderAt and a size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	root := doctree.NewRoot()
	title := ""
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		spans := docxSpans(para)
		if strings.TrimSpace(doctree.PlainText(doctree.NewParagraph(spans...))) == "" {
			continue
		}

		style := docxStyle(para)
		if strings.EqualFold(style, "Title") && title == "" {
			title = strings.TrimSpace(doctree.PlainText(doctree.NewParagraph(spans...)))
			continue
		}
		if level := docxHeadingLevel(style); level > 0 {
			root.Append(doctree.NewHeading(level, plainSpans(spans)...))
			continue
		}
		root.Append(doctree.NewParagraph(spans...))
	}

	if title == "" {
		title = firstHeading(root)
	}
	if title == "" {
		title = stem(filename)
	}
	return &Article{Title: title, Format: "docx", Tree: root}, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(style string) int {
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	if d := style[len(style)-1]; d >= '1' && d <= '6' {
		return int(d - '0')
	}
	return 0
}

// docxSpans maps runs to inline spans. Bold runs become emphasis and adjacent
// runs of the same weight are merged.
func docxSpans(para *docx.Paragraph) []*doctree.Node {
	var out []*doctree.Node
	add := func(text string, bold bool) {
		if text == "" {
			return
		}
		if n := len(out); n > 0 {
			last := out[n-1]
			if bold && last.Kind == doctree.KindEmphasis {
				last.Children[0].Text += text
				return
			}
			if !bold && last.Kind == doctree.KindText {
				last.Text += text
				return
			}
		}
		if bold {
			out = append(out, doctree.NewEmphasis(doctree.NewText(text)))
			return
		}
		out = append(out, doctree.NewText(text))
	}

	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			bold := c.RunProperties != nil && c.RunProperties.Bold != nil
			add(runText(c), bold)
		case *docx.Hyperlink:
			t := runText(&c.Run)
			if t == "" {
				t = c.Run.InstrText
			}
			add(t, false)
		}
	}
	return out
}

func runText(run *docx.Run) string {
	var buf strings.Builder
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
		case *docx.Tab:
			buf.WriteByte('\t')
		}
	}
	return buf.String()
}

// plainSpans flattens emphasis; headings carry their own weight.
func plainSpans(spans []*doctree.Node) []*doctree.Node {
	return []*doctree.Node{doctree.NewText(strings.TrimSpace(doctree.PlainText(doctree.NewParagraph(spans...))))}
}
