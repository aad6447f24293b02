package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
	"github.com/fumiama/go-docx"
)

// Run sizes are in half points.
var headingSizes = map[int]string{1: "36", 2: "30", 3: "26"}

const (
	titleSize = "40"
	ruleText  = "――――――――――"
)

// DOCX writes root as a Word document. A non-empty title becomes a centred
// leading paragraph.
func DOCX(w io.Writer, root *doctree.Node, title string) error {
	doc := docx.New().WithDefaultTheme().WithA4Page()
	if title != "" {
		doc.AddParagraph().Justification("center").AddText(title).Bold().Size(titleSize)
	}
	if root != nil {
		for _, n := range fragmentNodes(root) {
			writeBlock(doc, n)
		}
	}
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func fragmentNodes(root *doctree.Node) []*doctree.Node {
	if root.Kind == doctree.KindContainer {
		return root.Children
	}
	return []*doctree.Node{root}
}

func writeBlock(doc *docx.Docx, n *doctree.Node) {
	switch n.Kind {
	case doctree.KindHeading:
		level := min(max(n.Level, 1), 6)
		p := doc.AddParagraph().Style("Heading" + strconv.Itoa(level))
		size := headingSizes[level]
		if size == "" {
			size = headingSizes[3]
		}
		writeInline(p, n.Children, true, size)
	case doctree.KindParagraph:
		if doctree.IsSpacer(n) {
			doc.AddParagraph()
			return
		}
		writeInline(doc.AddParagraph(), n.Children, false, "")
	case doctree.KindList:
		for i, item := range n.Children {
			prefix := "・"
			if n.Ordered {
				prefix = strconv.Itoa(i+1) + ". "
			}
			p := doc.AddParagraph()
			p.AddText(prefix)
			writeInline(p, item.Children, false, "")
		}
	case doctree.KindRule:
		doc.AddParagraph().Justification("center").AddText(ruleText)
	case doctree.KindContainer:
		if allInline(n.Children) {
			writeInline(doc.AddParagraph(), n.Children, false, "")
			return
		}
		for _, c := range n.Children {
			writeBlock(doc, c)
		}
	default:
		if n.IsInline() {
			writeInline(doc.AddParagraph(), []*doctree.Node{n}, false, "")
		}
	}
}

func allInline(nodes []*doctree.Node) bool {
	for _, n := range nodes {
		if !n.IsInline() {
			return false
		}
	}
	return len(nodes) > 0
}

func writeInline(p *docx.Paragraph, nodes []*doctree.Node, bold bool, size string) {
	for _, n := range nodes {
		switch n.Kind {
		case doctree.KindText:
			if n.Text == "" {
				continue
			}
			r := p.AddText(n.Text)
			if bold {
				r.Bold()
			}
			if size != "" {
				r.Size(size)
			}
		case doctree.KindEmphasis:
			writeInline(p, n.Children, true, size)
		case doctree.KindLink:
			text := strings.TrimSpace(doctree.PlainText(n))
			if text == "" {
				text = n.URL
			}
			p.AddLink(text, n.URL)
		case doctree.KindLineBreak:
			p.AddText("\n")
		}
	}
}
