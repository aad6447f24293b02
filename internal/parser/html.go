package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
	"github.com/dgallion1/docrhythm/internal/sanitize"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files.
type HTMLParser struct {
	Sanitize bool
}

var rxInlineSpace = regexp.MustCompile(`\s+`)

// Elements copied as opaque containers.
var verbatimTags = map[string]bool{
	"pre": true, "code": true, "table": true, "blockquote": true,
}

// Elements that only group blocks.
var sectionTags = map[string]bool{
	"div": true, "section": true, "article": true, "main": true, "aside": true, "figure": true,
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Article, error) {
	doc, err := sanitize.Parse(r)
	if err != nil {
		return nil, err
	}

	headTitle := strings.TrimSpace(doc.Find("head title").First().Text())
	if p.Sanitize {
		sanitize.Clean(doc, headTitle)
	} else {
		sanitize.StripNonContent(doc)
	}

	root := doctree.NewRoot()
	for _, n := range sanitize.Body(doc).Nodes {
		root.Append(htmlBlocks(n)...)
	}

	title := headTitle
	if title == "" {
		title = firstHeading(root)
	}
	if title == "" {
		title = stem(filename)
	}
	return &Article{Title: title, Format: "html", Tree: root}, nil
}

// htmlBlocks converts the children of n. Runs of inline content between
// block elements become paragraphs.
func htmlBlocks(n *html.Node) []*doctree.Node {
	var (
		out    []*doctree.Node
		inline []*doctree.Node
	)
	flush := func() {
		if strings.TrimSpace(doctree.PlainText(doctree.NewParagraph(inline...))) != "" {
			out = append(out, doctree.NewParagraph(trimInline(inline)...))
		}
		inline = nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || !isBlock(c.Data) {
			inline = append(inline, htmlInline(c)...)
			continue
		}
		flush()
		if b := htmlBlock(c); b != nil {
			out = append(out, b)
		}
	}
	flush()
	return out
}

func htmlBlock(n *html.Node) *doctree.Node {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return doctree.NewHeading(headingLevel(n.Data), trimInline(htmlInlineChildren(n))...)
	case "p":
		return doctree.NewParagraph(trimInline(htmlInlineChildren(n))...)
	case "hr":
		return doctree.NewRule()
	case "ul", "ol":
		list := doctree.NewList(n.Data == "ol")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				list.Append(doctree.NewListItem(trimInline(htmlInlineChildren(c))...))
			}
		}
		return list
	}
	if verbatimTags[n.Data] {
		return doctree.NewContainer(n.Data, verbatimChildren(n)...)
	}
	if sectionTags[n.Data] {
		children := htmlBlocks(n)
		// A div of pure text is itself a paragraph-like block.
		if n.Data == "div" && len(children) == 1 && children[0].Kind == doctree.KindParagraph {
			return doctree.NewContainer("div", children[0].Children...)
		}
		return doctree.NewContainer(n.Data, children...)
	}
	return doctree.NewContainer(n.Data, htmlBlocks(n)...)
}

func isBlock(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6", "p", "hr", "ul", "ol", "li", "dl":
		return true
	}
	return verbatimTags[tag] || sectionTags[tag]
}

func htmlInlineChildren(n *html.Node) []*doctree.Node {
	var out []*doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, htmlInline(c)...)
	}
	return out
}

func htmlInline(n *html.Node) []*doctree.Node {
	switch n.Type {
	case html.TextNode:
		if t := rxInlineSpace.ReplaceAllString(n.Data, " "); t != "" {
			return []*doctree.Node{doctree.NewText(t)}
		}
		return nil
	case html.ElementNode:
	default:
		return nil
	}

	switch n.Data {
	case "br":
		return []*doctree.Node{doctree.NewLineBreak()}
	case "strong", "b":
		return []*doctree.Node{doctree.NewEmphasis(htmlInlineChildren(n)...)}
	case "a":
		href := attr(n, "href")
		if href == "" {
			return htmlInlineChildren(n)
		}
		return []*doctree.Node{doctree.NewLink(href, htmlInlineChildren(n)...)}
	case "img", "script", "style":
		return nil
	}
	return htmlInlineChildren(n)
}

// verbatimChildren keeps the text of n unmodified, including whitespace.
func verbatimChildren(n *html.Node) []*doctree.Node {
	var out []*doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			out = append(out, doctree.NewText(c.Data))
		case html.ElementNode:
			if c.Data == "br" {
				out = append(out, doctree.NewLineBreak())
				continue
			}
			out = append(out, doctree.NewContainer(c.Data, verbatimChildren(c)...))
		}
	}
	return out
}

// trimInline drops leading and trailing whitespace of an inline run.
func trimInline(nodes []*doctree.Node) []*doctree.Node {
	if len(nodes) == 0 {
		return nodes
	}
	if first := nodes[0]; first.Kind == doctree.KindText {
		first.Text = strings.TrimLeft(first.Text, " ")
	}
	if last := nodes[len(nodes)-1]; last.Kind == doctree.KindText {
		last.Text = strings.TrimRight(last.Text, " ")
	}
	out := nodes[:0]
	for _, n := range nodes {
		if n.Kind == doctree.KindText && n.Text == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}
