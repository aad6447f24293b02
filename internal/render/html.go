// Package render serialises document trees to HTML and DOCX.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML renders the children of root as an HTML fragment. Text is escaped here
// and nowhere earlier.
func HTML(root *doctree.Node) (string, error) {
	if root == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, n := range fragment(root) {
		if err := html.Render(&sb, n); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Document renders root as a complete UTF-8 HTML page.
func Document(root *doctree.Node, title string) (string, error) {
	head := element("head")
	meta := element("meta")
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	viewport := element("meta")
	viewport.Attr = []html.Attribute{
		{Key: "name", Val: "viewport"},
		{Key: "content", Val: "width=device-width, initial-scale=1"},
	}
	titleEl := element("title")
	titleEl.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(meta)
	head.AppendChild(viewport)
	head.AppendChild(titleEl)

	body := element("body")
	if root != nil {
		for _, n := range fragment(root) {
			body.AppendChild(n)
		}
	}

	page := element("html")
	page.Attr = []html.Attribute{{Key: "lang", Val: "ja"}}
	page.AppendChild(head)
	page.AppendChild(body)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	if err := html.Render(&sb, page); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	sb.WriteByte('\n')
	return sb.String(), nil
}

// fragment converts root's children, unwrapping the body container itself.
func fragment(root *doctree.Node) []*html.Node {
	if root.Kind == doctree.KindContainer && root.Tag == "body" {
		out := make([]*html.Node, 0, len(root.Children))
		for _, c := range root.Children {
			out = append(out, toHTML(c))
		}
		return out
	}
	return []*html.Node{toHTML(root)}
}

func element(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

func toHTML(n *doctree.Node) *html.Node {
	var el *html.Node
	switch n.Kind {
	case doctree.KindText:
		return &html.Node{Type: html.TextNode, Data: n.Text}
	case doctree.KindLineBreak:
		return element("br")
	case doctree.KindRule:
		return element("hr")
	case doctree.KindHeading:
		level := min(max(n.Level, 1), 6)
		el = element("h" + strconv.Itoa(level))
	case doctree.KindParagraph:
		el = element("p")
	case doctree.KindList:
		if n.Ordered {
			el = element("ol")
		} else {
			el = element("ul")
		}
	case doctree.KindListItem:
		el = element("li")
	case doctree.KindEmphasis:
		el = element("strong")
	case doctree.KindLink:
		el = element("a")
		el.Attr = []html.Attribute{{Key: "href", Val: n.URL}}
	default:
		tag := n.Tag
		if tag == "" || tag == "body" {
			tag = "div"
		}
		el = element(tag)
	}
	for _, c := range n.Children {
		el.AppendChild(toHTML(c))
	}
	return el
}
