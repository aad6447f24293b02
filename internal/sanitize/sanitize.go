// Package sanitize cleans imported article HTML before it is mapped onto a
// document tree.
package sanitize

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

var (
	rxSpaces     = regexp.MustCompile(`\s+`)
	rxTitlePunct = regexp.MustCompile(`[“”"'‘’、。,.!！?？:：;\-‐−—･・/｜|\\\[\]()（）【】「」『』…⋯]+`)
	rxAffiliate  = regexp.MustCompile(`アフィリエイト|プロモーション|広告|\bPR\b|スポンサー|紹介料`)
)

const (
	leadingTitleWindow = 5
	earlyBlockWindow   = 10
)

// Report records which clean-up steps changed the document.
type Report struct {
	TitleRemoved        bool `json:"title_removed"`
	AffiliateNormalized bool `json:"affiliate_normalized"`
}

// Parse reads an HTML document or fragment.
func Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Body returns the document body, or the whole document when it has none.
func Body(doc *goquery.Document) *goquery.Selection {
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// Clean runs every clean-up step in order. An empty title skips the title
// removal steps.
func Clean(doc *goquery.Document, title string) Report {
	var rep Report
	StripNonContent(doc)
	NormalizeInlineStyles(doc)
	if title != "" {
		rep.TitleRemoved = RemoveLeadingTitle(doc, title)
		if DropEarlyTitleHeading(doc, title) {
			rep.TitleRemoved = true
		}
	}
	rep.AffiliateNormalized = NormalizeAffiliateNotice(doc)
	return rep
}

// StripNonContent removes scripts, styles and page chrome.
func StripNonContent(doc *goquery.Document) {
	doc.Find("script, style, noscript, nav, footer, header, iframe").Remove()
}

// NormalizeInlineStyles turns bold and italic inline styles into strong and
// em elements and drops presentational attributes.
func NormalizeInlineStyles(doc *goquery.Document) {
	Body(doc).Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Nodes[0]
		style, _ := s.Attr("style")
		bold := n.Data == "b" || n.Data == "strong" || isBoldStyle(style)
		italic := n.Data == "i" || n.Data == "em" || isItalicStyle(style)

		block := blockElements[n.DataAtom]
		switch {
		case bold && italic:
			wrapChildren(n, atom.Strong, atom.Em)
			if !block {
				rename(n, atom.Span)
			}
		case bold && block:
			wrapChildren(n, atom.Strong)
		case italic && block:
			wrapChildren(n, atom.Em)
		case bold:
			rename(n, atom.Strong)
		case italic:
			rename(n, atom.Em)
		}

		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Key == "style" || a.Key == "class" || a.Key == "id" || strings.HasPrefix(a.Key, "data-") {
				continue
			}
			attrs = append(attrs, a)
		}
		n.Attr = attrs
	})
}

func isBoldStyle(style string) bool {
	style = strings.ToLower(style)
	if !strings.Contains(style, "font-weight") {
		return false
	}
	for _, w := range []string{"bold", "600", "700", "800", "900"} {
		if strings.Contains(style, w) {
			return true
		}
	}
	return false
}

func isItalicStyle(style string) bool {
	style = strings.ToLower(style)
	return strings.Contains(style, "font-style") && strings.Contains(style, "italic")
}

// Styled block elements keep their tag and get their content wrapped.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Td: true, atom.Th: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Section: true, atom.Article: true,
}

// wrapChildren moves the children of n into a chain of new elements, outermost
// first.
func wrapChildren(n *html.Node, chain ...atom.Atom) {
	outer := newElement(chain[0])
	inner := outer
	for _, a := range chain[1:] {
		el := newElement(a)
		inner.AppendChild(el)
		inner = el
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		inner.AppendChild(c)
	}
	n.AppendChild(outer)
}

func newElement(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

func rename(n *html.Node, a atom.Atom) {
	n.Data = a.String()
	n.DataAtom = a
}

// RemoveLeadingTitle removes the first of the leading h1/h2/h3/p/div blocks
// whose normalised text equals or starts with the normalised title.
func RemoveLeadingTitle(doc *goquery.Document, title string) bool {
	want := NormalizeTitle(title)
	if want == "" {
		return false
	}
	removed := false
	var seen int
	Body(doc).Children().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !s.Is("h1, h2, h3, p, div") || strings.TrimSpace(s.Text()) == "" {
			return true
		}
		got := NormalizeTitle(blockText(s))
		if got == want || strings.HasPrefix(got, want) {
			s.Remove()
			removed = true
			return false
		}
		seen++
		return seen < leadingTitleWindow
	})
	return removed
}

// DropEarlyTitleHeading removes an h1 or h2 among the first ten blocks whose
// normalised text equals the title exactly.
func DropEarlyTitleHeading(doc *goquery.Document, title string) bool {
	want := NormalizeTitle(title)
	if want == "" {
		return false
	}
	removed := false
	Body(doc).ChildrenFiltered("h1, h2, p, div").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= earlyBlockWindow {
			return false
		}
		if s.Is("h1, h2") && NormalizeTitle(blockText(s)) == want {
			s.Remove()
			removed = true
			return false
		}
		return true
	})
	return removed
}

// NormalizeAffiliateNotice finds the first of the leading blocks that reads
// as an affiliate or sponsorship notice and renders it as body text: bold is
// unwrapped, size and weight styles dropped and a heading becomes a paragraph.
func NormalizeAffiliateNotice(doc *goquery.Document) bool {
	blocks := Body(doc).ChildrenFiltered("h1, h2, h3, h4, h5, h6, p, div")
	var target *goquery.Selection
	blocks.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= earlyBlockWindow {
			return false
		}
		if rxAffiliate.MatchString(blockText(s)) {
			target = s
			return false
		}
		return true
	})
	if target == nil {
		return false
	}

	target.Find("strong, b").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithSelection(s.Contents())
	})
	target.Find("*").AddSelection(target).Each(func(_ int, s *goquery.Selection) {
		style := strings.ToLower(s.AttrOr("style", ""))
		if strings.Contains(style, "font-weight") || strings.Contains(style, "font-size") {
			s.RemoveAttr("style")
		}
	})
	if target.Is("h1, h2, h3, h4, h5, h6") {
		rename(target.Nodes[0], atom.P)
	}
	return true
}

// blockText joins the text nodes under s with single spaces.
func blockText(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// NormalizeTitle folds a title for comparison: NFKC, whitespace collapsed,
// lower case, punctuation and brackets removed.
func NormalizeTitle(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\u3000", " ")
	s = strings.ToLower(strings.TrimSpace(rxSpaces.ReplaceAllString(s, " ")))
	return rxTitlePunct.ReplaceAllString(s, "")
}

// InnerHTML renders the body contents.
func InnerHTML(doc *goquery.Document) (string, error) {
	out, err := Body(doc).Html()
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return out, nil
}
