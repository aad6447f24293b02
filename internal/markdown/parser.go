// Package markdown parses the constrained Markdown subset used for article
// bodies into blocks and builds document trees from them.
package markdown

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
)

// DefaultMarker delimits bold spans.
const DefaultMarker = "**"

// Whitespace classes cover full-width spaces as well as ASCII ones.
const (
	ws    = `[\s\p{Zs}]`
	nonWS = `[^\s\p{Zs}]`
	digit = `\p{Nd}`
)

var (
	rxHeadings = []struct {
		level int
		re    *regexp.Regexp
	}{
		{3, regexp.MustCompile(`^` + ws + `*###` + ws + `+`)},
		{2, regexp.MustCompile(`^` + ws + `*##` + ws + `+`)},
		{1, regexp.MustCompile(`^` + ws + `*#` + ws + `+`)},
	}

	rxULHead = regexp.MustCompile(`^` + ws + `*-` + ws + `+`)
	rxOLHead = regexp.MustCompile(`^` + ws + `*` + digit + `+[.)]` + ws + `+`)

	rxULInline = regexp.MustCompile(`-` + ws + `+` + nonWS)
	rxOLInline = regexp.MustCompile(digit + `+[.)]` + ws + `+` + nonWS)
	rxULSplit  = regexp.MustCompile(`-` + ws + `+`)
	rxOLSplit  = regexp.MustCompile(digit + `+[.)]` + ws + `+`)
)

// connectives end an inline list: the text from the token on is prose.
var connectives = []string{
	"これらの", "これにより", "続いて", "次に", "ここでは", "なお", "ただし",
	"一方で", "以上", "また", "さらに", "加えて", "最後に",
}

var rxConnective = func() *regexp.Regexp {
	quoted := make([]string, len(connectives))
	for i, c := range connectives {
		quoted[i] = regexp.QuoteMeta(c)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}()

// minInlineItems is the fewest parts a mid-line separator split must yield
// before the line is treated as a list.
const minInlineItems = 3

// Parser converts Markdown subset text into blocks. The zero value uses
// DefaultMarker for bold spans.
type Parser struct {
	marker string
	bold   *regexp.Regexp
}

// New returns a Parser recognising bold spans delimited by marker.
// An empty marker selects DefaultMarker.
func New(marker string) *Parser {
	if marker == "" {
		marker = DefaultMarker
	}
	q := regexp.QuoteMeta(marker)
	return &Parser{
		marker: marker,
		bold:   regexp.MustCompile(q + `(.+?)` + q),
	}
}

// Marker returns the bold delimiter in use.
func (p *Parser) Marker() string {
	if p.marker == "" {
		return DefaultMarker
	}
	return p.marker
}

// ParseTree parses text and builds its document tree.
func (p *Parser) ParseTree(text string) *doctree.Node {
	return p.Build(p.Parse(text))
}

// Parse converts text into an ordered block list. Every line matches some
// rule, so parsing cannot fail.
func (p *Parser) Parse(text string) []doctree.Block {
	var s parseState
	for _, ln := range splitLines(text) {
		s.line(ln)
	}
	s.closeList()
	return s.out
}

type parseState struct {
	out  []doctree.Block
	list *doctree.Block
}

func (s *parseState) line(ln string) {
	trimmed := strings.TrimSpace(ln)

	if trimmed == "---" {
		s.closeList()
		s.emit(doctree.Block{Kind: doctree.BlockRule})
		return
	}

	for _, h := range rxHeadings {
		if loc := h.re.FindStringIndex(ln); loc != nil {
			s.closeList()
			s.emit(doctree.Block{Kind: doctree.BlockHeading, Level: h.level, Text: strings.TrimSpace(ln[loc[1]:])})
			return
		}
	}

	if loc := rxULHead.FindStringIndex(ln); loc != nil {
		s.addItem(false, strings.TrimSpace(ln[loc[1]:]))
		return
	}
	if loc := rxOLHead.FindStringIndex(ln); loc != nil {
		s.addItem(true, strings.TrimSpace(ln[loc[1]:]))
		return
	}

	if s.inlineList(ln) {
		return
	}

	if trimmed == "" {
		s.closeList()
		if n := len(s.out); n == 0 || s.out[n-1].Kind != doctree.BlockBlank {
			s.emit(doctree.Block{Kind: doctree.BlockBlank})
		}
		return
	}

	s.closeList()
	s.emit(doctree.Block{Kind: doctree.BlockParagraph, Text: trimmed})
}

// inlineList expands "prefix - a - b - c" lines into a paragraph and a list.
// The earliest separator decides the list kind; unordered wins a tie.
func (s *parseState) inlineList(ln string) bool {
	ul := rxULInline.FindStringIndex(ln)
	ol := rxOLInline.FindStringIndex(ln)
	if ul == nil && ol == nil {
		return false
	}

	ordered := false
	start := 0
	split := rxULSplit
	if ul != nil && (ol == nil || ul[0] <= ol[0]) {
		start = ul[0]
	} else {
		ordered = true
		start = ol[0]
		split = rxOLSplit
	}

	prefix := strings.TrimSpace(ln[:start])
	var parts []string
	for _, part := range split.Split(strings.TrimSpace(ln[start:]), -1) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) < minInlineItems {
		return false
	}

	last, post := splitLastItem(parts[len(parts)-1])
	parts[len(parts)-1] = last

	s.closeList()
	if prefix != "" {
		s.emit(doctree.Block{Kind: doctree.BlockParagraph, Text: prefix})
	}
	s.emit(doctree.Block{Kind: doctree.BlockList, Ordered: ordered, Items: parts})
	if post != "" {
		s.emit(doctree.Block{Kind: doctree.BlockParagraph, Text: post})
	}
	return true
}

// splitLastItem cuts item at the first connective token that does not start it.
func splitLastItem(item string) (string, string) {
	if loc := rxConnective.FindStringIndex(item); loc != nil && loc[0] > 0 {
		return strings.TrimRightFunc(item[:loc[0]], isSpace), strings.TrimLeftFunc(item[loc[0]:], isSpace)
	}
	return strings.TrimSpace(item), ""
}

func (s *parseState) addItem(ordered bool, text string) {
	if s.list != nil && s.list.Ordered != ordered {
		s.closeList()
	}
	if s.list == nil {
		s.list = &doctree.Block{Kind: doctree.BlockList, Ordered: ordered}
	}
	s.list.Items = append(s.list.Items, text)
}

func (s *parseState) closeList() {
	if s.list != nil {
		s.out = append(s.out, *s.list)
		s.list = nil
	}
}

func (s *parseState) emit(b doctree.Block) {
	s.out = append(s.out, b)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
