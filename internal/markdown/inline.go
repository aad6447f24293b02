package markdown

import (
	"regexp"
	"unicode"

	"github.com/dgallion1/docrhythm/internal/doctree"
)

var defaultBold = regexp.MustCompile(regexp.QuoteMeta(DefaultMarker) + `(.+?)` + regexp.QuoteMeta(DefaultMarker))

func isSpace(r rune) bool { return unicode.IsSpace(r) }

// Inline splits text into Text and Emphasis spans. Bold spans are matched
// left to right and never overlap; everything else stays literal.
func (p *Parser) Inline(text string) []*doctree.Node {
	re := p.bold
	if re == nil {
		re = defaultBold
	}

	var out []*doctree.Node
	pos := 0
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > pos {
			out = append(out, doctree.NewText(text[pos:m[0]]))
		}
		out = append(out, doctree.NewEmphasis(doctree.NewText(text[m[2]:m[3]])))
		pos = m[1]
	}
	if pos < len(text) {
		out = append(out, doctree.NewText(text[pos:]))
	}
	return out
}
