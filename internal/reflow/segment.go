package reflow

import (
	"regexp"
	"strings"
	"unicode"
)

// closeTokens matches a run of span close tokens, which may sit between a
// closing quote and the terminal that follows it.
const closeTokens = `((?:\x{E002}\d+\x{E001})*)`

var (
	// A terminal mark right after a closing quote duplicates the sentence end.
	rxTerminalAfterQuote = regexp.MustCompile(`([」』])` + closeTokens + `[\s\p{Zs}]*[。．]`)
	rxLeadingStray       = regexp.MustCompile(`^` + closeTokens + `[。、．，）"』]+[\s\p{Zs}]*`)
)

func isTerminal(r rune) bool {
	switch r {
	case '。', '．', '！', '？':
		return true
	}
	return false
}

// Segment splits text into sentences on Japanese terminal punctuation.
// Terminals inside 「」 or 『』 never end a sentence, and neither does a
// terminal followed by whitespace or one at the very end of the text.
// Protected spans (see Protect) are atomic: a boundary that falls inside one
// moves to just after it.
func Segment(text string) []string {
	text = rxTerminalAfterQuote.ReplaceAllString(text, "$1$2")
	runes := []rune(text)

	var (
		sentences []string
		cur       strings.Builder
		inQuote   bool
		depth     int  // open protected spans
		pending   bool // boundary deferred until the span closes
	)
	cut := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			sentences = append(sentences, s)
		}
		cur.Reset()
	}
	breakable := func(i int) bool {
		return !inQuote && i+1 < len(runes) && !unicode.IsSpace(runes[i+1])
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == sentinelOpen || r == sentinelClose {
			// Only well-formed tokens delimit spans; a lone sentinel rune is text.
			if _, end, ok := readID(runes, i+1); ok {
				cur.WriteString(string(runes[i : end+1]))
				i = end
				if r == sentinelOpen {
					depth++
					continue
				}
				if depth > 0 {
					depth--
				}
				if depth == 0 && pending {
					pending = false
					if breakable(i) {
						cut()
					}
				}
				continue
			}
		}

		cur.WriteRune(r)
		switch r {
		case '「', '『':
			inQuote = true
		case '」', '』':
			inQuote = false
		}

		if isTerminal(r) && breakable(i) {
			if depth > 0 {
				pending = true
				continue
			}
			cut()
		}
	}
	cut()

	out := sentences[:0]
	for _, s := range sentences {
		if s = strings.TrimSpace(rxLeadingStray.ReplaceAllString(s, "$1")); s != "" {
			out = append(out, s)
		}
	}
	return out
}
