package reflow

import (
	"strconv"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
)

// Sentinel tokens wrap protected spans: sentinelOpen id sentinelEnd before the
// span text and sentinelClose id sentinelEnd after it. They are private-use
// code points, so they never collide with punctuation or quote marks.
// Source text may carry the same code points (gaiji glyphs); Protect rewrites
// each as sentinelEscape offset sentinelEnd and Restore turns it back.
const (
	sentinelOpen   = '\uE000'
	sentinelEnd    = '\uE001'
	sentinelClose  = '\uE002'
	sentinelEscape = '\uE003'
)

func isSentinel(r rune) bool {
	return r >= sentinelOpen && r <= sentinelEscape
}

func escapeSentinels(s string) string {
	if !strings.ContainsFunc(s, isSentinel) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if !isSentinel(r) {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(sentinelEscape)
		sb.WriteString(strconv.Itoa(int(r - sentinelOpen)))
		sb.WriteRune(sentinelEnd)
	}
	return sb.String()
}

type span struct {
	kind doctree.Kind
	url  string
}

// TokenMap records the spans Protect replaced with sentinel tokens.
type TokenMap struct {
	spans []span
}

// Len returns the number of protected spans.
func (tm *TokenMap) Len() int {
	if tm == nil {
		return 0
	}
	return len(tm.spans)
}

func (tm *TokenMap) add(n *doctree.Node) int {
	tm.spans = append(tm.spans, span{kind: n.Kind, url: n.URL})
	return len(tm.spans) - 1
}

func (tm *TokenMap) lookup(id int) (span, bool) {
	if tm == nil || id < 0 || id >= len(tm.spans) {
		return span{}, false
	}
	return tm.spans[id], true
}

// Protect returns a copy of root in which every reflowable paragraph holding
// emphasis or links is flattened to a single text node carrying sentinel
// tokens around those spans. Sentinel code points already in reflowable text
// are escaped.
func Protect(root *doctree.Node) (*doctree.Node, *TokenMap) {
	tm := &TokenMap{}
	if root == nil {
		return nil, tm
	}
	out := root.Clone()
	eachReflowable(out, func(n *doctree.Node) {
		if !hasMarkup(n) {
			for _, c := range n.Children {
				if c.Kind == doctree.KindText {
					c.Text = escapeSentinels(c.Text)
				}
			}
			return
		}
		var sb strings.Builder
		for _, c := range n.Children {
			tm.flatten(&sb, c)
		}
		n.Children = []*doctree.Node{doctree.NewText(sb.String())}
	})
	return out, tm
}

func hasMarkup(n *doctree.Node) bool {
	for _, c := range n.Children {
		if c.Kind == doctree.KindEmphasis || c.Kind == doctree.KindLink {
			return true
		}
	}
	return false
}

func (tm *TokenMap) flatten(sb *strings.Builder, n *doctree.Node) {
	switch n.Kind {
	case doctree.KindText:
		sb.WriteString(escapeSentinels(n.Text))
	case doctree.KindLineBreak:
		sb.WriteByte('\n')
	case doctree.KindEmphasis, doctree.KindLink:
		id := strconv.Itoa(tm.add(n))
		sb.WriteRune(sentinelOpen)
		sb.WriteString(id)
		sb.WriteRune(sentinelEnd)
		for _, c := range n.Children {
			tm.flatten(sb, c)
		}
		sb.WriteRune(sentinelClose)
		sb.WriteString(id)
		sb.WriteRune(sentinelEnd)
	default:
		for _, c := range n.Children {
			tm.flatten(sb, c)
		}
	}
}

// Restore returns a copy of root with sentinel tokens in reflowable
// paragraphs turned back into emphasis and link nodes and escapes turned back
// into the original code points. A close token whose open token ended up in
// another paragraph is dropped; an open token left unclosed wraps the rest of
// its paragraph. Skipped containers are copied as is.
func Restore(root *doctree.Node, tm *TokenMap) *doctree.Node {
	if root == nil {
		return nil
	}
	out := root.Clone()
	eachReflowable(out, func(n *doctree.Node) {
		if !hasSentinelText(n) {
			return
		}
		var children []*doctree.Node
		for _, c := range n.Children {
			if c.Kind == doctree.KindText && strings.ContainsFunc(c.Text, isSentinel) {
				children = append(children, tm.expand(c.Text)...)
				continue
			}
			children = append(children, c)
		}
		n.Children = children
	})
	return out
}

func hasSentinelText(n *doctree.Node) bool {
	for _, c := range n.Children {
		if c.Kind == doctree.KindText && strings.ContainsFunc(c.Text, isSentinel) {
			return true
		}
	}
	return false
}

type frame struct {
	node *doctree.Node
	id   int
}

func (tm *TokenMap) expand(s string) []*doctree.Node {
	holder := &doctree.Node{}
	stack := []frame{{node: holder, id: -1}}
	var buf strings.Builder

	flushText := func() {
		if buf.Len() > 0 {
			stack[len(stack)-1].node.Append(doctree.NewText(buf.String()))
			buf.Reset()
		}
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case sentinelOpen, sentinelClose:
			id, next, ok := readID(runes, i+1)
			i = next
			if !ok {
				continue
			}
			if r == sentinelOpen {
				sp, found := tm.lookup(id)
				if !found {
					continue
				}
				flushText()
				node := &doctree.Node{Kind: sp.kind, URL: sp.url}
				stack[len(stack)-1].node.Append(node)
				stack = append(stack, frame{node: node, id: id})
				continue
			}
			for j := len(stack) - 1; j > 0; j-- {
				if stack[j].id == id {
					flushText()
					stack = stack[:j]
					break
				}
			}
		case sentinelEscape:
			off, next, ok := readID(runes, i+1)
			i = next
			if ok && off <= int(sentinelEscape-sentinelOpen) {
				buf.WriteRune(sentinelOpen + rune(off))
			}
		case sentinelEnd:
			// Stray terminator.
		case '\n':
			flushText()
			stack[len(stack)-1].node.Append(doctree.NewLineBreak())
		default:
			buf.WriteRune(r)
		}
	}
	flushText()
	return holder.Children
}

// readID parses the decimal id after a token start. It returns the index of
// the terminating sentinelEnd.
func readID(runes []rune, i int) (int, int, bool) {
	start := i
	for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
		i++
	}
	if i == start || i >= len(runes) || runes[i] != sentinelEnd {
		return 0, i - 1, false
	}
	id, err := strconv.Atoi(string(runes[start:i]))
	if err != nil {
		return 0, i, false
	}
	return id, i, true
}
