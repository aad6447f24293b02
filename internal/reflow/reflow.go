// Package reflow regroups runs of plain paragraphs into paragraphs of a fixed
// sentence count, keeping emphasis and links intact.
package reflow

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docrhythm/internal/doctree"
)

// DefaultSentencesPerParagraph is used when the engine is built with n < 1.
const DefaultSentencesPerParagraph = 2

var rxMemberBreak = regexp.MustCompile(`[\s\p{Zs}]*\n[\s\p{Zs}]*`)

// Containers whose subtrees are copied verbatim.
var skipTags = map[string]bool{
	"code": true, "pre": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "th": true, "td": true,
	"ul": true, "ol": true, "li": true,
	"blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Stats summarizes one Reflow call.
type Stats struct {
	Groups      int `json:"groups"`
	Members     int `json:"members"`
	Dropped     int `json:"dropped"`
	Passthrough int `json:"passthrough"`
	Sentences   int `json:"sentences"`
	Paragraphs  int `json:"paragraphs"`
	Spacers     int `json:"spacers"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Groups += o.Groups
	s.Members += o.Members
	s.Dropped += o.Dropped
	s.Passthrough += o.Passthrough
	s.Sentences += o.Sentences
	s.Paragraphs += o.Paragraphs
	s.Spacers += o.Spacers
}

// Engine reflows document trees. It holds no mutable state and is safe for
// concurrent use on distinct trees.
type Engine struct {
	perParagraph int
}

// New returns an Engine that emits n sentences per paragraph.
func New(n int) *Engine {
	if n < 1 {
		n = DefaultSentencesPerParagraph
	}
	return &Engine{perParagraph: n}
}

// SentencesPerParagraph returns the configured chunk size.
func (e *Engine) SentencesPerParagraph() int { return e.perParagraph }

type splice struct {
	parent     *doctree.Node
	start, end int
	nodes      []*doctree.Node
}

// Reflow returns a reflowed copy of root. The input tree is not modified.
func (e *Engine) Reflow(root *doctree.Node) (*doctree.Node, Stats) {
	var st Stats
	if root == nil {
		return nil, st
	}
	out := root.Clone()

	var splices []splice
	e.plan(out, &splices, &st)
	for i := len(splices) - 1; i >= 0; i-- {
		splices[i].apply()
	}
	return out, st
}

func (s splice) apply() {
	children := make([]*doctree.Node, 0, len(s.parent.Children)-(s.end-s.start)+len(s.nodes))
	children = append(children, s.parent.Children[:s.start]...)
	children = append(children, s.nodes...)
	children = append(children, s.parent.Children[s.end:]...)
	s.parent.Children = children
}

// plan walks n read-only and records one splice per reflow group.
func (e *Engine) plan(n *doctree.Node, splices *[]splice, st *Stats) {
	if !descendable(n) {
		return
	}
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		nodes := e.regroup(n.Children[start:end], st)
		*splices = append(*splices, splice{parent: n, start: start, end: end, nodes: nodes})
		start = -1
	}
	for i, c := range n.Children {
		if reflowable(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		e.plan(c, splices, st)
	}
	flush(len(n.Children))
}

func (e *Engine) regroup(members []*doctree.Node, st *Stats) []*doctree.Node {
	st.Groups++
	st.Members += len(members)

	var sb strings.Builder
	for _, m := range members {
		sb.WriteString(memberText(m))
	}
	text := sb.String()
	if text == "" {
		st.Dropped++
		return nil
	}

	sentences := Segment(text)
	if len(sentences) == 0 {
		st.Passthrough++
		st.Paragraphs++
		return []*doctree.Node{doctree.NewParagraph(doctree.NewText(text))}
	}
	st.Sentences += len(sentences)

	var nodes []*doctree.Node
	for i := 0; i < len(sentences); i += e.perParagraph {
		end := min(i+e.perParagraph, len(sentences))
		if i > 0 {
			nodes = append(nodes, doctree.NewSpacer())
			st.Spacers++
		}
		nodes = append(nodes, doctree.NewParagraph(doctree.NewText(strings.Join(sentences[i:end], ""))))
		st.Paragraphs++
	}
	return nodes
}

func memberText(n *doctree.Node) string {
	return strings.TrimSpace(rxMemberBreak.ReplaceAllString(doctree.PlainText(n), ""))
}

// reflowable reports whether n is a paragraph, or a div, holding only inline
// spans.
func reflowable(n *doctree.Node) bool {
	switch {
	case n.Kind == doctree.KindParagraph:
	case n.Kind == doctree.KindContainer && n.Tag == "div" && len(n.Children) > 0:
	default:
		return false
	}
	for _, c := range n.Children {
		if !c.IsInline() {
			return false
		}
	}
	return true
}

func descendable(n *doctree.Node) bool {
	return n.Kind == doctree.KindContainer && !skipTags[n.Tag]
}

// eachReflowable calls fn for every node Reflow would group.
func eachReflowable(n *doctree.Node, fn func(*doctree.Node)) {
	if !descendable(n) {
		return
	}
	for _, c := range n.Children {
		if reflowable(c) {
			fn(c)
			continue
		}
		eachReflowable(c, fn)
	}
}

// Rewrite protects inline markup, reflows root with n sentences per paragraph
// and restores the markup.
func Rewrite(root *doctree.Node, n int) (*doctree.Node, Stats) {
	protected, tm := Protect(root)
	out, st := New(n).Reflow(protected)
	return Restore(out, tm), st
}
