package doctree

import "strings"

// BlockKind tags a Block produced by the Markdown parser.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockRule
	BlockList
	BlockBlank
)

// Block is a line-level structural unit of a Markdown source.
type Block struct {
	Kind    BlockKind
	Level   int      // Heading level 1..3
	Text    string   // Heading and paragraph text, inline markup still raw
	Ordered bool     // List kind
	Items   []string // List item texts, inline markup still raw
}

// Kind tags a Node.
type Kind int

const (
	KindContainer Kind = iota
	KindHeading
	KindParagraph
	KindList
	KindListItem
	KindRule
	KindText
	KindEmphasis
	KindLink
	KindLineBreak
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindListItem:
		return "list_item"
	case KindRule:
		return "rule"
	case KindText:
		return "text"
	case KindEmphasis:
		return "emphasis"
	case KindLink:
		return "link"
	case KindLineBreak:
		return "line_break"
	}
	return "unknown"
}

// Node is a document tree node. Block nodes hold children; Text holds a string.
type Node struct {
	Kind     Kind
	Level    int    // Heading level
	Ordered  bool   // List kind
	Tag      string // Container source element ("body", "div", "blockquote", ...)
	Text     string // Text content
	URL      string // Link target
	Children []*Node
}

// IsInline reports whether n is an inline span.
func (n *Node) IsInline() bool {
	switch n.Kind {
	case KindText, KindEmphasis, KindLink, KindLineBreak:
		return true
	}
	return false
}

// Append adds children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// PlainText renders the text content of n. Line breaks become "\n".
func PlainText(n *Node) string {
	var sb strings.Builder
	writeText(&sb, n)
	return sb.String()
}

func writeText(sb *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindText:
		sb.WriteString(n.Text)
		return
	case KindLineBreak:
		sb.WriteByte('\n')
		return
	}
	for _, c := range n.Children {
		writeText(sb, c)
	}
}

// Constructors used by the builders and tests.

func NewRoot() *Node { return &Node{Kind: KindContainer, Tag: "body"} }

func NewContainer(tag string, children ...*Node) *Node {
	return &Node{Kind: KindContainer, Tag: tag, Children: children}
}

func NewHeading(level int, children ...*Node) *Node {
	return &Node{Kind: KindHeading, Level: level, Children: children}
}

func NewParagraph(children ...*Node) *Node {
	return &Node{Kind: KindParagraph, Children: children}
}

func NewList(ordered bool, items ...*Node) *Node {
	return &Node{Kind: KindList, Ordered: ordered, Children: items}
}

func NewListItem(children ...*Node) *Node {
	return &Node{Kind: KindListItem, Children: children}
}

func NewRule() *Node { return &Node{Kind: KindRule} }

func NewText(s string) *Node { return &Node{Kind: KindText, Text: s} }

func NewEmphasis(children ...*Node) *Node {
	return &Node{Kind: KindEmphasis, Children: children}
}

func NewLink(url string, children ...*Node) *Node {
	return &Node{Kind: KindLink, URL: url, Children: children}
}

func NewLineBreak() *Node { return &Node{Kind: KindLineBreak} }

// NewSpacer returns a paragraph holding a single line break.
func NewSpacer() *Node { return NewParagraph(NewLineBreak()) }

// IsSpacer reports whether n is a paragraph whose only content is one line break.
func IsSpacer(n *Node) bool {
	return n != nil && n.Kind == KindParagraph && len(n.Children) == 1 && n.Children[0].Kind == KindLineBreak
}
