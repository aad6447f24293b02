package markdown

import "github.com/dgallion1/docrhythm/internal/doctree"

// Build maps blocks onto a root container. Blank blocks carry no node.
func (p *Parser) Build(blocks []doctree.Block) *doctree.Node {
	root := doctree.NewRoot()
	for _, b := range blocks {
		switch b.Kind {
		case doctree.BlockHeading:
			root.Append(doctree.NewHeading(b.Level, p.Inline(b.Text)...))
		case doctree.BlockRule:
			root.Append(doctree.NewRule())
		case doctree.BlockList:
			list := doctree.NewList(b.Ordered)
			for _, item := range b.Items {
				list.Append(doctree.NewListItem(p.Inline(item)...))
			}
			root.Append(list)
		case doctree.BlockParagraph:
			root.Append(doctree.NewParagraph(p.Inline(b.Text)...))
		}
	}
	return root
}
