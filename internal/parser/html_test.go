package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docrhythm/internal/doctree"
)

const sampleHTML = `<!DOCTYPE html>
<html><head><title>投資の基本</title><style>p{}</style></head>
<body>
<h1>投資の基本</h1>
<p style="font-weight:700">【PR】本記事は広告を含みます</p>
<p>まずは<span style="font-weight:bold">口座</span>を開きます。
<a href="https://example.com">詳しく</a>見る。</p>
<ul><li>株式</li><li><b>債券</b></li></ul>
<blockquote><p>引用。</p></blockquote>
<div>中身だけの div。</div>
<hr>
<pre>  code  </pre>
</body></html>`

func TestHTMLParser(t *testing.T) {
	a, err := (&HTMLParser{Sanitize: true}).Parse(strings.NewReader(sampleHTML), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Title != "投資の基本" {
		t.Errorf("expected title from <title>, got %q", a.Title)
	}

	var kinds []string
	for _, c := range a.Tree.Children {
		k := c.Kind.String()
		if c.Kind == doctree.KindContainer {
			k += ":" + c.Tag
		}
		kinds = append(kinds, k)
	}
	want := []string{"paragraph", "paragraph", "list", "container:blockquote", "container:div", "rule", "container:pre"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, kinds)
	}

	notice := a.Tree.Children[0]
	if len(notice.Children) != 1 || notice.Children[0].Kind != doctree.KindText {
		t.Errorf("expected affiliate notice as plain text, got %+v", notice.Children)
	}

	body := a.Tree.Children[1]
	var sawEmphasis, sawLink bool
	doctree.Walk(body, func(n *doctree.Node) bool {
		switch n.Kind {
		case doctree.KindEmphasis:
			sawEmphasis = doctree.PlainText(n) == "口座"
		case doctree.KindLink:
			sawLink = n.URL == "https://example.com"
		}
		return true
	})
	if !sawEmphasis || !sawLink {
		t.Errorf("expected emphasis and link in body paragraph, got %+v", body.Children)
	}
	if got := doctree.PlainText(body); got != "まずは口座を開きます。 詳しく見る。" {
		t.Errorf("unexpected paragraph text %q", got)
	}

	if got := doctree.PlainText(a.Tree.Children[6]); got != "  code  " {
		t.Errorf("expected pre text verbatim, got %q", got)
	}
}

func TestHTMLParser_NoSanitizeKeepsTitleHeading(t *testing.T) {
	a, err := (&HTMLParser{}).Parse(strings.NewReader(sampleHTML), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Tree.Children[0].Kind != doctree.KindHeading {
		t.Errorf("expected leading heading, got %v", a.Tree.Children[0].Kind)
	}
}

func TestHTMLParser_TitleFallbacks(t *testing.T) {
	a, err := (&HTMLParser{}).Parse(strings.NewReader("<h1>見出し題</h1><p>x</p>"), "f.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Title != "見出し題" {
		t.Errorf("expected heading title, got %q", a.Title)
	}

	a, err = (&HTMLParser{}).Parse(strings.NewReader("<p>x</p>"), "dir/f.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Title != "f" {
		t.Errorf("expected filename title, got %q", a.Title)
	}
}
