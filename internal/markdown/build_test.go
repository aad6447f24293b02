package markdown

import (
	"testing"

	"github.com/dgallion1/docrhythm/internal/doctree"
)

func TestInline_Bold(t *testing.T) {
	spans := New("").Inline("これは**重要**な**情報**です")
	want := []struct {
		kind doctree.Kind
		text string
	}{
		{doctree.KindText, "これは"},
		{doctree.KindEmphasis, "重要"},
		{doctree.KindText, "な"},
		{doctree.KindEmphasis, "情報"},
		{doctree.KindText, "です"},
	}
	if len(spans) != len(want) {
		t.Fatalf("expected %d spans, got %d", len(want), len(spans))
	}
	for i, w := range want {
		if spans[i].Kind != w.kind || doctree.PlainText(spans[i]) != w.text {
			t.Errorf("span[%d]: expected %v %q, got %v %q", i, w.kind, w.text, spans[i].Kind, doctree.PlainText(spans[i]))
		}
	}
}

func TestInline_UnclosedMarkerIsLiteral(t *testing.T) {
	spans := New("").Inline("**閉じない <b>")
	if len(spans) != 1 || spans[0].Kind != doctree.KindText || spans[0].Text != "**閉じない <b>" {
		t.Errorf("expected one literal text span, got %+v", spans)
	}
}

func TestInline_CustomMarker(t *testing.T) {
	p := New("__")
	spans := p.Inline("a __b__ **c**")
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[1].Kind != doctree.KindEmphasis || doctree.PlainText(spans[1]) != "b" {
		t.Errorf("expected emphasis b, got %+v", spans[1])
	}
	if spans[2].Text != " **c**" {
		t.Errorf("expected default marker to stay literal, got %q", spans[2].Text)
	}
	if p.Marker() != "__" {
		t.Errorf("expected marker %q, got %q", "__", p.Marker())
	}
}

func TestInline_ZeroValueParser(t *testing.T) {
	var p Parser
	spans := p.Inline("**x**")
	if len(spans) != 1 || spans[0].Kind != doctree.KindEmphasis {
		t.Errorf("expected default bold handling, got %+v", spans)
	}
	if p.Marker() != DefaultMarker {
		t.Errorf("expected default marker, got %q", p.Marker())
	}
}

func TestBuild_Structure(t *testing.T) {
	input := "# 題\n\n本文**強調**\n\n- 一\n- 二\n\n---\n1. 壱"
	root := New("").ParseTree(input)

	if root.Kind != doctree.KindContainer {
		t.Fatalf("expected container root, got %v", root.Kind)
	}
	want := []doctree.Kind{doctree.KindHeading, doctree.KindParagraph, doctree.KindList, doctree.KindRule, doctree.KindList}
	if len(root.Children) != len(want) {
		t.Fatalf("expected %d children, got %d", len(want), len(root.Children))
	}
	for i, k := range want {
		if root.Children[i].Kind != k {
			t.Errorf("child[%d]: expected %v, got %v", i, k, root.Children[i].Kind)
		}
	}

	para := root.Children[1]
	if len(para.Children) != 2 || para.Children[1].Kind != doctree.KindEmphasis {
		t.Errorf("expected paragraph with emphasis, got %+v", para.Children)
	}

	ul := root.Children[2]
	if ul.Ordered || len(ul.Children) != 2 || ul.Children[0].Kind != doctree.KindListItem {
		t.Errorf("unexpected unordered list %+v", ul)
	}
	if !root.Children[4].Ordered {
		t.Error("expected last list to be ordered")
	}
}
