package article

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docrhythm/internal/doctree"
	"github.com/dgallion1/docrhythm/internal/parser"
)

func TestConvertMarkdown(t *testing.T) {
	src := "# 題名\n\nこれは**重要**な情報です。次の文です。三文目です。\n\n- 一\n- 二"
	res, err := ConvertMarkdown(src, Options{SentencesPerParagraph: 2, Reflow: true, Disclosure: "広告を含みます。"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "<h1>題名</h1>\n" +
		"<p>広告を含みます。</p>\n" +
		"<p>これは<strong>重要</strong>な情報です。次の文です。</p>\n" +
		"<p><br/></p>\n" +
		"<p>三文目です。</p>\n" +
		"<ul><li>一</li><li>二</li></ul>\n"
	if res.HTML != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, res.HTML)
	}
	if res.Title != "題名" || !res.Reflowed {
		t.Errorf("unexpected result %q reflowed=%v", res.Title, res.Reflowed)
	}
	if res.Stats.Sentences != 3 || res.Stats.Spacers != 1 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
}

func TestConvertMarkdown_FrontMatterOverrides(t *testing.T) {
	src := "---\nreflow: false\ndisclosure: \"\"\n---\n一。二。"
	res, err := ConvertMarkdown(src, Options{SentencesPerParagraph: 1, Reflow: true, Disclosure: "告知"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reflowed {
		t.Error("expected reflow to be disabled by front matter")
	}
	if res.HTML != "<p>一。二。</p>\n" {
		t.Errorf("unexpected html %q", res.HTML)
	}
}

func TestConvert_DoesNotModifyArticle(t *testing.T) {
	a := &parser.Article{Title: "t", Tree: doctree.NewRoot().Append(doctree.NewParagraph(doctree.NewText("一。二。")))}
	before := a.Tree.Clone()
	if _, err := Convert(a, Options{SentencesPerParagraph: 1, Reflow: true, Disclosure: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doctree.PlainText(a.Tree) != doctree.PlainText(before) || len(a.Tree.Children) != 1 {
		t.Error("article tree was modified")
	}
}

func TestConvert_NoTree(t *testing.T) {
	if _, err := Convert(&parser.Article{}, Options{}); !errors.Is(err, ErrNoTree) {
		t.Errorf("expected ErrNoTree, got %v", err)
	}
	if _, err := Convert(nil, Options{}); !errors.Is(err, ErrNoTree) {
		t.Errorf("expected ErrNoTree, got %v", err)
	}
}

func TestInsertDisclosure(t *testing.T) {
	root := doctree.NewRoot().Append(
		doctree.NewParagraph(doctree.NewText("前")),
		doctree.NewHeading(1, doctree.NewText("題")),
		doctree.NewParagraph(doctree.NewText("後")),
	)
	out := InsertDisclosure(root, "告知")
	if len(out.Children) != 4 || doctree.PlainText(out.Children[2]) != "告知" {
		t.Errorf("expected disclosure after h1, got %+v", out.Children)
	}
	if len(root.Children) != 3 {
		t.Error("input was modified")
	}

	noHeading := doctree.NewRoot().Append(doctree.NewParagraph(doctree.NewText("本文")))
	out = InsertDisclosure(noHeading, "告知")
	if doctree.PlainText(out.Children[0]) != "告知" {
		t.Errorf("expected disclosure first, got %+v", out.Children)
	}
}

func TestResult_DocumentAndDOCX(t *testing.T) {
	res, err := ConvertMarkdown("# 題\n\n本文。", Options{Reflow: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, err := res.Document()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(page, "<title>題</title>") {
		t.Errorf("expected title in page, got %s", page)
	}

	var buf bytes.Buffer
	if err := res.WriteDOCX(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("expected a zip container")
	}
}
