package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docrhythm/internal/article"
	"github.com/dgallion1/docrhythm/internal/docstore"
	"github.com/dgallion1/docrhythm/internal/parser"
)

const sampleMarkdown = "# 題\n\n一文目。二文目。三文目。\n"

type attachment struct {
	name        string
	contentType string
	data        []byte
}

type fakePublisher struct {
	mu          sync.Mutex
	existing    string
	findErr     error
	putErrs     []error
	docs        map[string]docstore.DocumentRequest
	attachments map[string]attachment
	puts        int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		docs:        make(map[string]docstore.DocumentRequest),
		attachments: make(map[string]attachment),
	}
}

func (f *fakePublisher) FindByHash(ctx context.Context, hash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing, f.findErr
}

func (f *fakePublisher) PutDocument(ctx context.Context, id string, req docstore.DocumentRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.docs[id] = req
	return "https://docs.example.com/d/" + id, nil
}

func (f *fakePublisher) PutAttachment(ctx context.Context, id, name, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments[id] = attachment{name: name, contentType: contentType, data: data}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorker(pub Publisher, attach bool) *Worker {
	w := NewWorker(pub, testLogger(), WorkerOptions{
		Convert:    article.Options{SentencesPerParagraph: 2, Reflow: true},
		AttachDOCX: attach,
	}, nil, nil)
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func TestWorker_ProcessPublishes(t *testing.T) {
	pub := newFakePublisher()
	w := testWorker(pub, true)
	job := NewJob("記事.md", "", []byte(sampleMarkdown))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	if snap.Title != "題" {
		t.Errorf("expected title from heading, got %q", snap.Title)
	}
	if snap.URL != "https://docs.example.com/d/"+job.DocID {
		t.Errorf("unexpected url %q", snap.URL)
	}
	if snap.ContentHash == "" {
		t.Error("expected content hash")
	}
	if snap.Progress.Reflow.Sentences != 3 || snap.Progress.Reflow.Paragraphs != 2 {
		t.Errorf("unexpected reflow stats %+v", snap.Progress.Reflow)
	}

	doc, ok := pub.docs[job.DocID]
	if !ok {
		t.Fatal("expected document to be published")
	}
	for _, want := range []string{"<!DOCTYPE html>", "<h1>題</h1>", "<p>一文目。二文目。</p>", "<p>三文目。</p>"} {
		if !strings.Contains(doc.HTML, want) {
			t.Errorf("expected published html to contain %q:\n%s", want, doc.HTML)
		}
	}
	if doc.ContentHash != snap.ContentHash || doc.Format != "markdown" || doc.Filename != "記事.md" {
		t.Errorf("unexpected document request %+v", doc)
	}

	att, ok := pub.attachments[job.DocID]
	if !ok {
		t.Fatal("expected docx attachment")
	}
	if att.name != "記事.docx" || att.contentType != docxContentType {
		t.Errorf("unexpected attachment %q %q", att.name, att.contentType)
	}
	if !bytes.HasPrefix(att.data, []byte("PK")) {
		t.Error("expected a zip container for the docx attachment")
	}

	if got := w.stats.Snapshot().Count; got != 1 {
		t.Errorf("expected 1 recorded conversion, got %d", got)
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	pub := newFakePublisher()
	pub.existing = "doc-old"
	w := testWorker(pub, false)
	job := NewJob("a.md", "", []byte(sampleMarkdown))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Fatalf("expected status %q, got %q", StatusDupSkipped, snap.Status)
	}
	if snap.Progress.DuplicateOf != "doc-old" {
		t.Errorf("expected duplicate_of doc-old, got %q", snap.Progress.DuplicateOf)
	}
	if pub.puts != 0 {
		t.Errorf("expected no publish calls, got %d", pub.puts)
	}
}

func TestWorker_DedupErrorProceeds(t *testing.T) {
	pub := newFakePublisher()
	pub.findErr = errors.New("docstore down")
	w := testWorker(pub, false)
	job := NewJob("a.md", "", []byte(sampleMarkdown))

	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusCompleted {
		t.Errorf("expected completion despite dedup failure, got %q", snap.Status)
	}
}

func TestWorker_SameTextAcrossFormatsHashesEqual(t *testing.T) {
	pub := newFakePublisher()
	w := testWorker(pub, false)
	md := NewJob("a.md", "", []byte("本文です。"))
	txt := NewJob("a.txt", "", []byte("本文です。"))

	w.Process(context.Background(), md)
	w.Process(context.Background(), txt)

	if md.Snapshot().ContentHash != txt.Snapshot().ContentHash {
		t.Error("expected identical hashes for identical text")
	}
}

func TestWorker_RetriesRetryableErrors(t *testing.T) {
	pub := newFakePublisher()
	pub.putErrs = []error{
		&docstore.RetryableError{StatusCode: 503, Message: "busy"},
		&docstore.RetryableError{StatusCode: 429, Message: "slow down"},
	}
	w := testWorker(pub, false)
	job := NewJob("a.md", "", []byte(sampleMarkdown))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q", StatusCompleted, snap.Status)
	}
	if snap.Progress.PublishAttempts != 3 {
		t.Errorf("expected 3 publish attempts, got %d", snap.Progress.PublishAttempts)
	}
}

func TestWorker_GivesUpAfterMaxRetries(t *testing.T) {
	pub := newFakePublisher()
	for range MaxRetries {
		pub.putErrs = append(pub.putErrs, &docstore.RetryableError{StatusCode: 502})
	}
	w := testWorker(pub, false)
	job := NewJob("a.md", "", []byte(sampleMarkdown))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "publishing" {
		t.Fatalf("expected failure while publishing, got %q/%q", snap.Status, snap.Phase)
	}
	if snap.Progress.PublishAttempts != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, snap.Progress.PublishAttempts)
	}
}

func TestWorker_NonRetryableFailsFast(t *testing.T) {
	pub := newFakePublisher()
	pub.putErrs = []error{errors.New("bad request")}
	w := testWorker(pub, false)
	job := NewJob("a.md", "", []byte(sampleMarkdown))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if snap.Progress.PublishAttempts != 1 {
		t.Errorf("expected 1 attempt, got %d", snap.Progress.PublishAttempts)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "bad request") {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
}

func TestWorker_UnsupportedFormat(t *testing.T) {
	pub := newFakePublisher()
	w := testWorker(pub, false)
	job := NewJob("data.xyz", "", []byte("x"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("expected parse failure, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestWorker_JobOverridesWin(t *testing.T) {
	pub := newFakePublisher()
	w := testWorker(pub, false)
	src := "---\nsentences_per_paragraph: 3\n---\n# 題\n\n一。二。三。\n"
	job := NewJob("a.md", "別題", []byte(src))
	off := false
	job.SetOverrides(parser.Overrides{Reflow: &off})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q", StatusCompleted, snap.Status)
	}
	if snap.Title != "別題" {
		t.Errorf("expected request title to win, got %q", snap.Title)
	}
	doc := pub.docs[job.DocID]
	if reflowed, _ := doc.Meta["reflowed"].(bool); reflowed {
		t.Error("expected reflow disabled by job override")
	}
	if !strings.Contains(doc.HTML, "<p>一。二。三。</p>") {
		t.Errorf("expected paragraph untouched, got:\n%s", doc.HTML)
	}
}

func TestAttachmentName(t *testing.T) {
	tests := map[string]string{
		"記事.md":        "記事.docx",
		"dir/post.html": "post.docx",
		"noext":         "noext.docx",
	}
	for in, want := range tests {
		if got := attachmentName(in); got != want {
			t.Errorf("attachmentName(%q) = %q, want %q", in, got, want)
		}
	}
}
