package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/dgallion1/docrhythm/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		SentencesPerParagraph: 2,
		EmphasisMarker:        "**",
		ReflowEnabled:         true,
		SanitizeHTML:          true,
		WorkerCount:           2,
		MaxQueueSize:          4,
		MaxConcurrentPublish:  1,
		JobTTL:                time.Hour,
	}
}

func waitForStatus(t *testing.T, job *Job, want JobStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.Snapshot().Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s: expected status %q, got %q", job.ID, want, job.Snapshot().Status)
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	pub := newFakePublisher()
	o := NewOrchestrator(testConfig(), pub, testLogger())
	o.Start(context.Background())
	defer o.Stop()

	a := NewJob("a.md", "", []byte(sampleMarkdown))
	b := NewJob("b.txt", "", []byte("別の本文です。"))
	for _, job := range []*Job{a, b} {
		if err := o.Submit(job); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	waitForStatus(t, a, StatusCompleted)
	waitForStatus(t, b, StatusCompleted)

	if o.GetJob(a.ID) != a {
		t.Error("expected job to be retrievable by id")
	}
	if o.JobCount() != 2 {
		t.Errorf("expected 2 tracked jobs, got %d", o.JobCount())
	}
	if got := o.Stats().Snapshot().Count; got != 2 {
		t.Errorf("expected 2 conversion samples, got %d", got)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, newFakePublisher(), testLogger())
	defer o.Stop()

	first := NewJob("a.md", "", []byte(sampleMarkdown))
	second := NewJob("b.md", "", []byte(sampleMarkdown))
	if err := o.Submit(first); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if snap := second.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("expected queue_full failure, got %q/%q", snap.Status, snap.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestConvertOptions(t *testing.T) {
	cfg := testConfig()
	cfg.AdDisclosure = "PR"
	opts := ConvertOptions(cfg)
	if opts.SentencesPerParagraph != 2 || !opts.Reflow || opts.Disclosure != "PR" || opts.Marker != "**" {
		t.Errorf("unexpected options %+v", opts)
	}
	p := ParseOptions(cfg)
	if p.Marker != "**" || !p.SanitizeHTML || p.PDFFallback {
		t.Errorf("unexpected parse options %+v", p)
	}
}
