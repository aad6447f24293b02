package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docrhythm/internal/article"
	"github.com/dgallion1/docrhythm/internal/docstore"
	"github.com/dgallion1/docrhythm/internal/doctree"
	"github.com/dgallion1/docrhythm/internal/parser"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Publisher is the document host the pipeline writes to.
type Publisher interface {
	FindByHash(ctx context.Context, hash string) (string, error)
	PutDocument(ctx context.Context, id string, req docstore.DocumentRequest) (string, error)
	PutAttachment(ctx context.Context, id, name, contentType string, data []byte) error
}

// WorkerOptions are the service-wide conversion settings.
type WorkerOptions struct {
	Convert article.Options
	Parse   parser.Options
	// AttachDOCX publishes a Word rendition next to the HTML page.
	AttachDOCX bool
}

// Worker processes a single article job.
type Worker struct {
	pub   Publisher
	log   *slog.Logger
	opts  WorkerOptions
	stats *ConversionStats

	// publishSem bounds concurrent publisher calls across workers.
	publishSem chan struct{}
	backoff    func(int) time.Duration
}

func NewWorker(pub Publisher, log *slog.Logger, opts WorkerOptions, stats *ConversionStats, publishSem chan struct{}) *Worker {
	if publishSem == nil {
		publishSem = make(chan struct{}, 1)
	}
	if stats == nil {
		stats = NewConversionStats(time.Hour)
	}
	return &Worker{
		pub:        pub,
		log:        log,
		opts:       opts,
		stats:      stats,
		publishSem: publishSem,
		backoff:    Backoff,
	}
}

// Process runs the full convert-and-publish pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.opts.Parse)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	a, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		a.Title = job.Title
	}
	job.SetTitle(a.Title)
	a.Overrides = a.Overrides.Merge(job.Overrides())

	// Hash the parsed text so the same article in two formats dedups.
	hash := ContentHashHex([]byte(doctree.PlainText(a.Tree)))
	job.SetContentHash(hash)

	// Phase 1.5: Dedup check
	existing, err := w.pub.FindByHash(ctx, hash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if existing != "" {
		log.Info("duplicate article, skipping", "existing_doc_id", existing)
		job.SetDuplicate(existing)
		return
	}

	// Phase 2: Convert
	job.SetStatus(StatusConverting, "converting")
	start := time.Now()
	res, err := article.Convert(a, w.opts.Convert)
	if err != nil {
		log.Error("convert failed", "error", err)
		job.AddError(fmt.Sprintf("convert: %s", err))
		job.SetStatus(StatusFailed, "converting")
		return
	}
	page, err := res.Document()
	if err != nil {
		log.Error("render failed", "error", err)
		job.AddError(fmt.Sprintf("render: %s", err))
		job.SetStatus(StatusFailed, "converting")
		return
	}
	var docx bytes.Buffer
	if w.opts.AttachDOCX {
		if err := res.WriteDOCX(&docx); err != nil {
			log.Warn("docx render failed", "error", err)
			job.AddError(fmt.Sprintf("docx: %s", err))
			docx.Reset()
		}
	}
	w.stats.Record(time.Since(start).Milliseconds(), res.Stats)
	job.SetReflowStats(res.Stats)
	log.Info("converted article",
		"groups", res.Stats.Groups,
		"paragraphs", res.Stats.Paragraphs,
		"reflowed", res.Reflowed,
	)

	// Phase 3: Publish
	job.SetStatus(StatusPublishing, "publishing")
	var url string
	err = w.publish(ctx, job, log, "document", func() error {
		var err error
		url, err = w.pub.PutDocument(ctx, job.DocID, docstore.DocumentRequest{
			Title:       res.Title,
			HTML:        page,
			ContentHash: hash,
			Filename:    job.Filename,
			Format:      a.Format,
			Meta: map[string]any{
				"reflow":     res.Stats,
				"reflowed":   res.Reflowed,
				"created_at": job.CreatedAt.Format(time.RFC3339),
			},
		})
		return err
	})
	if err != nil {
		log.Error("publish failed", "error", err)
		job.AddError(fmt.Sprintf("publish: %s", err))
		job.SetStatus(StatusFailed, "publishing")
		return
	}
	job.SetPublished(url)

	if docx.Len() > 0 {
		name := attachmentName(job.Filename)
		err := w.publish(ctx, job, log, "attachment", func() error {
			return w.pub.PutAttachment(ctx, job.DocID, name, docxContentType, docx.Bytes())
		})
		if err != nil {
			log.Warn("attachment upload failed", "name", name, "error", err)
			job.AddError(fmt.Sprintf("attachment %s: %s", name, err))
		}
	}

	log.Info("published article", "url", url)
	job.SetStatus(StatusCompleted, "done")
}

// publish runs fn under the shared publish semaphore, retrying retryable
// failures with backoff.
func (w *Worker) publish(ctx context.Context, job *Job, log *slog.Logger, op string, fn func() error) error {
	select {
	case w.publishSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.publishSem }()

	var lastErr error
	for attempt := range MaxRetries {
		job.IncrPublishAttempts()
		lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable publish error", "op", op, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func attachmentName(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if name == "" || name == "." {
		name = "article"
	}
	return name + ".docx"
}
