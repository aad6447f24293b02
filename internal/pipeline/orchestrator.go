package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docrhythm/internal/article"
	"github.com/dgallion1/docrhythm/internal/config"
	"github.com/dgallion1/docrhythm/internal/parser"
)

// Orchestrator manages the article conversion pipeline.
type Orchestrator struct {
	jobs       *JobStore
	queue      chan *Job
	pub        Publisher
	log        *slog.Logger
	cfg        config.Config
	opts       WorkerOptions
	stats      *ConversionStats
	publishSem chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, pub Publisher, log *slog.Logger) *Orchestrator {
	publish := cfg.MaxConcurrentPublish
	if publish <= 0 {
		publish = 1
	}
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		pub:   pub,
		log:   log,
		cfg:   cfg,
		opts: WorkerOptions{
			Convert:    ConvertOptions(cfg),
			Parse:      ParseOptions(cfg),
			AttachDOCX: true,
		},
		stats:      NewConversionStats(time.Hour),
		publishSem: make(chan struct{}, publish),
	}
}

// ConvertOptions maps the service configuration to conversion defaults.
func ConvertOptions(cfg config.Config) article.Options {
	return article.Options{
		SentencesPerParagraph: cfg.SentencesPerParagraph,
		Reflow:                cfg.ReflowEnabled,
		Disclosure:            cfg.AdDisclosure,
		Marker:                cfg.EmphasisMarker,
	}
}

// ParseOptions maps the service configuration to importer settings.
func ParseOptions(cfg config.Config) parser.Options {
	return parser.Options{
		Marker:       cfg.EmphasisMarker,
		SanitizeHTML: cfg.SanitizeHTML,
		PDFFallback:  cfg.PDFFallbackPdftotext,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.pub, o.log, o.opts, o.stats, o.publishSem)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// JobCount returns the number of jobs still tracked.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}

// Stats returns the conversion latency tracker.
func (o *Orchestrator) Stats() *ConversionStats {
	return o.stats
}

// Options returns the conversion settings workers use.
func (o *Orchestrator) Options() WorkerOptions {
	return o.opts
}
