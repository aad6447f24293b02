package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docrhythm/internal/api"
	"github.com/dgallion1/docrhythm/internal/config"
	"github.com/dgallion1/docrhythm/internal/docstore"
	"github.com/dgallion1/docrhythm/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the document host client.
	ds := docstore.NewClient(cfg.DocstoreURL, cfg.DocstoreAPIKey)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, ds, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, ds, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		ds.Close()
	}()

	log.Info("starting docrhythm",
		"port", cfg.Port,
		"sentences_per_paragraph", cfg.SentencesPerParagraph,
		"reflow", cfg.ReflowEnabled,
		"workers", cfg.WorkerCount,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
