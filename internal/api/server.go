package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docrhythm/internal/config"
	"github.com/dgallion1/docrhythm/internal/docstore"
	"github.com/dgallion1/docrhythm/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Library is the read and delete side of the document host.
type Library interface {
	GetDocument(ctx context.Context, id string) (*docstore.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]docstore.Summary, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Server is the HTTP API server for docrhythm.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	library      Library
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, lib Library, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		library:      lib,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocrhythmAPIKey, s.log))

		r.Post("/api/convert", s.handleConvert)
		r.Post("/api/convert/docx", s.handleConvertDOCX)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/stats", s.handleStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"jobs":        s.orchestrator.JobCount(),
		"conversions": s.orchestrator.Stats().Snapshot(),
	})
}
