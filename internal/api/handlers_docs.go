package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/docrhythm/internal/docstore"
	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// handleListDocuments lists published documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	docs, err := s.library.ListDocuments(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusBadGateway)
		return
	}
	if docs == nil {
		docs = []docstore.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

// handleDeleteDocument deletes a published document and its attachments.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()

	doc, err := s.library.GetDocument(ctx, docID)
	if err != nil {
		jsonError(w, "failed to read document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if doc == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err := s.library.DeleteDocument(ctx, docID); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.log.Info("deleted document", "doc_id", docID, "title", doc.Title)

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":       docID,
		"deleted":      true,
		"content_hash": doc.ContentHash,
	})
}
