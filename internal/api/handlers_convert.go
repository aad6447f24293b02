package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/docrhythm/internal/article"
	"github.com/dgallion1/docrhythm/internal/parser"
	"github.com/dgallion1/docrhythm/internal/pipeline"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type convertRequest struct {
	Markdown string `json:"markdown"`
	Title    string `json:"title,omitempty"`
	// Document asks for a complete HTML page instead of a fragment.
	Document bool `json:"document,omitempty"`
	parser.Overrides
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeConvert(w, r)
	if !ok {
		return
	}
	res, err := s.convert(req)
	if err != nil {
		jsonError(w, "convert failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	out := res.HTML
	if req.Document {
		if out, err = res.Document(); err != nil {
			jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":    res.Title,
		"html":     out,
		"reflowed": res.Reflowed,
		"stats":    res.Stats,
	})
}

func (s *Server) handleConvertDOCX(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeConvert(w, r)
	if !ok {
		return
	}
	res, err := s.convert(req)
	if err != nil {
		jsonError(w, "convert failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var buf bytes.Buffer
	if err := res.WriteDOCX(&buf); err != nil {
		jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	name := sanitizeFilename(res.Title) + ".docx"
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	w.Write(buf.Bytes())
}

func (s *Server) decodeConvert(w http.ResponseWriter, r *http.Request) (convertRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if strings.TrimSpace(req.Markdown) == "" {
		jsonError(w, "markdown is required", http.StatusBadRequest)
		return req, false
	}
	if n := req.SentencesPerParagraph; n != nil && *n < 1 {
		jsonError(w, fmt.Sprintf("sentences_per_paragraph must be at least 1, got %d", *n), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// convert runs a synchronous conversion. Request fields win over the
// article's front matter, which wins over the service configuration.
func (s *Server) convert(req convertRequest) (*article.Result, error) {
	p := &parser.MarkdownParser{Marker: s.cfg.EmphasisMarker}
	a, err := p.Parse(strings.NewReader(req.Markdown), "article.md")
	if err != nil {
		return nil, err
	}
	if req.Title != "" {
		a.Title = req.Title
	}
	a.Overrides = a.Overrides.Merge(req.Overrides)

	start := time.Now()
	res, err := article.Convert(a, pipeline.ConvertOptions(s.cfg))
	if err != nil {
		return nil, err
	}
	s.orchestrator.Stats().Record(time.Since(start).Milliseconds(), res.Stats)
	return res, nil
}
