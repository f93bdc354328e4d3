package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pdsa-team/pdsa-backend/internal/docgen"
)

// GenerateDocRequest is the body of POST /api/admin/generate-doc.
type GenerateDocRequest struct {
	URL      string `json:"url"`
	Content  string `json:"content"`
	FileName string `json:"fileName"`
}

// GenerateDocResponse is returned by a successful generation.
type GenerateDocResponse struct {
	Success    bool   `json:"success"`
	FilePath   string `json:"filePath"`
	Markdown   string `json:"markdown"`
	CreateTime string `json:"createTime"`
}

// DocListResponse is returned by GET /api/admin/docs.
type DocListResponse struct {
	Success   bool              `json:"success"`
	Documents []docgen.Document `json:"documents"`
}

// DocsHandler serves document generation and the document library.
type DocsHandler struct {
	pipeline    *docgen.Pipeline
	library     *docgen.Library
	maxBodySize int64
}

// NewDocsHandler creates a docs handler.
func NewDocsHandler(pipeline *docgen.Pipeline, library *docgen.Library, maxBodySize int64) *DocsHandler {
	return &DocsHandler{pipeline: pipeline, library: library, maxBodySize: maxBodySize}
}

// Generate handles POST /api/admin/generate-doc.
func (h *DocsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateDocRequest
	if err := DecodeJSON(w, r, h.maxBodySize, &req); err != nil {
		if errors.Is(err, ErrEmptyBody) {
			Error(w, http.StatusBadRequest, "url or content is required")
			return
		}
		Error(w, DecodeStatus(err), "invalid request body")
		return
	}

	reqID := chiMiddleware.GetReqID(r.Context())
	slog.Info("Document generation requested",
		"request_id", reqID,
		"has_url", req.URL != "",
		"content_length", len(req.Content),
		"file_name", req.FileName,
	)

	res, err := h.pipeline.Generate(r.Context(), docgen.Request{
		URL:      req.URL,
		Content:  req.Content,
		FileName: req.FileName,
	})
	if err != nil {
		h.generateError(w, reqID, err)
		return
	}

	JSON(w, http.StatusOK, GenerateDocResponse{
		Success:    true,
		FilePath:   res.FilePath,
		Markdown:   res.Markdown,
		CreateTime: res.CreateTime,
	})
}

func (h *DocsHandler) generateError(w http.ResponseWriter, reqID string, err error) {
	var fetchErr *docgen.FetchError
	var genErr *docgen.GenerationError
	switch {
	case errors.Is(err, docgen.ErrMissingSource):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &fetchErr):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &genErr):
		slog.Error("Document generation failed", "request_id", reqID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
	default:
		slog.Error("Document generation failed unexpectedly", "request_id", reqID, "error", err)
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// List handles GET /api/admin/docs.
func (h *DocsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.library.List()
	if err != nil {
		slog.Error("Failed to list documents", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	JSON(w, http.StatusOK, DocListResponse{Success: true, Documents: docs})
}

// Preview handles GET /api/admin/docs/{name}, rendering the document as HTML.
func (h *DocsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	html, err := h.library.Render(name)
	switch {
	case errors.Is(err, docgen.ErrInvalidName):
		Error(w, http.StatusBadRequest, "invalid document name")
		return
	case errors.Is(err, docgen.ErrNotFound):
		Error(w, http.StatusNotFound, "document not found")
		return
	case err != nil:
		slog.Error("Failed to render document", "name", name, "error", err)
		Error(w, http.StatusInternalServerError, "failed to render document")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(html); err != nil {
		slog.Debug("Failed to write document preview", "name", name, "error", err)
	}
}

// RegisterRoutes registers admin document routes.
func (h *DocsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/generate-doc", h.Generate)
		r.Get("/docs", h.List)
		r.Get("/docs/{name}", h.Preview)
	})
}
