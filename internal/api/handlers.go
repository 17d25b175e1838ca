package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/docdustry/internal/apperr"
	"github.com/starford/docdustry/internal/docservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List built documents in corpus order
//	@Tags			documents
//	@Produce		json
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListDocuments(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// GetDocument handles GET /api/documents/{did}.
//
//	@Summary		Get a single built document by id
//	@Tags			documents
//	@Produce		json
//	@Param			did	path		string	true	"Document id"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{did} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	did := chi.URLParam(r, "did")
	doc, err := h.svc.GetDocument(r.Context(), did)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get document failed", slog.String("did", did), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Backlinks handles GET /api/documents/{did}/backlinks.
//
//	@Summary		List documents linking to a document
//	@Tags			documents
//	@Produce		json
//	@Param			did	path		string	true	"Document id"
//	@Success		200	{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/documents/{did}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	did := chi.URLParam(r, "did")
	links, err := h.svc.Backlinks(r.Context(), did)
	if err != nil {
		slog.Error("backlinks failed", slog.String("did", did), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if links == nil {
		links = []string{}
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{DID: did, Backlinks: links})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across persisted documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		501		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		if errors.Is(err, apperr.ErrUnsupported) {
			writeJSON(w, http.StatusNotImplemented, errorBody("search index not configured"))
			return
		}
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{DID: hit.DID, Title: hit.Title, Snippet: hit.Snippet})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Report handles GET /api/report.
//
//	@Summary		Outcome of the latest build
//	@Tags			build
//	@Produce		json
//	@Success		200	{object}	BuildSummary
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	summary := h.svc.Summary()
	if summary == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no build yet"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
