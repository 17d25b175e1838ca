package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/docdustry/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/{did}", h.GetDocument)
	r.Get("/documents/{did}/backlinks", h.Backlinks)

	// Search.
	r.Get("/search", h.Search)

	// Latest build.
	r.Get("/report", h.Report)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
