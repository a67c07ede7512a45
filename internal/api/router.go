package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Session lifecycle.
	r.Get("/session", h.GetSession)
	r.Post("/session/path", h.SubmitPath)
	r.Post("/session/browse", h.Browse)
	r.Post("/session/reload", h.Reload)
	r.Post("/session/change", h.ChangeFile)
	r.Post("/session/open", h.OpenSource)
	r.Delete("/session/banner", h.DismissBanner)

	// Notes.
	r.Get("/notes", h.ListNotes)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
