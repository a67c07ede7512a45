package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/query"
	"github.com/starford/quicknote/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	m           *session.Machine
	newestFirst bool
}

// NewHandler creates a new Handler. newestFirst is the default listing
// order when a request does not give one.
func NewHandler(m *session.Machine, newestFirst bool) *Handler {
	return &Handler{m: m, newestFirst: newestFirst}
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrEmptyPath):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrSettingsUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrOpenFile), errors.Is(err, apperr.ErrDialog):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(codeFor(err), err.Error()))
}

func (h *Handler) writeSession(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, NewSessionResponse(h.m.Snapshot()))
}

// detached drops request cancellation; loads run to completion.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// GetSession handles GET /api/session.
//
//	@Summary		Current session state
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	h.writeSession(w)
}

// SubmitPath handles POST /api/session/path.
//
//	@Summary		Select the notes file by path
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"Notes file path"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/path [post]
func (h *Handler) SubmitPath(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(codeInvalidJSON, "invalid JSON"))
		return
	}
	if err := h.m.SubmitPath(detached(r), req.Path); err != nil {
		h.writeError(w, "submit path", err)
		return
	}
	h.writeSession(w)
}

// Browse handles POST /api/session/browse.
//
//	@Summary		Pick the notes file with the native dialog
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	BrowseResponse
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/browse [post]
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	picked, err := h.m.Browse(detached(r))
	if err != nil {
		h.writeError(w, "browse", err)
		return
	}
	writeJSON(w, http.StatusOK, BrowseResponse{Picked: picked, Session: NewSessionResponse(h.m.Snapshot())})
}

// Reload handles POST /api/session/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.m.Reload(detached(r)); err != nil {
		h.writeError(w, "reload", err)
		return
	}
	h.writeSession(w)
}

// ChangeFile handles POST /api/session/change.
func (h *Handler) ChangeFile(w http.ResponseWriter, _ *http.Request) {
	if err := h.m.ChangeFile(); err != nil {
		h.writeError(w, "change file", err)
		return
	}
	h.writeSession(w)
}

// OpenSource handles POST /api/session/open.
func (h *Handler) OpenSource(w http.ResponseWriter, r *http.Request) {
	if err := h.m.OpenSource(r.Context()); err != nil {
		h.writeError(w, "open source", err)
		return
	}
	h.writeSession(w)
}

// DismissBanner handles DELETE /api/session/banner.
func (h *Handler) DismissBanner(w http.ResponseWriter, _ *http.Request) {
	h.m.DismissBanner()
	h.writeSession(w)
}

// ListNotes handles GET /api/notes.
//
// The ETag is the notes file checksum; a matching If-None-Match yields 304.
//
//	@Summary		List notes, optionally filtered
//	@Tags			notes
//	@Produce		json
//	@Param			q		query		string	false	"Case-insensitive substring of content or timestamp"
//	@Param			order	query		string	false	"Listing order"	Enums(file, newest)
//	@Success		200		{object}	NotesResponse
//	@Success		304
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	newestFirst := h.newestFirst
	switch r.URL.Query().Get("order") {
	case "newest":
		newestFirst = true
	case "file":
		newestFirst = false
	case "":
	default:
		writeJSON(w, http.StatusBadRequest, errorBody(codeInvalidQuery, "order must be file or newest"))
		return
	}

	snap := h.m.Snapshot()
	ready, ok := snap.State.(session.Ready)
	if !ok {
		writeJSON(w, http.StatusOK, newNotesResponse(nil, 0, q, snap.State.Name()))
		return
	}

	etag := `"` + ready.Checksum + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	matched := query.Order(h.m.Engine().Filter(ready.Notes, q), newestFirst)
	writeJSON(w, http.StatusOK, newNotesResponse(matched, len(ready.Notes), q, snap.State.Name()))
}
