package api

import (
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/session"
	"github.com/starford/quicknote/internal/sse"
)

// PathRequest is the request body for selecting a notes file.
type PathRequest struct {
	Path string `json:"path" example:"/home/me/notes.txt" validate:"required"`
}

// SessionResponse is the wire form of a session snapshot.
type SessionResponse struct {
	State    string     `json:"state" example:"ready" validate:"required"`
	Path     string     `json:"path,omitempty" example:"/home/me/notes.txt"`
	Message  string     `json:"message,omitempty"`
	Banner   string     `json:"banner,omitempty"`
	PathHint string     `json:"path_hint,omitempty"`
	Count    int        `json:"count" example:"42"`
	Checksum string     `json:"checksum,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
	Version  uint64     `json:"version"`
}

// NewSessionResponse projects a snapshot.
func NewSessionResponse(s session.Snapshot) SessionResponse {
	resp := SessionResponse{
		State:    s.State.Name(),
		Banner:   s.Banner,
		PathHint: s.PathHint,
		Version:  s.Version,
	}
	resp.Path, _ = session.PathOf(s.State)
	switch st := s.State.(type) {
	case session.Ready:
		resp.Count = len(st.Notes)
		resp.Checksum = st.Checksum
		loaded := st.LoadedAt
		resp.LoadedAt = &loaded
	case session.Errored:
		resp.Message = st.Message
	}
	return resp
}

// BrowseResponse is returned by POST /api/session/browse.
type BrowseResponse struct {
	Picked  bool            `json:"picked"`
	Session SessionResponse `json:"session"`
}

// NotesResponse wraps a filtered note listing.
type NotesResponse struct {
	Notes []models.NoteView `json:"notes" validate:"required"`
	Total int               `json:"total" example:"42"`
	Query string            `json:"query,omitempty"`
	State string            `json:"state" example:"ready"`
}

func newNotesResponse(notes []models.Note, total int, q, state string) NotesResponse {
	return NotesResponse{
		Notes: lo.Map(notes, func(n models.Note, _ int) models.NoteView { return n.View() }),
		Total: total,
		Query: q,
		State: state,
	}
}

// ReloadedEvent is the notes.reloaded payload.
type ReloadedEvent struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Count    int    `json:"count"`
}

// SessionPublisher returns a session observer forwarding every snapshot to b.
func SessionPublisher(b *sse.Broker) func(session.Snapshot) {
	return func(s session.Snapshot) {
		change := sse.SessionChange{Data: NewSessionResponse(s)}
		if ready, ok := s.State.(session.Ready); ok {
			change.LoadID = strconv.FormatInt(ready.LoadedAt.UnixNano(), 10) + ":" + ready.Checksum
			change.Reloaded = ReloadedEvent{Path: ready.Path, Checksum: ready.Checksum, Count: len(ready.Notes)}
		}
		b.PublishSession(change)
	}
}
