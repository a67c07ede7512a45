package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/quicknote/internal/apperr"
)

// maxBody bounds request bodies.
const maxBody = 64 << 10

// Error codes returned alongside the message.
const (
	codeInvalidJSON       = "invalid_json"
	codeInvalidQuery      = "invalid_query"
	codeUnauthorized      = "unauthorized"
	codeEmptyPath         = "empty_path"
	codeInvalidTransition = "invalid_transition"
	codeSettings          = "settings_unavailable"
	codeOpenFile          = "open_file_failed"
	codeDialog            = "dialog_failed"
	codeInternal          = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

func errorBody(code, msg string) errResponse {
	return errResponse{Error: msg, Code: code}
}

// codeFor maps session errors to stable error codes.
func codeFor(err error) string {
	switch {
	case errors.Is(err, apperr.ErrEmptyPath):
		return codeEmptyPath
	case errors.Is(err, apperr.ErrInvalidTransition):
		return codeInvalidTransition
	case errors.Is(err, apperr.ErrSettingsUnavailable):
		return codeSettings
	case errors.Is(err, apperr.ErrOpenFile):
		return codeOpenFile
	case errors.Is(err, apperr.ErrDialog):
		return codeDialog
	default:
		return codeInternal
	}
}
