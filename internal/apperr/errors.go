// Package apperr holds the error taxonomy shared by the session core and its hosts.
package apperr

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrSettingsUnavailable = errors.New("settings unavailable")
	ErrNotesRead           = errors.New("notes read failed")
	ErrOpenFile            = errors.New("open file failed")
	ErrDialog              = errors.New("file dialog failed")
	ErrInvalidTransition   = errors.New("invalid session transition")
	ErrEmptyPath           = errors.New("path is empty")
)

// TextError is a failure whose text is meant to be shown to the user as is.
// Collaborators return it when they have a human-readable reason; anything
// else is replaced by a generic message at the display boundary.
type TextError struct {
	Text string
	Kind error
	Err  error
}

func (e *TextError) Error() string { return e.Text }

// Unwrap exposes both the taxonomy sentinel and the underlying cause.
func (e *TextError) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Text builds a TextError of the given kind.
func Text(kind error, text string, cause error) error {
	return &TextError{Text: text, Kind: kind, Err: cause}
}

// Message returns the user-facing text carried by err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var te *TextError
	if errors.As(err, &te) && te.Text != "" {
		return te.Text
	}
	return fallback
}
