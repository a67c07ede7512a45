// Package storage reads the notes file and writes small files atomically.
package storage

import (
	"context"
	"time"

	"github.com/starford/quicknote/internal/models"
)

// Snapshot is the parsed content of the notes file at one point in time.
type Snapshot struct {
	Path     string
	Notes    []models.Note
	Checksum string
	ModTime  time.Time
}

// Source produces the records of a notes file.
type Source interface {
	// ReadNotes reads and parses the file at path. A file without any
	// recognised timestamp yields an empty, non-nil Notes slice.
	ReadNotes(ctx context.Context, path string) (*Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, path string) (*Snapshot, error)

// ReadNotes calls f.
func (f SourceFunc) ReadNotes(ctx context.Context, path string) (*Snapshot, error) {
	return f(ctx, path)
}
