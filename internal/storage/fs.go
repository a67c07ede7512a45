package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/parser"
)

// FS implements Source backed by the local file system.
type FS struct {
	parser *parser.Parser
}

// NewFS creates a Source that parses files with p (parser.New() if nil).
func NewFS(p *parser.Parser) *FS {
	if p == nil {
		p = parser.New()
	}
	return &FS{parser: p}
}

// ReadNotes reads the whole file and parses it. Failures carry a message
// suitable for display and wrap apperr.ErrNotesRead.
func (f *FS) ReadNotes(ctx context.Context, path string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, readError(path, err)
	}
	if info.IsDir() {
		return nil, readError(path, fmt.Errorf("is a directory"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, readError(path, err)
	}
	return &Snapshot{
		Path:     path,
		Notes:    f.parser.Parse(string(data)),
		Checksum: checksum(data),
		ModTime:  info.ModTime(),
	}, nil
}

func readError(path string, err error) error {
	return apperr.Text(apperr.ErrNotesRead, fmt.Sprintf("Error reading file at '%s': %v", path, err), err)
}

// WriteFileAtomic writes content to path: tmp file → fsync → rename. A
// concurrent reader sees either the old or the new content, never a mix.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".quicknote-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
