package settings

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/quicknote/internal/storage"
)

// DefaultFileName is the settings file created in the user's home directory.
const DefaultFileName = ".quicknote_config.json"

type fileSettings struct {
	FilePath string `json:"file_path"`
}

// FileStore keeps the path in a small JSON document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore writing to location, or to
// ~/.quicknote_config.json when location is empty.
func NewFileStore(location string) *FileStore {
	return &FileStore{path: location}
}

// DefaultFilePath returns ~/.quicknote_config.json.
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultFileName), nil
}

func (s *FileStore) location() (string, error) {
	if s.path != "" {
		return s.path, nil
	}
	return DefaultFilePath()
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, err := s.location()
	if err != nil {
		return "", false, unavailable("locate", err)
	}
	data, err := os.ReadFile(loc)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("read", err)
	}
	var fs fileSettings
	if err := json.Unmarshal(data, &fs); err != nil {
		return "", false, unavailable("decode", err)
	}
	return fs.FilePath, true, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, err := s.location()
	if err != nil {
		return unavailable("locate", err)
	}
	data, err := json.Marshal(fileSettings{FilePath: path})
	if err != nil {
		return unavailable("encode", err)
	}
	if err := storage.WriteFileAtomic(loc, data, 0o600); err != nil {
		return unavailable("write", err)
	}
	return nil
}
