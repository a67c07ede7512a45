// Package settings persists the single configured notes file path.
package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/quicknote/internal/apperr"
)

// Store holds the notes file path across process restarts.
type Store interface {
	// Load returns the stored path. ok is false when nothing was ever saved;
	// err is non-nil only when the backend itself cannot be reached.
	Load(ctx context.Context) (path string, ok bool, err error)
	// Save replaces the stored path. A later Load observes either the old
	// or the new value, never a partial write. path is stored as given.
	Save(ctx context.Context, path string) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open builds the Store for backend. location is a file path for the file
// and sqlite backends and ignored for memory.
func Open(backend, location string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(location), nil
	case BackendSQLite:
		s, err := OpenSQLite(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("settings: unknown backend %q", backend)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("settings: %s: %w: %w", op, apperr.ErrSettingsUnavailable, err)
}

// MemoryStore keeps the path in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	path string
	ok   bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path, m.ok, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path, m.ok = path, true
	return nil
}
