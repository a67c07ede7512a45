// Package testutil provides shared test helpers for notes files and sessions.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quicknote/internal/parser"
	"github.com/starford/quicknote/internal/session"
	"github.com/starford/quicknote/internal/settings"
	"github.com/starford/quicknote/internal/storage"
)

// SampleNotes is a small notes file with three entries in file order.
const SampleNotes = `[2024-02-13 09:15]
Standup moved to 10.
------------------
[2024-02-13 18:05]
Call Bob about the invoice.
------------------
[2024-02-14 08:00]
Buy flowers.
`

// NotesFile writes content to a notes.txt in a temporary directory and
// returns its path.
func NotesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Session returns a Machine backed by an in-memory settings store and the
// real file source, with the store already pointing at path when path is
// non-empty. Start has not been called.
func Session(t *testing.T, path string, opts ...session.Option) (*session.Machine, *settings.MemoryStore) {
	t.Helper()
	store := settings.NewMemoryStore()
	if path != "" {
		if err := store.Save(t.Context(), path); err != nil {
			t.Fatal(err)
		}
	}
	return session.New(store, storage.NewFS(parser.New()), opts...), store
}
