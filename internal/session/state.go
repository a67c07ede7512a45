// Package session drives the lifecycle of one notes-viewing session:
// choosing a file, loading it, searching it, and switching to another.
package session

import (
	"time"

	"github.com/starford/quicknote/internal/models"
)

// State is the closed set of session states. Switches over State should
// cover Unconfigured, Loading, Ready and Errored.
type State interface {
	Name() string
	isState()
}

// State names as reported by Name.
const (
	NameUnconfigured = "unconfigured"
	NameLoading      = "loading"
	NameReady        = "ready"
	NameError        = "error"
)

// Unconfigured means no notes file is selected.
type Unconfigured struct{}

// Loading means the file at Path is being read.
type Loading struct {
	Path string
}

// Ready holds the parsed records of Path.
type Ready struct {
	Path     string
	Notes    []models.Note
	Checksum string
	LoadedAt time.Time
}

// Errored means the last load of Path failed with Message.
type Errored struct {
	Path    string
	Message string
}

func (Unconfigured) Name() string { return NameUnconfigured }
func (Loading) Name() string      { return NameLoading }
func (Ready) Name() string        { return NameReady }
func (Errored) Name() string      { return NameError }

func (Unconfigured) isState() {}
func (Loading) isState()      {}
func (Ready) isState()        {}
func (Errored) isState()      {}

// PathOf returns the notes file path a state refers to.
func PathOf(s State) (string, bool) {
	switch st := s.(type) {
	case Unconfigured:
		return "", false
	case Loading:
		return st.Path, true
	case Ready:
		return st.Path, true
	case Errored:
		return st.Path, st.Path != ""
	default:
		return "", false
	}
}

// Snapshot is a consistent view of the session for UI layers.
type Snapshot struct {
	State State
	// Banner is a user-visible message kept alongside State, e.g. a failed
	// "open in external app". It does not change State.
	Banner string
	// PathHint pre-fills the manual path entry.
	PathHint string
	// Version increases with every change.
	Version uint64
}
