package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/host"
	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/query"
	"github.com/starford/quicknote/internal/settings"
	"github.com/starford/quicknote/internal/storage"
)

// User-visible messages.
const (
	MsgSettingsLoad  = "Failed to load settings."
	MsgNotesFallback = "Failed to load notes. Ensure the file exists and has the correct format."
	msgSettingsSave  = "Failed to save settings: "
	msgOpenFile      = "Failed to open file: "
	msgDialog        = "Failed to open file dialog: "
)

// Machine owns the session state. All methods are safe for concurrent use;
// overlapping loads resolve to the most recently requested one.
type Machine struct {
	store  settings.Store
	source storage.Source
	dialog host.FileDialog
	opener host.ExternalOpener
	engine *query.Engine
	logger *slog.Logger
	now    func() time.Time

	// saveMu is held from the settings write until Loading is entered.
	saveMu sync.Mutex

	mu        sync.Mutex
	state     State
	banner    string
	hint      string
	version   uint64
	request   uint64
	listeners map[uint64]func(Snapshot)
	nextID    uint64
}

// Option configures a Machine.
type Option func(*Machine)

// WithDialog sets the file picker used by Browse.
func WithDialog(d host.FileDialog) Option { return func(m *Machine) { m.dialog = d } }

// WithOpener sets the handler used by OpenSource.
func WithOpener(o host.ExternalOpener) Option { return func(m *Machine) { m.opener = o } }

// WithEngine sets the query engine used by Search.
func WithEngine(e *query.Engine) Option { return func(m *Machine) { m.engine = e } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(m *Machine) { m.logger = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// New returns a Machine in the Unconfigured state. Call Start to restore
// the saved path.
func New(store settings.Store, source storage.Source, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		source:    source,
		engine:    query.NewEngine(),
		logger:    slog.Default(),
		now:       time.Now,
		state:     Unconfigured{},
		listeners: make(map[uint64]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current session view.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{State: m.state, Banner: m.banner, PathHint: m.hint, Version: m.version}
}

// OnChange registers fn to be called after every change. The returned
// function removes it. fn runs on the goroutine that caused the change and
// must not block.
func (m *Machine) OnChange(fn func(Snapshot)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Ordered wraps fn so that it sees snapshots in Version order. Listeners run
// outside the session lock, so two transitions may deliver out of order; a
// snapshot no newer than one already delivered is dropped.
func Ordered(fn func(Snapshot)) func(Snapshot) {
	var (
		mu   sync.Mutex
		last uint64
		seen bool
	)
	return func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if seen && s.Version <= last {
			return
		}
		seen, last = true, s.Version
		fn(s)
	}
}

// mutate applies fn under the lock, then notifies listeners.
func (m *Machine) mutate(fn func()) {
	m.mutateIf(func() bool {
		fn()
		return true
	})
}

// mutateIf is mutate for changes that may turn out to be no-ops. It reports
// whether fn changed anything.
func (m *Machine) mutateIf(fn func() bool) bool {
	m.mu.Lock()
	if !fn() {
		m.mu.Unlock()
		return false
	}
	m.version++
	snap := m.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return true
}

// Start restores the saved path, if any, and loads it.
func (m *Machine) Start(ctx context.Context) error {
	path, ok, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("session: settings load failed", slog.String("error", err.Error()))
		m.mutate(func() {
			m.state = Unconfigured{}
			m.banner = MsgSettingsLoad
		})
		return err
	}
	if !ok || path == "" {
		m.logger.Info("session: no notes file configured")
		return nil
	}
	m.mutate(func() { m.hint = path })
	return m.load(ctx, path)
}

// NormalizePath strips one pair of surrounding double quotes and blank
// space, as left behind by "copy as path" in file managers.
func NormalizePath(raw string) string {
	s := strings.TrimPrefix(raw, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}

// SubmitPath normalises a manually entered path and selects it.
func (m *Machine) SubmitPath(ctx context.Context, raw string) error {
	path := NormalizePath(raw)
	if path == "" {
		return apperr.ErrEmptyPath
	}
	return m.SelectPath(ctx, path)
}

// SelectPath saves path and loads it. It is valid while Unconfigured,
// Loading (the new request supersedes the old) or Errored (retry).
func (m *Machine) SelectPath(ctx context.Context, path string) error {
	if path == "" {
		return apperr.ErrEmptyPath
	}
	m.mu.Lock()
	st := m.state
	m.mu.Unlock()
	switch st.(type) {
	case Unconfigured, Loading, Errored:
	case Ready:
		return fmt.Errorf("session: select path while %s: %w", st.Name(), apperr.ErrInvalidTransition)
	}
	m.mutate(func() { m.hint = path })
	return m.load(ctx, path)
}

// Browse shows the file dialog and selects the picked file. It reports
// whether a file was picked. Dialog failures become a banner.
func (m *Machine) Browse(ctx context.Context) (bool, error) {
	m.mu.Lock()
	st := m.state
	m.mu.Unlock()
	switch st.(type) {
	case Unconfigured, Errored:
	case Loading, Ready:
		return false, fmt.Errorf("session: browse while %s: %w", st.Name(), apperr.ErrInvalidTransition)
	}

	if m.dialog == nil {
		err := fmt.Errorf("session: no file dialog: %w", apperr.ErrDialog)
		m.mutate(func() { m.banner = msgDialog + "not available" })
		return false, err
	}
	path, ok, err := m.dialog.PickFile(ctx)
	if err != nil {
		m.logger.Warn("session: file dialog failed", slog.String("error", err.Error()))
		m.mutate(func() { m.banner = msgDialog + err.Error() })
		if !errors.Is(err, apperr.ErrDialog) {
			err = fmt.Errorf("%w: %w", apperr.ErrDialog, err)
		}
		return false, err
	}
	if !ok {
		return false, nil
	}
	return true, m.SelectPath(ctx, path)
}

// Reload re-reads the current file. It is valid while Loading, Ready, or
// Errored with a known path.
func (m *Machine) Reload(ctx context.Context) error {
	m.mu.Lock()
	st := m.state
	m.mu.Unlock()
	path, ok := PathOf(st)
	if !ok {
		return fmt.Errorf("session: reload while %s: %w", st.Name(), apperr.ErrInvalidTransition)
	}
	return m.load(ctx, path)
}

// ChangeFile returns to Unconfigured, keeping the old path as the entry
// hint. The saved setting is left alone until a new path is selected, and
// any load still in flight is discarded when it completes.
func (m *Machine) ChangeFile() error {
	var invalid State
	m.mu.Lock()
	if _, ok := m.state.(Unconfigured); ok {
		invalid = m.state
	}
	m.mu.Unlock()
	if invalid != nil {
		return fmt.Errorf("session: change file while %s: %w", invalid.Name(), apperr.ErrInvalidTransition)
	}

	m.mutate(func() {
		if path, ok := PathOf(m.state); ok {
			m.hint = path
		}
		m.request++
		m.state = Unconfigured{}
		m.banner = ""
	})
	return nil
}

// OpenSource asks the host to open the current file. Failures become a
// banner; the state is untouched.
func (m *Machine) OpenSource(ctx context.Context) error {
	m.mu.Lock()
	path, ok := PathOf(m.state)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if m.opener == nil {
		m.mutate(func() { m.banner = msgOpenFile + "not available" })
		return fmt.Errorf("session: no opener: %w", apperr.ErrOpenFile)
	}
	if err := m.opener.Open(ctx, path); err != nil {
		m.logger.Warn("session: open file failed", slog.String("path", path), slog.String("error", err.Error()))
		m.mutate(func() { m.banner = msgOpenFile + err.Error() })
		if !errors.Is(err, apperr.ErrOpenFile) {
			err = fmt.Errorf("%w: %w", apperr.ErrOpenFile, err)
		}
		return err
	}
	return nil
}

// DismissBanner clears the banner.
func (m *Machine) DismissBanner() {
	m.mutate(func() { m.banner = "" })
}

// Notes returns the loaded records, or nil unless Ready.
func (m *Machine) Notes() []models.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.state.(Ready); ok {
		return r.Notes
	}
	return nil
}

// Search filters the loaded records with q. Outside Ready it returns an
// empty slice.
func (m *Machine) Search(q string) []models.Note {
	notes := m.Notes()
	if notes == nil {
		return []models.Note{}
	}
	return m.engine.Filter(notes, q)
}

// Engine returns the query engine used by Search.
func (m *Machine) Engine() *query.Engine { return m.engine }

// load persists path, then reads it. Only the newest request may move the
// session out of Loading.
func (m *Machine) load(ctx context.Context, path string) error {
	id, err := m.begin(ctx, path)
	if err != nil {
		return err
	}
	if id == 0 {
		m.logger.Debug("session: superseded before loading", slog.String("path", path))
		return nil
	}
	m.logger.Debug("session: loading", slog.String("path", path), slog.Uint64("request", id))

	snap, err := m.source.ReadNotes(ctx, path)

	applied := m.mutateIf(func() bool {
		cur, loading := m.state.(Loading)
		if id != m.request || !loading || cur.Path != path {
			return false
		}
		if err != nil {
			m.state = Errored{Path: path, Message: apperr.Message(err, MsgNotesFallback)}
			return true
		}
		m.state = Ready{Path: path, Notes: snap.Notes, Checksum: snap.Checksum, LoadedAt: m.now()}
		m.banner = ""
		return true
	})

	switch {
	case !applied:
		m.logger.Debug("session: discarded stale load", slog.String("path", path), slog.Uint64("request", id))
	case err != nil:
		m.logger.Warn("session: load failed", slog.String("path", path), slog.String("error", err.Error()))
	default:
		m.logger.Info("session: notes loaded", slog.String("path", path), slog.Int("count", len(snap.Notes)))
	}
	return nil
}

// begin saves path and enters Loading under a fresh request number. Saves are
// serialised, so the stored path always belongs to the newest request. It
// returns 0 when ChangeFile arrived during the save.
func (m *Machine) begin(ctx context.Context, path string) (uint64, error) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	seen := m.request
	m.mu.Unlock()

	if err := m.store.Save(ctx, path); err != nil {
		m.logger.Error("session: settings save failed", slog.String("path", path), slog.String("error", err.Error()))
		m.mutate(func() { m.banner = msgSettingsSave + err.Error() })
		return 0, err
	}

	var id uint64
	m.mutateIf(func() bool {
		if m.request != seen {
			return false
		}
		m.request++
		id = m.request
		m.state = Loading{Path: path}
		return true
	})
	return id, nil
}
