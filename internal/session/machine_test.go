package session_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/host"
	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/session"
	"github.com/starford/quicknote/internal/settings"
	"github.com/starford/quicknote/internal/storage"
	"github.com/starford/quicknote/internal/testutil"
)

// recorder logs the order in which collaborators are called.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type stubStore struct {
	rec     *recorder
	path    string
	ok      bool
	loadErr error
	saveErr error
}

func (s *stubStore) Load(context.Context) (string, bool, error) {
	return s.path, s.ok, s.loadErr
}

func (s *stubStore) Save(_ context.Context, path string) error {
	if s.rec != nil {
		s.rec.add("save " + path)
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	s.path, s.ok = path, true
	return nil
}

func staticSource(rec *recorder, notes []models.Note) storage.Source {
	return storage.SourceFunc(func(_ context.Context, path string) (*storage.Snapshot, error) {
		if rec != nil {
			rec.add("read " + path)
		}
		return &storage.Snapshot{Path: path, Notes: notes, Checksum: "sum-" + path}, nil
	})
}

func TestStart_NothingSaved(t *testing.T) {
	m := session.New(settings.NewMemoryStore(), staticSource(nil, nil))
	require.NoError(t, m.Start(t.Context()))

	snap := m.Snapshot()
	assert.IsType(t, session.Unconfigured{}, snap.State)
	assert.Empty(t, snap.Banner)
}

func TestStart_RestoresSavedPath(t *testing.T) {
	path := testutil.NotesFile(t, testutil.SampleNotes)
	m, _ := testutil.Session(t, path)
	require.NoError(t, m.Start(t.Context()))

	ready, ok := m.Snapshot().State.(session.Ready)
	require.True(t, ok, "state = %#v", m.Snapshot().State)
	assert.Equal(t, path, ready.Path)
	require.Len(t, ready.Notes, 3)
	assert.Equal(t, "Standup moved to 10.", ready.Notes[0].Content)
	assert.NotEmpty(t, ready.Checksum)
}

func TestStart_SettingsUnavailable(t *testing.T) {
	store := &stubStore{loadErr: apperr.ErrSettingsUnavailable}
	m := session.New(store, staticSource(nil, nil))

	err := m.Start(t.Context())
	assert.ErrorIs(t, err, apperr.ErrSettingsUnavailable)
	snap := m.Snapshot()
	assert.IsType(t, session.Unconfigured{}, snap.State)
	assert.Equal(t, session.MsgSettingsLoad, snap.Banner)
}

func TestSaveBeforeRead(t *testing.T) {
	rec := &recorder{}
	store := &stubStore{rec: rec, path: "/a.txt", ok: true}
	m := session.New(store, staticSource(rec, nil))

	require.NoError(t, m.Start(t.Context()))
	require.NoError(t, m.ChangeFile())
	require.NoError(t, m.SelectPath(t.Context(), "/b.txt"))
	require.NoError(t, m.Reload(t.Context()))

	assert.Equal(t, []string{
		"save /a.txt", "read /a.txt",
		"save /b.txt", "read /b.txt",
		"save /b.txt", "read /b.txt",
	}, rec.list())
}

func TestSaveFailure_KeepsState(t *testing.T) {
	rec := &recorder{}
	store := &stubStore{rec: rec, saveErr: errors.New("disk full")}
	m := session.New(store, staticSource(rec, nil))

	err := m.SelectPath(t.Context(), "/a.txt")
	require.Error(t, err)

	snap := m.Snapshot()
	assert.IsType(t, session.Unconfigured{}, snap.State)
	assert.Equal(t, "Failed to save settings: disk full", snap.Banner)
	assert.Equal(t, []string{"save /a.txt"}, rec.list(), "file must not be read")
}

func TestSubmitPath_Normalises(t *testing.T) {
	path := testutil.NotesFile(t, testutil.SampleNotes)
	m, store := testutil.Session(t, "")

	require.NoError(t, m.SubmitPath(t.Context(), `  "`+path+`"  `))

	saved, ok, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, path, saved)
	assert.IsType(t, session.Ready{}, m.Snapshot().State)
}

func TestSubmitPath_Empty(t *testing.T) {
	m, store := testutil.Session(t, "")
	for _, raw := range []string{"", "   ", `""`, `" "`} {
		assert.ErrorIs(t, m.SubmitPath(t.Context(), raw), apperr.ErrEmptyPath, "raw=%q", raw)
	}
	_, ok, _ := store.Load(t.Context())
	assert.False(t, ok)
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		`"/home/me/notes.txt"`: "/home/me/notes.txt",
		` /home/me/notes.txt `: "/home/me/notes.txt",
		`"C:\notes.txt`:        `C:\notes.txt`,
		`/a "b".txt`:           `/a "b".txt`,
	}
	for in, want := range cases {
		assert.Equal(t, want, session.NormalizePath(in), in)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	m, _ := testutil.Session(t, "")
	missing := t.TempDir() + "/nope.txt"
	require.NoError(t, m.SelectPath(t.Context(), missing))

	errored, ok := m.Snapshot().State.(session.Errored)
	require.True(t, ok)
	assert.Equal(t, missing, errored.Path)
	assert.True(t, strings.HasPrefix(errored.Message, "Error reading file at '"+missing+"'"), errored.Message)
}

func TestLoad_GenericFailureMessage(t *testing.T) {
	src := storage.SourceFunc(func(context.Context, string) (*storage.Snapshot, error) {
		return nil, errors.New("boom")
	})
	m := session.New(settings.NewMemoryStore(), src)
	require.NoError(t, m.SelectPath(t.Context(), "/a.txt"))

	errored, ok := m.Snapshot().State.(session.Errored)
	require.True(t, ok)
	assert.Equal(t, session.MsgNotesFallback, errored.Message)
}

func TestErrored_RetryAndReload(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/notes.txt"
	m, _ := testutil.Session(t, "")

	require.NoError(t, m.SelectPath(t.Context(), path))
	assert.IsType(t, session.Errored{}, m.Snapshot().State)

	require.NoError(t, os.WriteFile(path, []byte(testutil.SampleNotes), 0o644))
	require.NoError(t, m.Reload(t.Context()))
	assert.IsType(t, session.Ready{}, m.Snapshot().State)
}

func TestReload_PicksUpChanges(t *testing.T) {
	path := testutil.NotesFile(t, testutil.SampleNotes)
	m, _ := testutil.Session(t, path)
	require.NoError(t, m.Start(t.Context()))
	before := m.Snapshot().State.(session.Ready)

	require.NoError(t, os.WriteFile(path, []byte(testutil.SampleNotes+"[2024-02-15 07:00]\nNew.\n"), 0o644))
	require.NoError(t, m.Reload(t.Context()))

	after := m.Snapshot().State.(session.Ready)
	assert.Len(t, after.Notes, 4)
	assert.NotEqual(t, before.Checksum, after.Checksum)
}

func TestInvalidTransitions(t *testing.T) {
	m := session.New(settings.NewMemoryStore(), staticSource(nil, nil))

	assert.ErrorIs(t, m.Reload(t.Context()), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, m.ChangeFile(), apperr.ErrInvalidTransition)

	require.NoError(t, m.SelectPath(t.Context(), "/a.txt"))
	require.IsType(t, session.Ready{}, m.Snapshot().State)

	assert.ErrorIs(t, m.SelectPath(t.Context(), "/b.txt"), apperr.ErrInvalidTransition)
	_, err := m.Browse(t.Context())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestChangeFile(t *testing.T) {
	m := session.New(settings.NewMemoryStore(), staticSource(nil, nil))
	require.NoError(t, m.SelectPath(t.Context(), "/a.txt"))
	require.NoError(t, m.ChangeFile())

	snap := m.Snapshot()
	assert.IsType(t, session.Unconfigured{}, snap.State)
	assert.Equal(t, "/a.txt", snap.PathHint)

	require.NoError(t, m.SelectPath(t.Context(), "/b.txt"))
	assert.Equal(t, "/b.txt", m.Snapshot().State.(session.Ready).Path)
}

// gatedSource blocks reads of one path until released.
type gatedSource struct {
	blockPath string
	entered   chan struct{}
	release   chan struct{}
}

func (g *gatedSource) ReadNotes(_ context.Context, path string) (*storage.Snapshot, error) {
	if path == g.blockPath {
		close(g.entered)
		<-g.release
	}
	note := models.Note{Timestamp: time.Date(2024, 2, 13, 9, 15, 0, 0, time.UTC), Content: path}
	return &storage.Snapshot{Path: path, Notes: []models.Note{note}}, nil
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	src := &gatedSource{blockPath: "/a.txt", entered: make(chan struct{}), release: make(chan struct{})}
	m := session.New(settings.NewMemoryStore(), src)

	done := make(chan error, 1)
	go func() { done <- m.SelectPath(context.Background(), "/a.txt") }()
	<-src.entered
	assert.Equal(t, session.Loading{Path: "/a.txt"}, m.Snapshot().State)

	require.NoError(t, m.SelectPath(t.Context(), "/b.txt"))
	require.Equal(t, "/b.txt", m.Snapshot().State.(session.Ready).Path)

	close(src.release)
	require.NoError(t, <-done)

	ready, ok := m.Snapshot().State.(session.Ready)
	require.True(t, ok)
	assert.Equal(t, "/b.txt", ready.Path)
	assert.Equal(t, "/b.txt", ready.Notes[0].Content)
}

func TestChangeFileDiscardsInFlightLoad(t *testing.T) {
	src := &gatedSource{blockPath: "/a.txt", entered: make(chan struct{}), release: make(chan struct{})}
	m := session.New(settings.NewMemoryStore(), src)

	done := make(chan error, 1)
	go func() { done <- m.SelectPath(context.Background(), "/a.txt") }()
	<-src.entered

	require.NoError(t, m.ChangeFile())
	close(src.release)
	require.NoError(t, <-done)

	assert.IsType(t, session.Unconfigured{}, m.Snapshot().State)
}

// gatedStore blocks saves while gate is set.
type gatedStore struct {
	settings.MemoryStore
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedStore) Save(ctx context.Context, path string) error {
	if g.gate != nil {
		g.entered <- struct{}{}
		<-g.gate
	}
	return g.MemoryStore.Save(ctx, path)
}

func TestConcurrentSelect_StoreMatchesSession(t *testing.T) {
	store := &gatedStore{gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	src := &gatedSource{blockPath: "/a.txt", entered: make(chan struct{}), release: make(chan struct{})}
	m := session.New(store, src)

	first := make(chan error, 1)
	go func() { first <- m.SelectPath(context.Background(), "/a.txt") }()
	<-store.entered

	second := make(chan error, 1)
	go func() { second <- m.SelectPath(context.Background(), "/b.txt") }()

	close(store.gate)
	require.NoError(t, <-second)
	close(src.release)
	require.NoError(t, <-first)

	saved, ok, err := store.Load(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/b.txt", saved)

	ready, ok := m.Snapshot().State.(session.Ready)
	require.True(t, ok, "state = %#v", m.Snapshot().State)
	assert.Equal(t, "/b.txt", ready.Path)
}

func TestChangeFileDuringSave_SkipsLoading(t *testing.T) {
	store := &gatedStore{}
	m := session.New(store, staticSource(nil, nil))
	require.NoError(t, m.SelectPath(t.Context(), "/a.txt"))

	store.gate, store.entered = make(chan struct{}), make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- m.Reload(context.Background()) }()
	<-store.entered

	require.NoError(t, m.ChangeFile())
	close(store.gate)
	require.NoError(t, <-done)

	snap := m.Snapshot()
	assert.IsType(t, session.Unconfigured{}, snap.State)
	assert.Equal(t, "/a.txt", snap.PathHint)
}

func TestOrdered_DropsOlderSnapshots(t *testing.T) {
	var got []uint64
	fn := session.Ordered(func(s session.Snapshot) { got = append(got, s.Version) })

	for _, v := range []uint64{2, 1, 2, 3, 0, 5} {
		fn(session.Snapshot{Version: v})
	}
	assert.Equal(t, []uint64{2, 3, 5}, got)
}

func TestOpenSource(t *testing.T) {
	var opened []string
	fail := false
	opener := host.OpenerFunc(func(_ context.Context, path string) error {
		opened = append(opened, path)
		if fail {
			return errors.New("no handler")
		}
		return nil
	})
	m := session.New(settings.NewMemoryStore(), staticSource(nil, nil), session.WithOpener(opener))

	require.NoError(t, m.OpenSource(t.Context()))
	assert.Empty(t, opened, "unconfigured is a no-op")

	require.NoError(t, m.SelectPath(t.Context(), "/a.txt"))
	require.NoError(t, m.OpenSource(t.Context()))
	assert.Equal(t, []string{"/a.txt"}, opened)

	fail = true
	err := m.OpenSource(t.Context())
	assert.ErrorIs(t, err, apperr.ErrOpenFile)
	snap := m.Snapshot()
	assert.IsType(t, session.Ready{}, snap.State)
	assert.Equal(t, "Failed to open file: no handler", snap.Banner)

	m.DismissBanner()
	assert.Empty(t, m.Snapshot().Banner)
}

func TestBrowse(t *testing.T) {
	var next struct {
		path string
		ok   bool
		err  error
	}
	dialog := host.DialogFunc(func(context.Context) (string, bool, error) {
		return next.path, next.ok, next.err
	})
	m := session.New(settings.NewMemoryStore(), staticSource(nil, nil), session.WithDialog(dialog))

	picked, err := m.Browse(t.Context())
	require.NoError(t, err)
	assert.False(t, picked)
	assert.IsType(t, session.Unconfigured{}, m.Snapshot().State)

	next.err = errors.New("no display")
	_, err = m.Browse(t.Context())
	assert.ErrorIs(t, err, apperr.ErrDialog)
	assert.Equal(t, "Failed to open file dialog: no display", m.Snapshot().Banner)
	assert.IsType(t, session.Unconfigured{}, m.Snapshot().State)

	next.path, next.ok, next.err = "/picked.txt", true, nil
	picked, err = m.Browse(t.Context())
	require.NoError(t, err)
	assert.True(t, picked)
	snap := m.Snapshot()
	assert.Equal(t, "/picked.txt", snap.State.(session.Ready).Path)
	assert.Empty(t, snap.Banner, "successful load clears the banner")
}

func TestSearch(t *testing.T) {
	path := testutil.NotesFile(t, testutil.SampleNotes)
	m, _ := testutil.Session(t, path)

	assert.Empty(t, m.Search("bob"))
	assert.NotNil(t, m.Search("bob"))

	require.NoError(t, m.Start(t.Context()))
	got := m.Search("BOB")
	require.Len(t, got, 1)
	assert.Equal(t, "Call Bob about the invoice.", got[0].Content)
	assert.Len(t, m.Search(""), 3)
	assert.Len(t, m.Search("2024-02-13"), 2)
}

func TestOnChange(t *testing.T) {
	m := session.New(settings.NewMemoryStore(), staticSource(nil, nil))

	var seen []string
	cancel := m.OnChange(func(s session.Snapshot) { seen = append(seen, s.State.Name()) })
	require.NoError(t, m.SelectPath(t.Context(), "/a.txt"))
	assert.Contains(t, seen, session.NameLoading)
	assert.Equal(t, session.NameReady, seen[len(seen)-1])

	cancel()
	n := len(seen)
	require.NoError(t, m.ChangeFile())
	assert.Len(t, seen, n)
}

func TestVersionIncreases(t *testing.T) {
	m := session.New(settings.NewMemoryStore(), staticSource(nil, nil))
	v0 := m.Snapshot().Version
	require.NoError(t, m.SelectPath(t.Context(), "/a.txt"))
	assert.Greater(t, m.Snapshot().Version, v0)
}
