// Package watcher reloads the session when its notes file changes on disk.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quicknote/internal/apperr"
)

// ReloadFunc re-reads the notes file.
type ReloadFunc func(ctx context.Context) error

// Watcher follows a single file. fsnotify watches its parent directory so
// that editors replacing the file by rename are still seen.
type Watcher struct {
	reload   ReloadFunc
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	target string
	signal chan struct{}
}

// New returns a Watcher that calls reload once changes to the target file
// have been quiet for debounce.
func New(reload ReloadFunc, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		reload:   reload,
		debounce: debounce,
		logger:   logger,
		signal:   make(chan struct{}, 1),
	}
}

// Retarget switches to path. An empty path stops watching. It never blocks.
func (w *Watcher) Retarget(path string) {
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	w.mu.Lock()
	w.target = path
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *Watcher) current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// Run processes file system events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	var (
		file, dir string
		timer     *time.Timer
		timerC    <-chan time.Time
	)

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	retarget := func() {
		next := w.current()
		if next == file {
			return
		}
		nextDir := ""
		if next != "" {
			nextDir = filepath.Dir(next)
		}
		if nextDir != dir {
			if dir != "" {
				_ = fw.Remove(dir)
			}
			dir = ""
			if nextDir != "" {
				if err := fw.Add(nextDir); err != nil {
					w.logger.Warn("watcher: watch failed", slog.String("dir", nextDir), slog.String("error", err.Error()))
				} else {
					dir = nextDir
				}
			}
		}
		file = next
		w.logger.Info("watcher: target changed", slog.String("path", file))
	}

	w.logger.Info("watcher: started", slog.Duration("debounce", w.debounce))

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-w.signal:
			retarget()

		case <-timerC:
			if file == "" {
				continue
			}
			w.logger.Debug("watcher: reloading", slog.String("path", file))
			if err := w.reload(ctx); err != nil && !errors.Is(err, apperr.ErrInvalidTransition) {
				w.logger.Warn("watcher: reload failed", slog.String("path", file), slog.String("error", err.Error()))
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if file == "" || filepath.Clean(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
