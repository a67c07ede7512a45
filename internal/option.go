package internal

import "github.com/starford/quicknote/internal/host"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	dialog host.FileDialog
	opener host.ExternalOpener
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithFileDialog replaces the native file picker.
func WithFileDialog(d host.FileDialog) Option {
	return func(a *application) {
		a.dialog = d
	}
}

// WithOpener replaces the desktop "open file" handler.
func WithOpener(o host.ExternalOpener) Option {
	return func(a *application) {
		a.opener = o
	}
}
