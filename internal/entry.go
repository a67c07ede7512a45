// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quicknote/internal/api"
	"github.com/starford/quicknote/internal/host"
	"github.com/starford/quicknote/internal/mcpserver"
	"github.com/starford/quicknote/internal/parser"
	"github.com/starford/quicknote/internal/query"
	"github.com/starford/quicknote/internal/session"
	"github.com/starford/quicknote/internal/settings"
	"github.com/starford/quicknote/internal/sse"
	"github.com/starford/quicknote/internal/storage"
	"github.com/starford/quicknote/internal/tui"
	"github.com/starford/quicknote/internal/watcher"
)

// core is what every front end shares.
type core struct {
	cfg     *Config
	logger  *slog.Logger
	machine *session.Machine
	close   func()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.dialog == nil {
		app.dialog = host.NewExecDialog()
	}
	if app.opener == nil {
		app.opener = host.NewExecOpener()
	}
	return app, nil
}

// build wires settings, storage and the session. Logs go to logOut.
func (a *application) build(logOut io.Writer) (*core, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("settings_backend", cfg.Settings.Backend),
		slog.String("settings_path", cfg.Settings.Path),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	loc, err := cfg.Notes.TimeLocation()
	if err != nil {
		return nil, fmt.Errorf("notes location: %w", err)
	}

	store, err := settings.Open(cfg.Settings.Backend, cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}
	closeFn := func() {}
	if c, ok := store.(io.Closer); ok {
		closeFn = func() {
			if err := c.Close(); err != nil {
				logger.Warn("settings close failed", slog.String("error", err.Error()))
			}
		}
	}

	p := parser.New(
		parser.WithGrammar(parser.NewLayoutGrammar(cfg.Notes.TimestampLayouts, loc)),
		parser.WithSeparator(cfg.Notes.Separator),
	)
	machine := session.New(store, storage.NewFS(p),
		session.WithDialog(a.dialog),
		session.WithOpener(a.opener),
		session.WithEngine(query.NewEngine(cfg.Notes.SearchLayouts...)),
		session.WithLogger(logger),
	)

	return &core{cfg: cfg, logger: logger, machine: machine, close: closeFn}, nil
}

// watch starts the file watcher when enabled and keeps it pointed at the
// session's current file.
func (c *core) watch(ctx context.Context, g *errgroup.Group) {
	if !c.cfg.Watch.Enabled {
		return
	}
	w := watcher.New(c.machine.Reload, c.cfg.Watch.Debounce, c.logger)
	retarget := session.Ordered(func(s session.Snapshot) {
		switch s.State.(type) {
		case session.Ready, session.Errored, session.Loading:
			path, _ := session.PathOf(s.State)
			w.Retarget(path)
		default:
			w.Retarget("")
		}
	})
	cancel := c.machine.OnChange(retarget)
	retarget(c.machine.Snapshot())

	g.Go(func() error {
		defer cancel()
		return w.Run(ctx)
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.build(os.Stdout)
	if err != nil {
		return err
	}
	defer c.close()

	cfg := c.cfg
	logger := c.logger

	// SSE broker, fed by every session change.
	broker := sse.NewBroker(cfg.SSE.Throttle)
	defer broker.Close()
	unsubscribe := c.machine.OnChange(session.Ordered(api.SessionPublisher(broker)))
	defer unsubscribe()

	// Build API handler and router.
	h := api.NewHandler(c.machine, cfg.Notes.NewestFirst)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Restore the saved notes file.
	g.Go(func() error {
		if err := c.machine.Start(gCtx); err != nil {
			logger.Warn("session start failed", slog.String("error", err.Error()))
		}
		return nil
	})

	c.watch(gCtx, g)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// End open SSE streams before shutdown.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once a shutdown has been requested.
var errShutdown = errors.New("shutdown requested")

// RunTUI starts the terminal UI. Logs go to cfg.App.LogFile.
func RunTUI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(app.config.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	c, err := app.build(logFile)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	uiCtx, quitUI := context.WithCancel(gCtx)
	defer quitUI()
	c.watch(uiCtx, g)

	g.Go(func() error {
		// Quitting the UI stops the watcher.
		defer quitUI()
		return tui.Run(uiCtx, c.machine, c.cfg.Notes.NewestFirst)
	})
	return g.Wait()
}

// RunMCP serves the MCP protocol on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.build(os.Stderr)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.machine.Start(ctx); err != nil {
		c.logger.Warn("session start failed", slog.String("error", err.Error()))
	}

	g, gCtx := errgroup.WithContext(ctx)
	wctx, stopWatch := context.WithCancel(gCtx)
	c.watch(wctx, g)

	g.Go(func() error {
		defer stopWatch()
		return mcpserver.New(c.machine, c.cfg.Notes.NewestFirst).ServeStdio()
	})
	return g.Wait()
}
