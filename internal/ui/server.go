// Package ui provides the web admin UI for ifadmin.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/internal/store"
	recordsFeature "github.com/ifilter/ifadmin/internal/ui/features/records"
	"github.com/ifilter/ifadmin/internal/ui/router"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// ReloadFunc re-reads the resource overrides from the configuration.
type ReloadFunc func() (map[string]catalog.ResourceConfig, error)

// Server is the main UI server.
type Server struct {
	catalog      *catalog.Catalog
	store        *store.Store
	sessionStore *sessions.CookieStore
	notifier     *notifier.Notifier
	formatter    *grid.Formatter
	port         int
	watch        bool
	dev          bool
	configPath   string
	reload       ReloadFunc
	sessionIdle  time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	handlers *recordsFeature.Handlers
}

// Config holds configuration for the UI server.
type Config struct {
	Catalog       *catalog.Catalog
	Store         *store.Store
	Notifier      *notifier.Notifier
	Formatter     *grid.Formatter
	Port          int
	Watch         bool
	Dev           bool
	ConfigPath    string
	Reload        ReloadFunc
	SessionSecret string
	SessionIdle   time.Duration
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	notify := cfg.Notifier
	if notify == nil && cfg.Store != nil {
		notify = cfg.Store.Notifier()
	}
	if notify == nil {
		notify = notifier.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idle := cfg.SessionIdle
	if idle <= 0 {
		idle = 2 * time.Hour
	}

	return &Server{
		catalog:      cfg.Catalog,
		store:        cfg.Store,
		sessionStore: sessionStore,
		notifier:     notify,
		formatter:    cfg.Formatter,
		port:         cfg.Port,
		watch:        cfg.Watch,
		dev:          cfg.Dev,
		configPath:   cfg.ConfigPath,
		reload:       cfg.Reload,
		sessionIdle:  idle,
		logger:       logger,
	}
}

// Handler builds the routed HTTP handler.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	handlers, err := router.SetupRoutes(r, recordsFeature.Deps{
		Catalog:      s.catalog,
		Store:        s.store,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		Formatter:    s.formatter,
		Logger:       s.logger,
		IsDev:        s.dev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.mu.Lock()
	s.handlers = handlers
	s.mu.Unlock()
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start config watcher if enabled
	if s.watch && s.configPath != "" && s.reload != nil {
		eg.Go(func() error {
			return s.watchConfig(egctx)
		})
	}

	eg.Go(func() error {
		s.sweepSessions(egctx)
		return nil
	})

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// ReloadCatalog re-reads the overrides and swaps the catalog. Open grids
// are rebuilt on their next event. On error the current catalog stays.
func (s *Server) ReloadCatalog() error {
	if s.reload == nil {
		return errors.New("no config reload function")
	}
	overrides, err := s.reload()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := s.catalog.Load(overrides); err != nil {
		return fmt.Errorf("failed to load resources: %w", err)
	}

	s.mu.Lock()
	handlers := s.handlers
	s.mu.Unlock()
	if handlers != nil {
		handlers.Registry().Reset()
	}
	s.notifier.Broadcast(notifier.Change{Resource: notifier.All})
	return nil
}

// watchConfig reloads the catalog when the config file changes. The
// directory is watched because editors replace files on save.
func (s *Server) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target, err := filepath.Abs(s.configPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch config directory", "error", err)
		// Don't fail - continue without watching
		<-ctx.Done()
		return nil
	}

	// Debounce timer
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("config changed, reloading resources", "file", event.Name)
				if err := s.ReloadCatalog(); err != nil {
					s.logger.Error("config reload failed, keeping previous resources", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// sweepSessions drops grid state of browser sessions gone idle.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			handlers := s.handlers
			s.mu.Unlock()
			if handlers == nil {
				continue
			}
			if n := handlers.Registry().Sweep(s.sessionIdle); n > 0 {
				s.logger.Debug("idle sessions dropped", "sessions", n)
			}
		}
	}
}
