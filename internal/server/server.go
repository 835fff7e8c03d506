// Package server serves the devlog site: the HTML page, the JSON API and
// the live-update websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/conneroisu/devlog/internal/config"
	"github.com/conneroisu/devlog/internal/content"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/logging"
	"github.com/conneroisu/devlog/internal/middleware"
	"github.com/conneroisu/devlog/internal/validation"
	"github.com/conneroisu/devlog/internal/watcher"
	"github.com/conneroisu/devlog/internal/websocket"
)

// Server wires the content store to HTTP.
type Server struct {
	config       *config.Config
	store        *content.Store
	hub          *websocket.Hub
	logger       logging.Logger
	errorHandler *siteerrors.ErrorHandler
	origins      *validation.OriginValidator

	httpServer  *http.Server
	watcher     *watcher.FileWatcher
	serverMutex sync.Mutex

	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates a server over store. Nothing is loaded or started until
// Start or Serve is called.
func New(cfg *config.Config, store *content.Store, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("server")
	origins := validation.NewOriginValidator(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment())

	return &Server{
		config:       cfg,
		store:        store,
		hub:          websocket.NewHub(origins, store, logger),
		logger:       logger,
		errorHandler: siteerrors.NewErrorHandler(logger),
		origins:      origins,
	}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/devlog", s.handleDevlog)
	mux.HandleFunc("GET /api/devlog/versions", s.handleDevlogVersions)
	mux.HandleFunc("GET /api/journey", s.handleJourney)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/sections", s.handleSections)
	mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /search", s.handleIndex)
	mux.HandleFunc("/api/", s.handleNotFound)

	chain := middleware.NewMiddlewareChain(middleware.Dependencies{
		Logger:          s.logger,
		OriginValidator: s.origins,
		Development:     s.config.Server.IsDevelopment(),
	})
	return chain.Apply(mux)
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return siteerrors.NewIOError("ERR_LISTEN", "failed to listen on "+s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve loads content, starts the watcher and websocket fan-out, and
// serves HTTP on ln until ctx is done. A failed initial load is not fatal:
// the site answers with its error state until a reload succeeds.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.store.Reload(ctx); err != nil {
		s.logger.Warn(ctx, err, "Initial content load failed, serving error state", "dir", s.config.Content.Dir)
	}

	s.serverMutex.Lock()
	s.cancel = cancel
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	httpServer := s.httpServer
	s.serverMutex.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.FollowStore(ctx, s.store)
	}()

	if s.config.Content.Watch {
		if err := s.startWatcher(ctx); err != nil {
			s.logger.Warn(ctx, err, "Content watching disabled", "dir", s.config.Content.Dir)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Serving devlog site", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer stop()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) startWatcher(ctx context.Context) error {
	fw, err := watcher.WatchContent(s.config.Content.Dir, s.config.Content.Debounce, s.store, s.logger)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return err
	}

	s.serverMutex.Lock()
	s.watcher = fw
	s.serverMutex.Unlock()
	s.logger.Info(ctx, "Watching content for changes", "dir", s.config.Content.Dir)
	return nil
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.config.Server.ShutdownTimeout > 0 {
		return s.config.Server.ShutdownTimeout
	}
	return config.DefaultShutdownTimeout
}

// Shutdown stops the watcher, closes websocket clients and drains HTTP
// requests. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.Lock()
		fw, httpServer, cancel := s.watcher, s.httpServer, s.cancel
		s.serverMutex.Unlock()

		if fw != nil {
			if err := fw.Stop(); err != nil {
				s.logger.Warn(ctx, err, "Failed to stop file watcher")
			}
		}
		if err := s.hub.Shutdown(ctx); err != nil {
			shutdownErr = err
		}
		if httpServer != nil {
			if err := httpServer.Shutdown(ctx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
		if cancel != nil {
			cancel()
		}
		s.wg.Wait()
	})

	return shutdownErr
}
