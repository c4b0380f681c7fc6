package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/devserve/internal/config"
	"github.com/Kush-Singh-26/devserve/internal/mimetype"
)

// Server serves a root directory over HTTP.
type Server struct {
	cfg     *config.Config
	root    afero.Fs
	logger  *slog.Logger
	broker  *reloadBroker
	handler http.Handler
}

// NewRootFs exposes dir read-only. Paths that resolve outside dir do not exist.
func NewRootFs(dir string) afero.Fs {
	return afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// New builds a server for root. cfg and types must not change afterwards.
func New(cfg *config.Config, root afero.Fs, types *mimetype.Table, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		root:   root,
		logger: logger,
		broker: newReloadBroker(),
	}

	var files http.Handler = newFileHandler(root, types.Resolve, logger)
	if cfg.Compress {
		files = gzhttp.GzipHandler(files)
	}

	handler := files
	if cfg.Watch {
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+reloadPrefix+"events", s.broker.handleEvents)
		mux.HandleFunc("GET "+reloadPrefix+"reload.js", handleReloadScript)
		mux.Handle("/", files)
		handler = mux
	}

	s.handler = withHeaderHook(readOnlyMethods(handler), FixedHeaders, logger)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Listen binds the configured address. Failure here is fatal for callers.
func Listen(cfg *config.Config) (net.Listener, error) {
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", cfg.Addr(), err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:  s,
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	w := s.startWatcher()
	defer s.stopReload(w)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	// Event streams never finish on their own.
	s.stopReload(w)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", "error", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) startWatcher() *watcher {
	if !s.cfg.Watch {
		return nil
	}
	if s.cfg.Root == "" {
		s.logger.Warn("Live reload disabled: no root directory on disk")
		return nil
	}

	w, err := newWatcher(s.cfg.Root, s.cfg.Debounce, s.broker.Broadcast, s.logger)
	if err != nil {
		s.logger.Warn("Live reload disabled", "error", err)
		return nil
	}
	w.start()
	s.logger.Info("Watching for changes", "root", s.cfg.Root, "debounce", s.cfg.Debounce.Round(time.Millisecond))
	return w
}

func (s *Server) stopReload(w *watcher) {
	if w != nil {
		w.close()
	}
	s.broker.Close()
}
