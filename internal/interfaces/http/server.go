package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/turtacn/ContextDiff/internal/config"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

// Server wraps http.Server with the configured timeouts.
type Server struct {
	srv    *http.Server
	router http.Handler
	logger logging.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server for handler. Zero timeouts fall back to the
// configuration defaults.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Port == 0 && cfg.Host == "" {
		cfg.Host, cfg.Port = config.DefaultServerHost, config.DefaultServerPort
	}
	return &Server{
		router: handler,
		logger: logger,
		srv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadTimeout:       orDefault(cfg.ReadTimeout, config.DefaultReadTimeout),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      orDefault(cfg.WriteTimeout, config.DefaultWriteTimeout),
			IdleTimeout:       orDefault(cfg.IdleTimeout, config.DefaultIdleTimeout),
		},
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Addr returns the bound address once Start has opened the listener, and
// the configured address before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Start listens and serves until Stop. A graceful stop returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("HTTP server listening", logging.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

//Personal.AI order the ending
