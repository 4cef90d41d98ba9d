package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/velodash/velodash/internal/logger"
)

// Server wraps one http.Server. The process runs three of them (gateway,
// weather, bikes), each with its own router.
type Server struct {
	name   string
	http   *http.Server
	logger logger.Logger
}

// New builds an HTTP server around a prebuilt router.
func New(name, addr string, handler http.Handler, loggerClient logger.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		name:   name,
		http:   s,
		logger: loggerClient,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("%s listening on %s", s.name, s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Infof("%s shutting down...", s.name)
	return s.http.Shutdown(ctx)
}
