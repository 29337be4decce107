package api

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP listener for the newsletter API.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer creates a server that serves handler on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		handler: handler,
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 15 * time.Second,
			// Publishing fans out to every confirmed subscriber before replying.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// ListenAndServe starts the HTTP server. It blocks until the server stops
// and returns http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
