package api

import (
	"context"
	"net/http"
	"time"
)

// Server is the HTTP front of the notification sender.
type Server struct {
	handler http.Handler
	server  *http.Server
}

func NewServer(h *Handlers, hc *HealthChecker, allowedOrigins []string) *Server {
	return &Server{handler: SetupRoutes(h, hc, allowedOrigins)}
}

// ListenAndServe blocks until the server stops. Synchronous sends of large
// lists can take minutes, hence the generous write timeout.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler { return s.handler }
