package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"latemate_console/internal/logger"
)

// Server wraps an *http.Server to provide start/shutdown lifecycle.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

const (
	defaultPort       = "8080"
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	// the /ws stream hijacks its connection, so this only bounds plain API calls
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

func New(log *logger.Logger) *Server {
	return &Server{log: logger.OrNop(log).Named("server")}
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// normalizeAddr accepts "8080", ":8080" or "127.0.0.1:8080".
func normalizeAddr(port string) string {
	switch {
	case port == "":
		return ":" + defaultPort
	case strings.Contains(port, ":"):
		return port
	default:
		return ":" + port
	}
}

// Run serves handler until Shutdown. A graceful shutdown is not an error.
func (s *Server) Run(port string, handler http.Handler) error {
	s.httpServer = newHTTPServer(normalizeAddr(port), handler)
	s.log.Infow("http_listen", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
