// Package gateway is the HTTP bridge: a small REST surface that
// adapts HTTP to the MCP engine. /mcp always answers 200 with a JSON
// envelope; /health always answers 200 with a status body.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"burlymcp/internal/config"
	"burlymcp/internal/gateway/handlers"
	"burlymcp/internal/gateway/middleware"
	"burlymcp/internal/mcp/transport"
)

// Server is the bridge's HTTP front: router, middleware chain, and the
// two endpoint handlers.
type Server struct {
	httpServer  *http.Server
	rateLimiter *middleware.RateLimiter
	log         zerolog.Logger
}

// NewServer wires the router and middleware around an engine transport.
// The engine may be in-process or a per-request subprocess; nothing in
// the HTTP contract changes between the two.
func NewServer(cfg *config.Config, engine transport.Caller, health *handlers.HealthHandler, log zerolog.Logger) *Server {
	router := mux.NewRouter()
	router.Handle("/health", health).Methods(http.MethodGet)
	router.Handle("/mcp", &handlers.MCPHandler{Engine: engine, Log: log}).Methods(http.MethodPost)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerMinute: cfg.RateLimitRPM,
		Enabled:           !cfg.RateLimitDisabled,
	})

	handler := middleware.Recovery(
		middleware.Logging(
			middleware.CORS(
				rateLimiter.RateLimit(router),
			),
		),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		rateLimiter: rateLimiter,
		log:         log,
	}
}

// Start blocks serving HTTP until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http bridge listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
