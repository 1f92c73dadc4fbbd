package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayiooo/shortlink/internal/auth"
	"github.com/ayiooo/shortlink/internal/config"
	"github.com/ayiooo/shortlink/internal/httpx"
	"github.com/ayiooo/shortlink/internal/shortener"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether the link store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Deps are the components the server routes requests to.
type Deps struct {
	Links     *shortener.Handler
	Resolver  *shortener.Resolver
	Sessions  *auth.Sessions
	Google    *auth.GoogleHandler
	RateLimit httpx.Middleware // nil disables rate limiting
	Store     Pinger
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config *config.Config
	logger *slog.Logger
	deps   Deps
	server *http.Server
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	return &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start starts the HTTP server and blocks until ctx is done, a shutdown
// signal arrives, or the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.config.Server.Host, s.config.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, a shutdown signal arrives, or the
// server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.Serve(ln)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

	case <-ctx.Done():
		s.logger.Info("context cancelled, stopping server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// setupRoutes configures all HTTP routes. Short links themselves are
// served by the resolver middleware before the mux is reached.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	links := s.deps.Links
	limit := s.rateLimited

	mux.HandleFunc("GET /{$}", s.indexHandler)
	mux.HandleFunc("GET /api/health", s.healthCheckHandler)

	mux.Handle("POST /api/links", limit(http.HandlerFunc(links.CreateAnonymous)))

	mux.Handle("GET /api/user/links", auth.RequireUser(http.HandlerFunc(links.ListOwned)))
	mux.Handle("POST /api/user/links", auth.RequireUser(limit(http.HandlerFunc(links.CreateOwned))))
	mux.Handle("PUT /api/user/links/{id}", auth.RequireUser(http.HandlerFunc(links.UpdateOwned)))
	mux.Handle("DELETE /api/user/links/{id}", auth.RequireUser(http.HandlerFunc(links.DeleteOwned)))

	mux.HandleFunc("GET /api/auth/google/login", s.deps.Google.Login)
	mux.HandleFunc("GET /api/auth/google/callback", s.deps.Google.Callback)
	mux.HandleFunc("POST /api/auth/logout", s.deps.Google.Logout)
	mux.Handle("GET /api/auth/me", auth.RequireUser(http.HandlerFunc(s.deps.Google.Me)))

	mux.HandleFunc("/", s.notFoundHandler)

	return mux
}

func (s *Server) rateLimited(h http.Handler) http.Handler {
	if s.deps.RateLimit == nil {
		return h
	}
	return s.deps.RateLimit(h)
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger),                     // Outermost: catch panics
		httpx.RequestID,                              // Add request ID
		httpx.Logger(s.logger),                       // Log requests
		httpx.CORS(s.config.Server.AllowedOrigins),   // CORS headers
		s.deps.Resolver.Middleware,                   // Short link redirects
		auth.Authenticate(s.deps.Sessions, s.logger), // Session identity
	)(handler)
}

// indexHandler describes the service.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"service": s.config.App.ServiceName,
		"version": s.config.App.ServiceVersion,
		"links": map[string]string{
			"health":  "/api/health",
			"shorten": "/api/links",
			"login":   "/api/auth/google/login",
		},
	})
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := s.deps.Store.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed",
				"request_id", httpx.GetRequestID(r.Context()),
				"error", err.Error(),
			)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	httpx.WriteJSON(w, code, map[string]string{
		"status":  status,
		"service": s.config.App.ServiceName,
		"version": s.config.App.ServiceVersion,
	})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(w, http.StatusNotFound, "not_found", "resource not found", nil)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
