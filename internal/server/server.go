// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it testable: the tests
// build a Server around a fake engine and drive Handler() with httptest,
// without binding a port or installing a single compiler.
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	config.Load() → config.Build() → *config.Engine (dispatcher + backends)
//	server.New(cfg, engine, logger) → handlers → routes
//
// The server never builds backends itself. It only receives the
// handler.Service interface, so it has no idea whether code runs in a
// process group, a container, or on a remote Piston instance.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/code-runner/internal/auth"
	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/handler"
	"github.com/sakif/code-runner/internal/middleware"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to
// add new options without changing function signatures.
type Config struct {
	Port int
	// Strategy is the backend used when a request does not pick one.
	Strategy executor.Strategy
	// MaxCodeBytes rejects larger submissions with 400. 0 disables the check.
	MaxCodeBytes int
	// JWTSecret protects POST /api/execute when set.
	JWTSecret string
	// WriteTimeout must exceed compile + run timeouts, or slow submissions
	// are cut off mid-response.
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server may own resources that outlive a request (the docker sandbox
// keeps pools of warm containers). They are handed in as closers and
// released in Start() after the listener has drained.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	svc     handler.Service
	tokens  *auth.TokenService // nil when auth is disabled
	closers []func() error
}

// New creates a new Server with the given config.
//
// closers run, in order, when Start returns after a graceful shutdown.
func New(cfg Config, svc handler.Service, logger *slog.Logger, closers ...func() error) (*Server, error) {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Strategy == "" {
		cfg.Strategy = executor.StrategyAuto
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		svc:     svc,
		closers: closers,
	}

	if cfg.JWTSecret != "" {
		tokens, err := auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("configuring auth: %w", err)
		}
		s.tokens = tokens
	} else {
		logger.Warn("JWT_SECRET not set, /api/execute is open to anyone who can reach it")
	}

	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /api/execute                         → Run a submission (auth when configured)
// GET    /api/languages                       → Supported languages
// GET    /api/languages/{language}/templates  → Starter programs
// GET    /api/templates/{language}            → Same, older path
// GET    /api/health                          → Backend availability (503 when down)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info and the request ID
func (s *Server) setupRoutes() {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	executeHandler := handler.NewExecuteHandler(s.svc, s.config.Strategy, s.config.MaxCodeBytes, s.logger)
	languagesHandler := handler.NewLanguagesHandler(s.svc, s.config.Strategy, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// === Public Routes ===
		r.Group(func(r chi.Router) {
			if s.tokens != nil {
				r.Use(auth.OptionalAuth(s.tokens))
			}
			r.Get("/languages", languagesHandler.HandleList)
			r.Get("/languages/{language}/templates", languagesHandler.HandleTemplates)
			r.Get("/templates/{language}", languagesHandler.HandleTemplates)
			r.Get("/health", languagesHandler.HandleHealth)
		})

		// === Protected Routes ===
		// r.Group creates a sub-router sharing the /api prefix; middleware added
		// with r.Use inside the group applies only to routes in that group.
		r.Group(func(r chi.Router) {
			if s.tokens != nil {
				r.Use(auth.RequireAuth(s.tokens))
			}
			r.Post("/execute", executeHandler.HandleExecute)
		})
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight executions to finish (ShutdownTimeout)
// 3. Run the closers (docker pools remove their warm containers)
//
// Step 3 runs from a defer, so it happens even when the listener fails.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("strategy", string(s.config.Strategy)),
			slog.Bool("auth", s.tokens != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.logger.Warn("error releasing resources", slog.String("error", err.Error()))
		}
	}
}
