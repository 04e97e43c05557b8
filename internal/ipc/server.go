/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ipc exposes the engine over HTTP and a websocket JSON protocol.
package ipc

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/friendsincode/playcore/internal/auth"
	"github.com/friendsincode/playcore/internal/engine"
	"github.com/friendsincode/playcore/internal/telemetry"
)

// Config holds the listener settings.
type Config struct {
	Bind      string
	Port      int
	JWTSecret []byte
}

// Server bundles the router, the HTTP server and the engine client used by
// the REST endpoints.
type Server struct {
	cfg        Config
	logger     zerolog.Logger
	engine     *engine.Engine
	rest       *engine.Client
	router     chi.Router
	httpServer *http.Server
	closers    []func() error
}

// New builds the router and registers a client named "ipc" for REST calls.
func New(cfg Config, eng *engine.Engine, logger zerolog.Logger) (*Server, error) {
	logger = logger.With().Str("component", "ipc").Logger()
	rest, err := eng.CreateClient("ipc")
	if err != nil {
		return nil, fmt.Errorf("create ipc client: %w", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.MetricsMiddleware)

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		engine: eng,
		rest:   rest,
		router: router,
	}
	srv.DeferClose(func() error {
		rest.Destroy()
		return nil
	})
	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           otelhttp.NewHandler(srv.router, "playcore-ipc"),
		ReadHeaderTimeout: 15 * time.Second,
		// Websocket sessions manage their own deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", telemetry.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.cfg.JWTSecret))

		r.With(auth.RequireScope(auth.ScopeControl)).Get(auth.WebSocketPath, s.handleWebSocket)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.With(auth.RequireScope(auth.ScopeControl)).Post("/command", s.handleCommand)
			r.With(auth.RequireScope(auth.ScopeRead)).Get("/properties/{name}", s.handleGetProperty)
			r.With(auth.RequireScope(auth.ScopeControl)).Put("/properties/{name}", s.handleSetProperty)
		})
	})
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
