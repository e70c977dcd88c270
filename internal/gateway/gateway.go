// Package gateway exposes the authorized PLC command endpoint. Identity is
// resolved from claims already verified upstream; the handler's own job is
// authorization bookkeeping, secret retrieval, command dispatch, and auditing.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/acme/autocert"

	"github.com/markb/plcgate/internal/audit"
	"github.com/markb/plcgate/internal/log"
	"github.com/markb/plcgate/internal/plc"
	"github.com/markb/plcgate/internal/secrets"
)

// Config holds gateway configuration.
type Config struct {
	// AllowedOrigins for CORS. Empty means all origins.
	AllowedOrigins []string
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type Server struct {
	router  *chi.Mux
	secrets secrets.Provider
	action  plc.Action
	sink    audit.Sink

	// HTTP servers for graceful shutdown
	httpServer   *http.Server
	httpsServer  *http.Server
	httpRedirect *http.Server
	autocertMgr  *autocert.Manager
}

// New wires the gateway router. Extra middleware (e.g. telemetry) runs after
// CORS and before the request logger.
func New(cfg Config, provider secrets.Provider, action plc.Action, sink audit.Sink, extra ...func(http.Handler) http.Handler) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		secrets: provider,
		action:  action,
		sink:    sink,
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	for _, mw := range extra {
		s.router.Use(mw)
	}

	s.router.Use(log.RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))
	s.router.Use(resolveIdentity)

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/command", s.handleCommand)

	return s
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *Server) writeError(w http.ResponseWriter, status int, errCode, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server(s).
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpsServer != nil {
		if err := s.httpsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTPS server: %w", err))
		}
	}
	if s.httpRedirect != nil {
		if err := s.httpRedirect.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP redirect server: %w", err))
		}
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
