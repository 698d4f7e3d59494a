// Package server provides the HTTP API with middleware.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talentsift/talentsift/internal/pipeline"
	"github.com/talentsift/talentsift/internal/vectorstore"
)

const readinessProbeTimeout = 5 * time.Second

// HTTPServer wraps an HTTP server with routing and lifecycle management.
type HTTPServer struct {
	server *http.Server
	logger *slog.Logger
}

// HTTPServerConfig holds configuration for the HTTP server.
type HTTPServerConfig struct {
	Port           int
	Logger         *slog.Logger
	AllowedOrigins []string

	Pipeline *pipeline.Pipeline
	Indexer  *pipeline.Indexer
	Vectors  vectorstore.Store // readiness probe target
}

// NewHTTPServer creates a new HTTP server with the API routes mounted.
func NewHTTPServer(cfg HTTPServerConfig) (*HTTPServer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(accessLog(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors(cfg.AllowedOrigins))

	router.Get("/healthz", handleHealth)
	router.Get("/readyz", handleReady(cfg.Vectors))

	api := &apiHandler{
		pipeline: cfg.Pipeline,
		indexer:  cfg.Indexer,
		logger:   logger,
	}
	router.Route("/v1", func(r chi.Router) {
		r.Post("/search", api.handleSearch)
		if cfg.Indexer != nil {
			r.Post("/candidates/index", api.handleIndex)
			r.Delete("/candidates/{id}/index", api.handleDeindex)
		}
	})

	return &HTTPServer{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute, // search requests can carry an LLM rerank
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}, nil
}

// Start blocks serving requests until the server is shut down.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// cors allows the configured origins; an empty list allows everything,
// which is only suitable for development.
func cors(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case len(allowedOrigins) == 0:
				origin = "*"
			case slices.Contains(allowedOrigins, "*"), slices.Contains(allowedOrigins, origin):
			default:
				origin = ""
			}

			if origin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
				h.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// handleReady probes the vector store, which is the one backend every
// search depends on.
func handleReady(vectors vectorstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if vectors != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
			defer cancel()
			health, err := vectors.HealthCheck(ctx)
			if err != nil || !health.Connected {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
