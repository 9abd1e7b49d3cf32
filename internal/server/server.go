// Package server provides the HTTP API for sentembed.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/sentembed/internal/config"
	"github.com/hyperjump/sentembed/internal/search"
)

// Server is the HTTP server for the embedding and similarity API.
type Server struct {
	engine  *search.Engine
	config  *config.ServerConfig
	model   string
	version string
	logger  *zap.Logger
	router  http.Handler
	server  *http.Server
	started time.Time
	cancel  context.CancelFunc
}

// NewServer creates a server for engine. model is reported by /health and
// /status. logger may be nil.
func NewServer(engine *search.Engine, cfg *config.ServerConfig, model, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		engine:  engine,
		config:  cfg,
		model:   model,
		version: version,
		logger:  logger,
		started: time.Now(),
		cancel:  cancel,
	}
	s.router = s.routes(ctx)
	return s
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)
	if len(s.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))
	}
	if rl := s.config.RateLimit; rl.RequestsPerMin > 0 {
		r.Use(rateLimit(ctx, rl.RequestsPerMin, rl.Burst, func(w http.ResponseWriter, _ *http.Request) {
			s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}))
	}
	if s.config.MaxBodyBytes > 0 {
		r.Use(maxBody(s.config.MaxBodyBytes))
	}
	if s.config.RequestTimeout > 0 {
		r.Use(requestTimeout(s.config.RequestTimeout, func(w http.ResponseWriter, _ *http.Request) {
			s.respondError(w, http.StatusGatewayTimeout, "request timed out")
		}))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/embed", s.handleEmbed)
	r.Post("/similarity", s.handleSimilarity)
	r.Post("/vector_similarity", s.handleVectorSimilarity)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("model", s.model))
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
