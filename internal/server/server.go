// Package server provides the HTTP API for Bunrui.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/embedding"
	"github.com/hyperjump/bunrui/internal/features"
	"github.com/hyperjump/bunrui/pkg/utils"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Bunrui API.
type Server struct {
	mu        sync.RWMutex
	extractor *features.Extractor
	embedder  embedding.TokenEmbedder
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. embedder may be nil,
// in which case text input is rejected.
func NewServer(
	extractor *features.Extractor,
	embedder embedding.TokenEmbedder,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		extractor: extractor,
		embedder:  embedder,
		config:    cfg,
		logger:    utils.OrNop(logger),
	}
}

// SetExtractor swaps the extractor used by subsequent requests.
func (s *Server) SetExtractor(e *features.Extractor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractor = e
}

// Extractor returns the extractor currently in use.
func (s *Server) Extractor() *features.Extractor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extractor
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/pool", s.handlePool)
		r.Post("/normalize", s.handleNormalize)
		r.Post("/features", s.handleFeatures)
		r.Post("/clusters/variance", s.handleVariance)
		r.Post("/optimal-k", s.handleOptimalK)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
