package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smehta/migraine-server/internal/cache"
	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/engine"
	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/metrics"
	"github.com/smehta/migraine-server/pkg/config"
)

// HTTPServer serves the vulnerability engine API
type HTTPServer struct {
	cfg     *config.HTTPConfig
	engine  *engine.Service
	db      *database.DB
	states  *cache.StateCache
	metrics *metrics.Metrics
	log     *logger.Logger

	httpServer *http.Server
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	cfg *config.HTTPConfig,
	svc *engine.Service,
	db *database.DB,
	states *cache.StateCache,
	m *metrics.Metrics,
	log *logger.Logger,
) *HTTPServer {
	return &HTTPServer{
		cfg:     cfg,
		engine:  svc,
		db:      db,
		states:  states,
		metrics: m,
		log:     log,
	}
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	gin.SetMode(gin.ReleaseMode)

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.buildRouter(),
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server stopped", "error", err)
		}
	}()

	s.log.Info("http server listening", "addr", s.cfg.Addr)
	return nil
}

// Stop shuts the HTTP server down gracefully
func (s *HTTPServer) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	s.log.Info("http server stopped")
	return nil
}
