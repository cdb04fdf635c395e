// Package api serves a read-only HTTP view of the run ledger.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/preorder-gather/internal/api/handlers"
	"github.com/eshaffer321/preorder-gather/internal/api/middleware"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8085,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
}

// NewServer creates a new API server.
func NewServer(cfg Config, repo storage.Repository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config: cfg,
		router: gin.New(),
		logger: logger,
		repo:   repo,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())

	s.router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
	}))

	// Request logging
	s.router.Use(middleware.Logging(s.logger, "/health"))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.GET("/health", healthHandler.Get)

	api := s.router.Group("/api")
	{
		runsHandler := handlers.NewRunsHandler(s.repo)
		api.GET("/runs", runsHandler.List)
		api.GET("/runs/:id", runsHandler.Get)
		api.GET("/runs/:id/orders", runsHandler.Orders)
		api.GET("/runs/:id/discrepancies", runsHandler.Discrepancies)
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the HTTP handler for testing.
func (s *Server) Router() http.Handler {
	return s.router
}
