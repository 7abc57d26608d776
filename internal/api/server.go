package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/bank-recon-backend/internal/api/handlers"
	"github.com/eshaffer321/bank-recon-backend/internal/api/middleware"
	"github.com/eshaffer321/bank-recon-backend/internal/application/service"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config       Config
	router       chi.Router
	httpServer   *http.Server
	logger       *slog.Logger
	repo         storage.Repository
	reconService *service.ReconService
}

// NewServer creates a new API server.
// If reconService is nil, the reconcile endpoints will not be available.
func NewServer(cfg Config, repo storage.Repository, reconService *service.ReconService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:       cfg,
		router:       chi.NewRouter(),
		logger:       logger,
		repo:         repo,
		reconService: reconService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Run history
		runsHandler := handlers.NewRunsHandler(s.repo)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Get("/runs/{id}/outcomes", runsHandler.ListOutcomes)

		// Manual-review queue
		reviewsHandler := handlers.NewReviewsHandler(s.repo)
		r.Get("/reviews", reviewsHandler.List)
		r.Get("/reviews/{id}", reviewsHandler.Get)
		r.Post("/reviews/{id}/resolve", reviewsHandler.Resolve)

		// Learning stats
		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/learning/stats", statsHandler.Get)

		// Reconciliation jobs
		if s.reconService != nil {
			jobsHandler := handlers.NewJobsHandler(s.reconService)
			r.Post("/reconcile", jobsHandler.Start)
			r.Get("/reconcile", jobsHandler.ListAll)
			r.Get("/reconcile/active", jobsHandler.ListActive)
			r.Get("/reconcile/{jobId}", jobsHandler.GetStatus)
			r.Delete("/reconcile/{jobId}", jobsHandler.Cancel)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", s.config.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
