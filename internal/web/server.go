package web

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/crewpix/crewpix/internal/auth"
	"github.com/crewpix/crewpix/internal/config"
	"github.com/crewpix/crewpix/internal/database"
	"github.com/crewpix/crewpix/internal/matching"
	"github.com/crewpix/crewpix/internal/recognizer"
	"github.com/crewpix/crewpix/internal/registry"
	"github.com/crewpix/crewpix/internal/web/middleware"
)

// Stores bundles the persistence interfaces the API serves from.
type Stores struct {
	Persons     database.PersonReader
	Photos      database.PhotoReader
	Enrollments database.EnrollmentWriter
	Matches     database.MatchWriter
}

// Server represents the web server
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, host string, stores Stores, extractor recognizer.Extractor, db *sql.DB) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(cfg.Web.SessionSecret)

	s := &Server{
		config:         cfg,
		router:         r,
		sessionManager: sessionManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS(cfg.Web.CORSOrigin))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Metrics())

	// Wire the matching pipeline
	resolver := auth.NewStoreResolver(stores.Persons, stores.Photos)
	reg := registry.New(stores.Matches, stores.Photos, stores.Persons, resolver)
	orchestrator := matching.NewOrchestrator(extractor, stores.Enrollments, reg, matching.Options{
		Threshold: cfg.Matching.Threshold,
	})
	enroller := matching.NewEnroller(extractor, stores.Enrollments, stores.Persons,
		cfg.Matching.MinSamples, cfg.Matching.MaxSamples)

	// Set up routes
	s.setupRoutes(sessionManager, reg, orchestrator, enroller, stores, extractor, db)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for photo uploads
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
