package web

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewpix/crewpix/internal/matching"
	"github.com/crewpix/crewpix/internal/recognizer"
	"github.com/crewpix/crewpix/internal/registry"
	"github.com/crewpix/crewpix/internal/web/handlers"
	"github.com/crewpix/crewpix/internal/web/middleware"
)

func (s *Server) setupRoutes(
	sessionManager *middleware.SessionManager,
	reg *registry.Registry,
	orchestrator *matching.Orchestrator,
	enroller *matching.Enroller,
	stores Stores,
	extractor recognizer.Extractor,
	db *sql.DB,
) {
	// Create handlers
	authHandler := handlers.NewAuthHandler(sessionManager, s.config.Web.AdminToken)
	facesHandler := handlers.NewFacesHandler(orchestrator, enroller, reg, stores.Photos, stores.Persons)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck(db, extractor))
	s.router.Handle("/metrics", promhttp.Handler())

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Session endpoints (token-authenticated inside the handler)
		r.Post("/auth/sessions", authHandler.CreateSession)
		r.Delete("/auth/sessions", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// All other routes require an authenticated identity
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager, s.config.Web.AdminToken))

			r.Post("/faces/match", facesHandler.Match)
			r.Get("/faces/matches", facesHandler.ListMatches)
			r.Put("/faces/matches/{matchID}/approval", facesHandler.SetApproval)
			r.Delete("/faces/matches/{matchID}", facesHandler.DeleteMatch)
			r.Post("/faces/enroll", facesHandler.Enroll)
		})
	})
}
