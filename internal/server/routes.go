package server

import (
	"context"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"looklike/internal/handlers/api"
	"looklike/internal/middleware"
	"looklike/internal/models"
)

// Database is everything the routes read from storage directly.
// *db.DB implements it.
type Database interface {
	api.Pinger
	api.StatsSource
	api.HistoryLister
	api.ReferenceClientStore
	api.ProspectStore
}

// SearchService runs searches and creates reference clients.
// *search.Service implements it.
type SearchService interface {
	api.Searcher
	CreateReferenceClient(ctx context.Context, rc *models.ReferenceClient, geocode bool) error
}

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	DB      Database
	Search  SearchService
	Tracker api.CampaignTracker
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(deps Dependencies) {
	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(s.Cfg.APIToken)

	// Initialize handlers
	healthHandler := api.NewHealthHandler(deps.DB, deps.DB)
	searchHandler := api.NewSearchHandler(deps.Search, deps.DB)
	clientHandler := api.NewReferenceClientHandler(deps.DB, deps.Search)
	prospectHandler := api.NewProspectHandler(deps.DB)
	campaignHandler := api.NewCampaignHandler(deps.Tracker)

	// Probes and scrapes - unauthenticated
	s.App.Get("/healthz", healthHandler.Health)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiGroup := s.App.Group("/api", authMiddleware.RequireToken)

	apiGroup.Get("/stats", healthHandler.Stats)

	// Search
	apiGroup.Post("/search/prospects", searchHandler.Prospects)
	apiGroup.Get("/search/history", searchHandler.History)

	// Reference clients
	apiGroup.Get("/reference-clients", clientHandler.List)
	apiGroup.Post("/reference-clients", clientHandler.Create)
	apiGroup.Get("/reference-clients/:id", clientHandler.Get)
	apiGroup.Put("/reference-clients/:id", clientHandler.Update)
	apiGroup.Delete("/reference-clients/:id", clientHandler.Delete)

	// Prospects
	apiGroup.Get("/prospects", prospectHandler.List)
	apiGroup.Get("/prospects/:id", prospectHandler.Get)
	apiGroup.Delete("/prospects/:id", prospectHandler.Delete)

	// Campaigns
	apiGroup.Get("/campaigns", campaignHandler.List)
	apiGroup.Post("/campaigns", campaignHandler.Create)
	apiGroup.Get("/campaigns/:id", campaignHandler.Get)
	apiGroup.Put("/campaigns/:id", campaignHandler.Update)
	apiGroup.Delete("/campaigns/:id", campaignHandler.Delete)

	// Campaign prospect pipeline
	apiGroup.Get("/campaigns/:id/prospects", campaignHandler.ListProspects)
	apiGroup.Post("/campaigns/:id/prospects", campaignHandler.AttachProspect)
	apiGroup.Put("/campaigns/:id/prospects/:prospectId/status", campaignHandler.UpdateStatus)
	apiGroup.Put("/campaigns/:id/prospects/:prospectId/notes", campaignHandler.UpdateNotes)
	apiGroup.Delete("/campaigns/:id/prospects/:prospectId", campaignHandler.DetachProspect)
}
