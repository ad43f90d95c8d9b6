package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"looklike/internal/models"
)

// Pinger reports database reachability. *db.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource provides dashboard counters. *db.DB implements it.
type StatsSource interface {
	GetStats(ctx context.Context) (*models.Stats, error)
}

// HealthHandler serves liveness and summary endpoints.
type HealthHandler struct {
	db    Pinger
	stats StatsSource
}

// NewHealthHandler creates a new API health handler.
func NewHealthHandler(db Pinger, stats StatsSource) *HealthHandler {
	return &HealthHandler{db: db, stats: stats}
}

// Health reports whether the service can reach its database.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "database unreachable")
	}

	return jsonSuccess(c, fiber.Map{"database": "up"})
}

// Stats returns dashboard counters.
func (h *HealthHandler) Stats(c fiber.Ctx) error {
	stats, err := h.stats.GetStats(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, stats)
}
