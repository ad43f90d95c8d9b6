package api

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"looklike/internal/models"
	"looklike/internal/validation"
)

// ProspectStore is the prospect persistence the API needs. *db.DB implements it.
type ProspectStore interface {
	GetProspectByID(ctx context.Context, id uuid.UUID) (*models.Prospect, error)
	ListProspects(ctx context.Context, queryStr string, limit, offset int) ([]models.Prospect, error)
	DeleteProspect(ctx context.Context, id uuid.UUID) error
}

// ProspectHandler handles prospect lookup operations via JSON API.
type ProspectHandler struct {
	store ProspectStore
}

// NewProspectHandler creates a new API prospect handler.
func NewProspectHandler(store ProspectStore) *ProspectHandler {
	return &ProspectHandler{store: store}
}

// List returns prospects, optionally filtered by ?q= on name, address or type.
func (h *ProspectHandler) List(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, offset = validation.Pagination(limit, offset, 100, 500)

	prospects, err := h.store.ListProspects(c.Context(), strings.TrimSpace(c.Query("q")), limit, offset)
	if err != nil {
		return errorResponse(c, err)
	}
	if prospects == nil {
		prospects = []models.Prospect{}
	}

	return jsonSuccess(c, prospects)
}

// Get returns a single prospect by ID.
func (h *ProspectHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid prospect id")
	}

	prospect, err := h.store.GetProspectByID(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, prospect)
}

// Delete removes a prospect and its campaign links.
func (h *ProspectHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid prospect id")
	}

	if err := h.store.DeleteProspect(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, fiber.Map{"deleted": true})
}
