package api

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"looklike/internal/models"
	"looklike/internal/validation"
)

// ReferenceClientStore is the reference client persistence the API needs.
// *db.DB implements it.
type ReferenceClientStore interface {
	GetReferenceClient(ctx context.Context, id uuid.UUID) (*models.ReferenceClient, error)
	ListReferenceClients(ctx context.Context, limit, offset int) ([]models.ReferenceClient, error)
	UpdateReferenceClient(ctx context.Context, rc *models.ReferenceClient) error
	DeleteReferenceClient(ctx context.Context, id uuid.UUID) error
}

// ReferenceClientCreator stores new reference clients, geocoding on request.
// *search.Service implements it.
type ReferenceClientCreator interface {
	CreateReferenceClient(ctx context.Context, rc *models.ReferenceClient, geocode bool) error
}

// ReferenceClientHandler handles reference client CRUD operations via JSON API.
type ReferenceClientHandler struct {
	store   ReferenceClientStore
	creator ReferenceClientCreator
}

// NewReferenceClientHandler creates a new API reference client handler.
func NewReferenceClientHandler(store ReferenceClientStore, creator ReferenceClientCreator) *ReferenceClientHandler {
	return &ReferenceClientHandler{store: store, creator: creator}
}

// List returns reference clients ordered by name.
func (h *ReferenceClientHandler) List(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, offset = validation.Pagination(limit, offset, 100, 500)

	clients, err := h.store.ListReferenceClients(c.Context(), limit, offset)
	if err != nil {
		return errorResponse(c, err)
	}
	if clients == nil {
		clients = []models.ReferenceClient{}
	}

	return jsonSuccess(c, clients)
}

// Get returns a single reference client by ID.
func (h *ReferenceClientHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid reference client id")
	}

	rc, err := h.store.GetReferenceClient(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, rc)
}

// Create stores a new reference client. With "geocode": true the address
// is resolved before anything is written.
func (h *ReferenceClientHandler) Create(c fiber.Ctx) error {
	var body struct {
		Name         string   `json:"name"`
		Address      string   `json:"address"`
		BusinessType string   `json:"business_type"`
		Latitude     *float64 `json:"latitude"`
		Longitude    *float64 `json:"longitude"`
		Notes        string   `json:"notes"`
		Geocode      bool     `json:"geocode"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	rc := &models.ReferenceClient{
		Name:         body.Name,
		Address:      body.Address,
		BusinessType: body.BusinessType,
		Latitude:     body.Latitude,
		Longitude:    body.Longitude,
		Notes:        body.Notes,
	}
	if err := validation.ValidateReferenceClient(rc); err != nil {
		return errorResponse(c, err)
	}

	if err := h.creator.CreateReferenceClient(c.Context(), rc, body.Geocode); err != nil {
		return errorResponse(c, err)
	}

	return jsonCreated(c, rc)
}

// Update changes the fields present in the body. Changing the address
// without a new coordinate drops the cached one so the next search
// geocodes again.
func (h *ReferenceClientHandler) Update(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid reference client id")
	}

	var body struct {
		Name         *string  `json:"name"`
		Address      *string  `json:"address"`
		BusinessType *string  `json:"business_type"`
		Latitude     *float64 `json:"latitude"`
		Longitude    *float64 `json:"longitude"`
		Notes        *string  `json:"notes"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	rc, err := h.store.GetReferenceClient(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	if body.Name != nil {
		rc.Name = *body.Name
	}
	if body.Address != nil && *body.Address != rc.Address {
		rc.Address = *body.Address
		rc.Latitude, rc.Longitude = nil, nil
	}
	if body.BusinessType != nil {
		rc.BusinessType = *body.BusinessType
	}
	if body.Notes != nil {
		rc.Notes = *body.Notes
	}
	if body.Latitude != nil || body.Longitude != nil {
		rc.Latitude, rc.Longitude = body.Latitude, body.Longitude
	}

	if err := validation.ValidateReferenceClient(rc); err != nil {
		return errorResponse(c, err)
	}
	if err := h.store.UpdateReferenceClient(c.Context(), rc); err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, rc)
}

// Delete removes a reference client. Its search history is kept.
func (h *ReferenceClientHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid reference client id")
	}

	if err := h.store.DeleteReferenceClient(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, fiber.Map{"deleted": true})
}
