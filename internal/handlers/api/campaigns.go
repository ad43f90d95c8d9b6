package api

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"looklike/internal/campaigns"
	"looklike/internal/models"
	"looklike/internal/validation"
)

// CampaignTracker is the campaign workflow the API exposes.
// *campaigns.Tracker implements it.
type CampaignTracker interface {
	CreateCampaign(ctx context.Context, name string, description *string) (*models.Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.CampaignSummary, error)
	ListCampaigns(ctx context.Context) ([]models.CampaignSummary, error)
	UpdateCampaign(ctx context.Context, id uuid.UUID, name, description *string) (*models.CampaignSummary, error)
	DeleteCampaign(ctx context.Context, id uuid.UUID) error

	Attach(ctx context.Context, in campaigns.AttachInput) (*models.CampaignProspect, error)
	AttachByPlaceID(ctx context.Context, campaignID uuid.UUID, placeID string, in campaigns.AttachInput) (*models.CampaignProspect, error)
	Transition(ctx context.Context, campaignID, prospectID uuid.UUID, newStatus string) (*models.CampaignProspect, error)
	UpdateNotes(ctx context.Context, campaignID, prospectID uuid.UUID, notes string) (*models.CampaignProspect, error)
	Detach(ctx context.Context, campaignID, prospectID uuid.UUID) error
	ListProspects(ctx context.Context, campaignID uuid.UUID, status string) ([]models.CampaignProspect, error)
}

// CampaignHandler handles campaigns and their prospect pipeline via JSON API.
type CampaignHandler struct {
	tracker CampaignTracker
}

// NewCampaignHandler creates a new API campaign handler.
func NewCampaignHandler(tracker CampaignTracker) *CampaignHandler {
	return &CampaignHandler{tracker: tracker}
}

// List returns every campaign with its per-status counts.
func (h *CampaignHandler) List(c fiber.Ctx) error {
	list, err := h.tracker.ListCampaigns(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return jsonSuccess(c, list)
}

// Get returns one campaign with its counts.
func (h *CampaignHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid campaign id")
	}

	summary, err := h.tracker.GetCampaign(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, summary)
}

// Create creates a new campaign.
func (h *CampaignHandler) Create(c fiber.Ctx) error {
	var body struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	campaign, err := h.tracker.CreateCampaign(c.Context(), body.Name, body.Description)
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonCreated(c, campaign)
}

// Update renames a campaign or changes its description.
func (h *CampaignHandler) Update(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid campaign id")
	}

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	summary, err := h.tracker.UpdateCampaign(c.Context(), id, body.Name, body.Description)
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, summary)
}

// Delete removes a campaign and its links. Prospects are kept.
func (h *CampaignHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid campaign id")
	}

	if err := h.tracker.DeleteCampaign(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, fiber.Map{"deleted": true})
}

// ListProspects returns the campaign's prospects, optionally ?status=.
func (h *CampaignHandler) ListProspects(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid campaign id")
	}

	links, err := h.tracker.ListProspects(c.Context(), id, c.Query("status"))
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, links)
}

// AttachProspect adds a prospect to a campaign, identified either by
// prospect_id or by the catalog's place_id.
func (h *CampaignHandler) AttachProspect(c fiber.Ctx) error {
	campaignID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid campaign id")
	}

	var body struct {
		ProspectID        string `json:"prospect_id"`
		PlaceID           string `json:"place_id"`
		ReferenceClientID string `json:"reference_client_id"`
		Status            string `json:"status"`
		Notes             string `json:"notes"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.ValidateNotes(body.Notes); err != nil {
		return errorResponse(c, err)
	}

	in := campaigns.AttachInput{
		CampaignID: campaignID,
		Status:     body.Status,
		Notes:      body.Notes,
	}
	if body.ReferenceClientID != "" {
		refID, err := uuid.Parse(body.ReferenceClientID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid reference client id")
		}
		in.ReferenceClientID = &refID
	}

	var link *models.CampaignProspect
	switch {
	case body.ProspectID != "":
		prospectID, err := uuid.Parse(body.ProspectID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid prospect id")
		}
		in.ProspectID = prospectID
		link, err = h.tracker.Attach(c.Context(), in)
		if err != nil {
			return errorResponse(c, err)
		}
	case strings.TrimSpace(body.PlaceID) != "":
		link, err = h.tracker.AttachByPlaceID(c.Context(), campaignID, body.PlaceID, in)
		if err != nil {
			return errorResponse(c, err)
		}
	default:
		return jsonError(c, fiber.StatusBadRequest, "prospect_id or place_id is required")
	}

	return jsonCreated(c, link)
}

// UpdateStatus moves a campaign prospect to a new outreach status.
func (h *CampaignHandler) UpdateStatus(c fiber.Ctx) error {
	campaignID, prospectID, ok := linkIDs(c)
	if !ok {
		return nil
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	link, err := h.tracker.Transition(c.Context(), campaignID, prospectID, body.Status)
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, link)
}

// UpdateNotes replaces the notes on a campaign prospect.
func (h *CampaignHandler) UpdateNotes(c fiber.Ctx) error {
	campaignID, prospectID, ok := linkIDs(c)
	if !ok {
		return nil
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.ValidateNotes(body.Notes); err != nil {
		return errorResponse(c, err)
	}

	link, err := h.tracker.UpdateNotes(c.Context(), campaignID, prospectID, body.Notes)
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, link)
}

// DetachProspect removes a prospect from a campaign.
func (h *CampaignHandler) DetachProspect(c fiber.Ctx) error {
	campaignID, prospectID, ok := linkIDs(c)
	if !ok {
		return nil
	}

	if err := h.tracker.Detach(c.Context(), campaignID, prospectID); err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, fiber.Map{"deleted": true})
}

// linkIDs parses the :id and :prospectId params, writing the 400 response
// itself when either is malformed.
func linkIDs(c fiber.Ctx) (uuid.UUID, uuid.UUID, bool) {
	campaignID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		_ = jsonError(c, fiber.StatusBadRequest, "invalid campaign id")
		return uuid.Nil, uuid.Nil, false
	}
	prospectID, err := uuid.Parse(c.Params("prospectId"))
	if err != nil {
		_ = jsonError(c, fiber.StatusBadRequest, "invalid prospect id")
		return uuid.Nil, uuid.Nil, false
	}
	return campaignID, prospectID, true
}
