package api

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"looklike/internal/models"
	"looklike/internal/search"
	"looklike/internal/validation"
)

// Searcher runs prospect searches. *search.Service implements it.
type Searcher interface {
	SearchProspects(ctx context.Context, req search.Request) (*search.Response, error)
}

// HistoryLister reads the search log. *db.DB implements it.
type HistoryLister interface {
	ListSearchHistory(ctx context.Context, limit int) ([]models.SearchHistory, error)
}

// SearchHandler handles prospect search operations via JSON API.
type SearchHandler struct {
	searcher Searcher
	history  HistoryLister
}

// NewSearchHandler creates a new API search handler.
func NewSearchHandler(searcher Searcher, history HistoryLister) *SearchHandler {
	return &SearchHandler{searcher: searcher, history: history}
}

type searchRequest struct {
	ReferenceClientID string          `json:"reference_client_id"`
	Address           string          `json:"address"`
	CustomAddress     string          `json:"custom_address"`
	Terms             []string        `json:"terms"`
	CustomIndustry    string          `json:"custom_industry"`
	RadiusMeters      int             `json:"radius_meters"`
	RadiusMiles       float64         `json:"radius_miles"`
	Filters           json.RawMessage `json:"filters"`
}

// Prospects runs a look-alike search around a reference client or address.
func (h *SearchHandler) Prospects(c fiber.Ctx) error {
	var body searchRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	req := search.Request{
		Address:        body.Address,
		CustomAddress:  body.CustomAddress,
		Terms:          body.Terms,
		CustomIndustry: body.CustomIndustry,
		RadiusMeters:   body.RadiusMeters,
		RadiusMiles:    body.RadiusMiles,
	}

	if body.ReferenceClientID != "" {
		id, err := uuid.Parse(body.ReferenceClientID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid reference client id")
		}
		req.ReferenceClientID = &id
	}

	if err := validation.ValidateSearchTerms(req.Terms); err != nil {
		return errorResponse(c, err)
	}

	filters, err := search.ParseFilters(body.Filters)
	if err != nil {
		return errorResponse(c, err)
	}
	req.Filters = filters

	resp, err := h.searcher.SearchProspects(c.Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return jsonSuccess(c, resp)
}

// History lists the most recent searches.
func (h *SearchHandler) History(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	limit, _ = validation.Pagination(limit, 0, 50, 500)

	entries, err := h.history.ListSearchHistory(c.Context(), limit)
	if err != nil {
		return errorResponse(c, err)
	}
	if entries == nil {
		entries = []models.SearchHistory{}
	}

	return jsonSuccess(c, entries)
}
