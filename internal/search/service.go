package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"looklike/internal/metrics"
	"looklike/internal/models"
)

// FallbackTerm is searched when nothing more specific is known.
const FallbackTerm = "business"

const metersPerMile = 1609.34

// ErrMissingReference is returned when a request names neither a reference
// client nor an address.
var ErrMissingReference = errors.New("either reference_client_id or address is required")

// Store is the persistence the search flow needs. *db.DB implements it.
type Store interface {
	GetReferenceClient(ctx context.Context, id uuid.UUID) (*models.ReferenceClient, error)
	CreateReferenceClient(ctx context.Context, rc *models.ReferenceClient) error
	UpsertProspects(ctx context.Context, candidates []models.Candidate) ([]models.Prospect, error)
	RecordSearch(ctx context.Context, h *models.SearchHistory) error
}

// Locator resolves search centers. *geo.Resolver implements it.
type Locator interface {
	ResolveClient(ctx context.Context, client *models.ReferenceClient) (models.Coordinate, error)
	ResolveAddress(ctx context.Context, address string) (models.Coordinate, error)
}

// Request is one prospect search. Either ReferenceClientID or Address must be
// set. CustomAddress moves the center away from the reference client.
type Request struct {
	ReferenceClientID *uuid.UUID `json:"reference_client_id,omitempty"`
	Address           string     `json:"address,omitempty"`
	CustomAddress     string     `json:"custom_address,omitempty"`
	Terms             []string   `json:"terms,omitempty"`
	CustomIndustry    string     `json:"custom_industry,omitempty"`
	RadiusMeters      int        `json:"radius_meters,omitempty"`
	RadiusMiles       float64    `json:"radius_miles,omitempty"`
	Filters           Filters    `json:"filters"`
}

// Response is the outcome of a prospect search.
type Response struct {
	Results         []models.ProspectResult `json:"results"`
	Count           int                     `json:"count"`
	Center          models.Coordinate       `json:"center"`
	SearchTerms     []string                `json:"search_terms"`
	RadiusMeters    int                     `json:"radius_meters"`
	Filters         Filters                 `json:"filters"`
	ReferenceClient *models.ReferenceClient `json:"reference_client,omitempty"`
	DurationSeconds float64                 `json:"search_duration_seconds"`
}

// Service wires resolution, search, filtering and persistence together.
type Service struct {
	store      Store
	locator    Locator
	engine     *Engine
	industries map[string][]string
	now        func() time.Time
}

// NewService creates a search service. industries maps an industry name to
// the search terms it expands to; keys are matched case-insensitively.
func NewService(store Store, locator Locator, engine *Engine, industries map[string][]string) *Service {
	normalized := make(map[string][]string, len(industries))
	for name, terms := range industries {
		normalized[strings.ToLower(strings.TrimSpace(name))] = terms
	}
	return &Service{
		store:      store,
		locator:    locator,
		engine:     engine,
		industries: normalized,
		now:        time.Now,
	}
}

// SearchProspects finds, filters and persists prospects around a reference.
// Validation failures happen before any external call or write.
func (s *Service) SearchProspects(ctx context.Context, req Request) (*Response, error) {
	start := s.now()
	resp, err := s.searchProspects(ctx, req, start)
	elapsed := s.now().Sub(start)
	if err != nil {
		metrics.ObserveSearch(searchOutcome(err), elapsed, 0)
		return nil, err
	}
	metrics.ObserveSearch("ok", elapsed, resp.Count)
	return resp, nil
}

func (s *Service) searchProspects(ctx context.Context, req Request, start time.Time) (*Response, error) {
	radius := req.RadiusMeters
	if radius == 0 && req.RadiusMiles > 0 {
		radius = int(math.Round(req.RadiusMiles * metersPerMile))
	}
	if err := s.engine.CheckRadius(radius); err != nil {
		return nil, err
	}
	if err := req.Filters.Validate(); err != nil {
		return nil, err
	}
	if req.ReferenceClientID == nil && strings.TrimSpace(req.Address) == "" {
		return nil, ErrMissingReference
	}

	var client *models.ReferenceClient
	if req.ReferenceClientID != nil {
		var err error
		client, err = s.store.GetReferenceClient(ctx, *req.ReferenceClientID)
		if err != nil {
			return nil, err
		}
	}

	center, err := s.resolveCenter(ctx, req, client)
	if err != nil {
		return nil, err
	}

	terms := s.searchTerms(req, client)

	var src Source
	if len(terms) == 1 {
		src, err = s.engine.Search(ctx, center, radius, terms[0])
	} else {
		var merged []models.Candidate
		merged, err = s.engine.SearchTerms(ctx, center, radius, terms)
		src = NewResults(merged)
	}
	if err != nil {
		return nil, err
	}

	candidates, err := req.Filters.Apply(src)
	if err != nil {
		return nil, err
	}

	var prospects []models.Prospect
	if len(candidates) > 0 {
		prospects, err = s.store.UpsertProspects(ctx, candidates)
		if err != nil {
			return nil, err
		}
	}

	results := make([]models.ProspectResult, len(prospects))
	for i, p := range prospects {
		results[i] = models.ProspectResult{Prospect: p}
		if coord, ok := p.Coordinate(); ok {
			d := math.Round(center.DistanceTo(coord))
			results[i].DistanceMeters = &d
		}
	}

	resp := &Response{
		Results:         results,
		Count:           len(results),
		Center:          center,
		SearchTerms:     terms,
		RadiusMeters:    radius,
		Filters:         req.Filters,
		ReferenceClient: client,
		DurationSeconds: s.now().Sub(start).Seconds(),
	}
	s.recordHistory(ctx, req, resp)
	return resp, nil
}

func (s *Service) resolveCenter(ctx context.Context, req Request, client *models.ReferenceClient) (models.Coordinate, error) {
	if addr := strings.TrimSpace(req.CustomAddress); addr != "" {
		return s.locator.ResolveAddress(ctx, addr)
	}
	if client != nil {
		return s.locator.ResolveClient(ctx, client)
	}
	return s.locator.ResolveAddress(ctx, req.Address)
}

// searchTerms picks, in order: explicit terms, a custom industry (alias or
// comma list), the reference client's business type, the business_type
// filter, and finally FallbackTerm.
func (s *Service) searchTerms(req Request, client *models.ReferenceClient) []string {
	if terms := uniqueTerms(req.Terms); len(terms) > 0 {
		return terms
	}
	if industry := strings.TrimSpace(req.CustomIndustry); industry != "" {
		if alias, ok := s.industries[strings.ToLower(industry)]; ok {
			if terms := uniqueTerms(alias); len(terms) > 0 {
				return terms
			}
		}
		if terms := uniqueTerms(strings.Split(industry, ",")); len(terms) > 0 {
			return terms
		}
	}
	if client != nil && strings.TrimSpace(client.BusinessType) != "" {
		return []string{strings.TrimSpace(client.BusinessType)}
	}
	if bt := strings.TrimSpace(req.Filters.BusinessType); bt != "" {
		return []string{bt}
	}
	return []string{FallbackTerm}
}

func (s *Service) recordHistory(ctx context.Context, req Request, resp *Response) {
	filters, err := json.Marshal(req.Filters)
	if err != nil {
		filters = []byte("{}")
	}
	h := &models.SearchHistory{
		ReferenceClientID: req.ReferenceClientID,
		SearchTerms:       resp.SearchTerms,
		RadiusMeters:      resp.RadiusMeters,
		CustomAddress:     strings.TrimSpace(req.CustomAddress),
		Center:            resp.Center,
		Filters:           filters,
		ResultsCount:      resp.Count,
		DurationSeconds:   resp.DurationSeconds,
	}
	if h.CustomAddress == "" && req.ReferenceClientID == nil {
		h.CustomAddress = strings.TrimSpace(req.Address)
	}
	if err := s.store.RecordSearch(ctx, h); err != nil {
		slog.Error("failed to record search history", "error", err)
	}
}

// CreateReferenceClient stores a new reference client. With geocode set, the
// address is resolved first so a bad address creates nothing.
func (s *Service) CreateReferenceClient(ctx context.Context, rc *models.ReferenceClient, geocode bool) error {
	if geocode {
		if _, ok := rc.Coordinate(); !ok {
			coord, err := s.locator.ResolveAddress(ctx, rc.Address)
			if err != nil {
				return fmt.Errorf("geocoding reference client: %w", err)
			}
			rc.SetCoordinate(coord)
		}
	}
	return s.store.CreateReferenceClient(ctx, rc)
}

func searchOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRadius), errors.Is(err, ErrInvalidFilters), errors.Is(err, ErrMissingReference):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
