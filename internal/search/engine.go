package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"looklike/internal/models"
	"looklike/internal/places"
)

// ErrInvalidRadius is returned for radii outside the configured range.
// Radii are never clamped.
var ErrInvalidRadius = errors.New("invalid radius")

// Catalog is the places collaborator: one page per call.
type Catalog interface {
	Nearby(ctx context.Context, req places.PageRequest) (*places.Page, error)
	Text(ctx context.Context, req places.PageRequest) (*places.Page, error)
}

// Config bounds a proximity search.
type Config struct {
	MinRadiusMeters   int
	MaxRadiusMeters   int
	MaxPages          int
	PageTokenDelay    time.Duration
	IncludeTextSearch bool
	TermConcurrency   int
}

// DefaultConfig mirrors the catalog's documented limits: three pages of
// twenty results, and a next_page_token that needs about two seconds to
// become valid.
func DefaultConfig() Config {
	return Config{
		MinRadiusMeters: 1000,
		MaxRadiusMeters: 50000,
		MaxPages:        3,
		PageTokenDelay:  2 * time.Second,
		TermConcurrency: 4,
	}
}

// Engine runs proximity searches against a Catalog.
type Engine struct {
	catalog Catalog
	cfg     Config
}

func NewEngine(catalog Catalog, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MinRadiusMeters <= 0 {
		cfg.MinRadiusMeters = def.MinRadiusMeters
	}
	if cfg.MaxRadiusMeters <= 0 {
		cfg.MaxRadiusMeters = def.MaxRadiusMeters
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.PageTokenDelay < 0 {
		cfg.PageTokenDelay = 0
	}
	if cfg.TermConcurrency <= 0 {
		cfg.TermConcurrency = def.TermConcurrency
	}
	return &Engine{catalog: catalog, cfg: cfg}
}

// CheckRadius validates radiusMeters against the configured inclusive range.
func (e *Engine) CheckRadius(radiusMeters int) error {
	if radiusMeters < e.cfg.MinRadiusMeters || radiusMeters > e.cfg.MaxRadiusMeters {
		return fmt.Errorf("%w: %d meters is outside %d-%d",
			ErrInvalidRadius, radiusMeters, e.cfg.MinRadiusMeters, e.cfg.MaxRadiusMeters)
	}
	return nil
}

// Search starts a nearby search around center. No request is made until the
// first call to Next; pages are fetched as the caller drains the previous one.
func (e *Engine) Search(ctx context.Context, center models.Coordinate, radiusMeters int, typeHint string) (*Results, error) {
	if err := e.CheckRadius(radiusMeters); err != nil {
		return nil, err
	}

	req := places.PageRequest{
		Center:       center,
		RadiusMeters: radiusMeters,
		Keyword:      strings.TrimSpace(typeHint),
	}
	fetch := func(ctx context.Context, token string) (*places.Page, error) {
		r := req
		r.PageToken = token
		return e.catalog.Nearby(ctx, r)
	}
	return newResults(ctx, fetch, e.cfg.MaxPages, e.cfg.PageTokenDelay), nil
}

// SearchTerms runs one search per term and merges them. Terms are fetched
// concurrently but the merge walks them in the order given, keeping the first
// sighting of each place, so the output is deterministic.
func (e *Engine) SearchTerms(ctx context.Context, center models.Coordinate, radiusMeters int, terms []string) ([]models.Candidate, error) {
	if err := e.CheckRadius(radiusMeters); err != nil {
		return nil, err
	}
	terms = uniqueTerms(terms)
	if len(terms) == 0 {
		terms = []string{""}
	}

	perTerm := make([][]models.Candidate, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.TermConcurrency)
	for i, term := range terms {
		g.Go(func() error {
			found, err := e.searchTerm(gctx, center, radiusMeters, term)
			if err != nil {
				return fmt.Errorf("searching %q: %w", term, err)
			}
			perTerm[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var merged []models.Candidate
	for _, found := range perTerm {
		for _, c := range found {
			if seen[c.PlaceID] {
				continue
			}
			seen[c.PlaceID] = true
			merged = append(merged, c)
		}
	}
	return merged, nil
}

// searchTerm drains the nearby pages for one term, then appends a single
// text-search page when enabled.
func (e *Engine) searchTerm(ctx context.Context, center models.Coordinate, radiusMeters int, term string) ([]models.Candidate, error) {
	results, err := e.Search(ctx, center, radiusMeters, term)
	if err != nil {
		return nil, err
	}
	var found []models.Candidate
	for results.Next() {
		found = append(found, results.Candidate())
	}
	if err := results.Err(); err != nil {
		return nil, err
	}

	if e.cfg.IncludeTextSearch && term != "" {
		page, err := e.catalog.Text(ctx, places.PageRequest{
			Center:       center,
			RadiusMeters: radiusMeters,
			Keyword:      term,
		})
		if err != nil {
			return nil, err
		}
		found = append(found, page.Candidates...)
	}
	return found, nil
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
