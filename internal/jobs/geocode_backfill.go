package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"looklike/internal/models"
)

// ClientSource lists reference clients still missing a coordinate, least
// recently attempted first, and records failed attempts. *db.DB implements it.
type ClientSource interface {
	ListUngeocodedReferenceClients(ctx context.Context, limit int) ([]models.ReferenceClient, error)
	MarkGeocodeAttempted(ctx context.Context, id uuid.UUID) error
}

// ClientResolver geocodes a reference client and caches the result on it.
// *geo.Resolver implements it.
type ClientResolver interface {
	ResolveClient(ctx context.Context, client *models.ReferenceClient) (models.Coordinate, error)
}

// GeocodeBackfill resolves reference clients that were created without
// geocoding, so their first search does not pay for the lookup.
type GeocodeBackfill struct {
	source    ClientSource
	resolver  ClientResolver
	interval  time.Duration
	batchSize int
	pause     time.Duration
}

// NewGeocodeBackfill creates a new backfill job.
func NewGeocodeBackfill(source ClientSource, resolver ClientResolver, interval time.Duration) *GeocodeBackfill {
	return &GeocodeBackfill{
		source:    source,
		resolver:  resolver,
		interval:  interval,
		batchSize: 50,
		pause:     200 * time.Millisecond,
	}
}

// Start begins the background backfill loop.
func (g *GeocodeBackfill) Start(ctx context.Context) {
	slog.Info("geocode backfill started", "interval", g.interval)

	// Run immediately on start
	g.RunOnce(ctx)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("geocode backfill stopped")
			return
		case <-ticker.C:
			g.RunOnce(ctx)
		}
	}
}

// RunOnce geocodes one batch and returns how many clients were resolved.
func (g *GeocodeBackfill) RunOnce(ctx context.Context) int {
	clients, err := g.source.ListUngeocodedReferenceClients(ctx, g.batchSize)
	if err != nil {
		slog.Error("geocode backfill: failed to list clients", "error", err)
		return 0
	}

	if len(clients) == 0 {
		return 0
	}

	slog.Info("geocode backfill: resolving clients", "count", len(clients))

	resolved := 0
	for i := range clients {
		if i > 0 {
			// Spread requests out to stay under the provider's QPS limit
			select {
			case <-ctx.Done():
				return resolved
			case <-time.After(g.pause):
			}
		}

		client := &clients[i]
		if _, err := g.resolver.ResolveClient(ctx, client); err != nil {
			if ctx.Err() != nil {
				return resolved
			}
			slog.Warn("geocode backfill: failed to resolve client",
				"reference_client_id", client.ID,
				"error", err,
			)
			// Move it behind clients not yet tried.
			if err := g.source.MarkGeocodeAttempted(ctx, client.ID); err != nil {
				slog.Error("geocode backfill: failed to record attempt",
					"reference_client_id", client.ID,
					"error", err,
				)
			}
			continue
		}
		resolved++
	}

	return resolved
}
