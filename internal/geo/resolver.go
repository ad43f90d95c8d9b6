package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"looklike/internal/metrics"
	"looklike/internal/models"
	"looklike/internal/places"
)

// ErrUnresolvableAddress means the geocoder found no match for the address
// or answered with something unusable. It is a data problem and is not retried.
var ErrUnresolvableAddress = errors.New("address could not be resolved")

const cacheKeyPrefix = "geocode:"

// sharedLookupTimeout bounds a geocode call shared by concurrent callers.
const sharedLookupTimeout = 30 * time.Second

// Geocoder turns a free-text address into a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Coordinate, error)
}

// ClientStore persists a freshly resolved coordinate on a reference client.
type ClientStore interface {
	SetReferenceClientCoordinate(ctx context.Context, id uuid.UUID, c models.Coordinate) error
}

// Resolver produces search centers from reference clients or addresses.
type Resolver struct {
	geocoder Geocoder
	cache    Cache
	store    ClientStore
	ttl      time.Duration
	group    singleflight.Group
}

// NewResolver creates a resolver. cache and store may be nil.
func NewResolver(geocoder Geocoder, cache Cache, store ClientStore, ttl time.Duration) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{
		geocoder: geocoder,
		cache:    cache,
		store:    store,
		ttl:      ttl,
	}
}

// ResolveClient returns the client's stored coordinate without an external
// call. A client that has never been resolved is geocoded by address and the
// result written back to the client and the store.
func (r *Resolver) ResolveClient(ctx context.Context, client *models.ReferenceClient) (models.Coordinate, error) {
	if coord, ok := client.Coordinate(); ok {
		return coord, nil
	}

	coord, err := r.ResolveAddress(ctx, client.Address)
	if err != nil {
		return models.Coordinate{}, err
	}

	client.SetCoordinate(coord)
	if r.store != nil {
		if err := r.store.SetReferenceClientCoordinate(ctx, client.ID, coord); err != nil {
			// The search can still proceed; the next one geocodes again.
			slog.Warn("failed to persist reference client coordinate",
				"reference_client_id", client.ID,
				"error", err,
			)
		}
	}
	return coord, nil
}

// ResolveAddress geocodes a free-text address, consulting the cache first.
// Concurrent misses for the same normalized address share one upstream call.
func (r *Resolver) ResolveAddress(ctx context.Context, address string) (models.Coordinate, error) {
	key := normalizeAddress(address)
	if key == "" {
		return models.Coordinate{}, fmt.Errorf("%w: empty address", ErrUnresolvableAddress)
	}

	if coord, ok := r.cached(key); ok {
		metrics.RecordGeocodeCache("hit")
		return coord, nil
	}
	metrics.RecordGeocodeCache("miss")

	// The shared lookup outlives any single caller; each caller stops
	// waiting on its own context.
	ch := r.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		coord, err := r.geocoder.Geocode(lookupCtx, strings.TrimSpace(address))
		if err != nil {
			return nil, err
		}
		r.remember(key, coord)
		return coord, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return models.Coordinate{}, ctx.Err()
	case res = <-ch:
	}
	v, err := res.Val, res.Err
	if err != nil {
		switch {
		case errors.Is(err, places.ErrNoResults), errors.Is(err, places.ErrMalformedResponse):
			return models.Coordinate{}, fmt.Errorf("%w: %q: %w", ErrUnresolvableAddress, address, err)
		case errors.Is(err, places.ErrSearchUnavailable),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			return models.Coordinate{}, err
		}
		return models.Coordinate{}, fmt.Errorf("%w: geocoding failed: %w", places.ErrSearchUnavailable, err)
	}
	return v.(models.Coordinate), nil
}

func (r *Resolver) cached(key string) (models.Coordinate, bool) {
	data, err := r.cache.Get(cacheKeyPrefix + key)
	if err != nil {
		slog.Warn("geocode cache read failed", "error", err)
		return models.Coordinate{}, false
	}
	if data == nil {
		return models.Coordinate{}, false
	}
	var coord models.Coordinate
	if err := json.Unmarshal(data, &coord); err != nil || !coord.Valid() {
		return models.Coordinate{}, false
	}
	return coord, true
}

func (r *Resolver) remember(key string, coord models.Coordinate) {
	data, err := json.Marshal(coord)
	if err != nil {
		return
	}
	if err := r.cache.Set(cacheKeyPrefix+key, data, r.ttl); err != nil {
		slog.Warn("geocode cache write failed", "error", err)
	}
}
