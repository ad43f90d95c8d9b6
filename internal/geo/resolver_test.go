package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"looklike/internal/models"
	"looklike/internal/places"
)

type fakeGeocoder struct {
	calls atomic.Int32
	coord models.Coordinate
	err   error
	delay time.Duration

	// When release is set, Geocode signals started and blocks until release
	// is closed or its context ends.
	started chan struct{}
	release chan struct{}
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (models.Coordinate, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.release != nil {
		f.started <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return models.Coordinate{}, ctx.Err()
		}
	}
	return f.coord, f.err
}

type fakeClientStore struct {
	mu     sync.Mutex
	saved  map[uuid.UUID]models.Coordinate
	failed bool
}

func (f *fakeClientStore) SetReferenceClientCoordinate(ctx context.Context, id uuid.UUID, c models.Coordinate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return errors.New("db down")
	}
	if f.saved == nil {
		f.saved = map[uuid.UUID]models.Coordinate{}
	}
	f.saved[id] = c
	return nil
}

var chicago = models.Coordinate{Lat: 41.88, Lng: -87.63}

func TestResolveClient_CachedCoordinateSkipsGeocoder(t *testing.T) {
	geocoder := &fakeGeocoder{err: errors.New("must not be called")}
	r := NewResolver(geocoder, nil, nil, time.Hour)

	client := &models.ReferenceClient{ID: uuid.New(), Address: "anywhere"}
	client.SetCoordinate(chicago)

	got, err := r.ResolveClient(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, chicago, got)
	assert.Zero(t, geocoder.calls.Load())
}

func TestResolveClient_GeocodesAndPersists(t *testing.T) {
	geocoder := &fakeGeocoder{coord: chicago}
	store := &fakeClientStore{}
	r := NewResolver(geocoder, nil, store, time.Hour)

	client := &models.ReferenceClient{ID: uuid.New(), Address: "100 W Randolph St, Chicago"}
	got, err := r.ResolveClient(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, chicago, got)

	coord, ok := client.Coordinate()
	assert.True(t, ok)
	assert.Equal(t, chicago, coord)
	assert.Equal(t, chicago, store.saved[client.ID])
}

func TestResolveClient_StoreFailureIsNotFatal(t *testing.T) {
	r := NewResolver(&fakeGeocoder{coord: chicago}, nil, &fakeClientStore{failed: true}, time.Hour)

	_, err := r.ResolveClient(context.Background(), &models.ReferenceClient{ID: uuid.New(), Address: "x st"})
	assert.NoError(t, err)
}

func TestResolveAddress_CachesNormalizedAddress(t *testing.T) {
	geocoder := &fakeGeocoder{coord: chicago}
	r := NewResolver(geocoder, NewMemoryCache(), nil, time.Hour)
	ctx := context.Background()

	_, err := r.ResolveAddress(ctx, "100 W. Randolph St, Chicago")
	require.NoError(t, err)
	got, err := r.ResolveAddress(ctx, "  100 w randolph st   chicago ")
	require.NoError(t, err)

	assert.Equal(t, chicago, got)
	assert.Equal(t, int32(1), geocoder.calls.Load())
}

func TestResolveAddress_ConcurrentMissesShareOneCall(t *testing.T) {
	geocoder := &fakeGeocoder{coord: chicago, delay: 50 * time.Millisecond}
	r := NewResolver(geocoder, nil, nil, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ResolveAddress(context.Background(), "233 S Wacker Dr")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), geocoder.calls.Load())
}

func TestResolveAddress_CanceledCallerDoesNotFailOthers(t *testing.T) {
	geocoder := &fakeGeocoder{
		coord:   chicago,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	r := NewResolver(geocoder, nil, nil, time.Hour)
	const address = "233 S Wacker Dr"

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.ResolveAddress(firstCtx, address)
		firstErr <- err
	}()
	<-geocoder.started

	type result struct {
		coord models.Coordinate
		err   error
	}
	second := make(chan result, 1)
	go func() {
		c, err := r.ResolveAddress(context.Background(), address)
		second <- result{c, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(geocoder.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, chicago, got.coord)
	assert.Equal(t, int32(1), geocoder.calls.Load())
}

func TestResolveAddress_Errors(t *testing.T) {
	tests := []struct {
		name    string
		address string
		err     error
		want    error
	}{
		{"empty address", "  ,, ", nil, ErrUnresolvableAddress},
		{"zero results", "nowhere", places.ErrNoResults, ErrUnresolvableAddress},
		{"malformed", "somewhere", fmt.Errorf("%w: bad json", places.ErrMalformedResponse), ErrUnresolvableAddress},
		{"outage", "somewhere", fmt.Errorf("%w: HTTP 503", places.ErrSearchUnavailable), places.ErrSearchUnavailable},
		{"unexpected", "somewhere", errors.New("boom"), places.ErrSearchUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeGeocoder{err: tt.err}, nil, nil, time.Hour)
			_, err := r.ResolveAddress(context.Background(), tt.address)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveAddress_FailuresAreNotCached(t *testing.T) {
	geocoder := &fakeGeocoder{err: places.ErrNoResults}
	r := NewResolver(geocoder, nil, nil, time.Hour)
	ctx := context.Background()

	_, err := r.ResolveAddress(ctx, "typo street")
	require.ErrorIs(t, err, ErrUnresolvableAddress)

	geocoder.err = nil
	geocoder.coord = chicago
	got, err := r.ResolveAddress(ctx, "typo street")
	require.NoError(t, err)
	assert.Equal(t, chicago, got)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("k", []byte("v"), time.Minute))
	got, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	got, err = c.Get("k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"100 W. Randolph St, Chicago", "100 w randolph st chicago"},
		{"  Suite #4   Main\tSt ", "suite #4 main st"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeAddress(tt.in), tt.in)
	}
}
