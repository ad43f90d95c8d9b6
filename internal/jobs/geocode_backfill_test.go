package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"looklike/internal/geo"
	"looklike/internal/models"
)

type fakeSource struct {
	clients []models.ReferenceClient
	err     error
	limit   int
	marked  []uuid.UUID
}

func (f *fakeSource) ListUngeocodedReferenceClients(_ context.Context, limit int) ([]models.ReferenceClient, error) {
	f.limit = limit
	return f.clients, f.err
}

func (f *fakeSource) MarkGeocodeAttempted(_ context.Context, id uuid.UUID) error {
	f.marked = append(f.marked, id)
	return nil
}

// rotatingSource orders like the database: never attempted clients first in
// creation order, then by oldest failed attempt. Clients the resolver has
// resolved drop out.
type rotatingSource struct {
	clients  []models.ReferenceClient
	resolver *fakeResolver
	attempt  map[uuid.UUID]int
	seq      int
}

func (r *rotatingSource) ListUngeocodedReferenceClients(_ context.Context, limit int) ([]models.ReferenceClient, error) {
	resolved := map[uuid.UUID]bool{}
	r.resolver.mu.Lock()
	for _, id := range r.resolver.seen {
		if !r.resolver.fails[id] {
			resolved[id] = true
		}
	}
	r.resolver.mu.Unlock()

	var pending []models.ReferenceClient
	for _, c := range r.clients {
		if !resolved[c.ID] {
			pending = append(pending, c)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return r.attempt[pending[i].ID] < r.attempt[pending[j].ID]
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *rotatingSource) MarkGeocodeAttempted(_ context.Context, id uuid.UUID) error {
	r.seq++
	r.attempt[id] = r.seq
	return nil
}

type fakeResolver struct {
	mu    sync.Mutex
	seen  []uuid.UUID
	fails map[uuid.UUID]bool
}

func (f *fakeResolver) ResolveClient(_ context.Context, c *models.ReferenceClient) (models.Coordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, c.ID)
	if f.fails[c.ID] {
		return models.Coordinate{}, geo.ErrUnresolvableAddress
	}
	return models.Coordinate{Lat: 41.88, Lng: -87.63}, nil
}

func clients(n int) []models.ReferenceClient {
	out := make([]models.ReferenceClient, n)
	for i := range out {
		out[i] = models.ReferenceClient{ID: uuid.New(), Name: "client", Address: "somewhere"}
	}
	return out
}

func TestRunOnce(t *testing.T) {
	src := &fakeSource{clients: clients(3)}
	res := &fakeResolver{fails: map[uuid.UUID]bool{src.clients[1].ID: true}}

	job := NewGeocodeBackfill(src, res, time.Hour)
	job.pause = 0

	got := job.RunOnce(context.Background())

	assert.Equal(t, 2, got)
	assert.Equal(t, 50, src.limit)
	assert.Len(t, res.seen, 3, "a failed client does not stop the batch")
	assert.Equal(t, []uuid.UUID{src.clients[1].ID}, src.marked)
}

func TestRunOnce_UnresolvableClientsDoNotStarveNewer(t *testing.T) {
	all := clients(4)
	good := all[3].ID
	res := &fakeResolver{fails: map[uuid.UUID]bool{
		all[0].ID: true,
		all[1].ID: true,
		all[2].ID: true,
	}}
	src := &rotatingSource{clients: all, resolver: res, attempt: map[uuid.UUID]int{}}

	job := NewGeocodeBackfill(src, res, time.Hour)
	job.pause = 0
	job.batchSize = 2

	assert.Zero(t, job.RunOnce(context.Background()))
	assert.Equal(t, 1, job.RunOnce(context.Background()))
	assert.Contains(t, res.seen, good)
}

func TestRunOnce_ListError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	res := &fakeResolver{}

	got := NewGeocodeBackfill(src, res, time.Hour).RunOnce(context.Background())

	assert.Zero(t, got)
	assert.Empty(t, res.seen)
}

func TestRunOnce_StopsOnCancel(t *testing.T) {
	src := &fakeSource{clients: clients(5)}
	res := &fakeResolver{}

	job := NewGeocodeBackfill(src, res, time.Hour)
	job.pause = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() { done <- job.RunOnce(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case got := <-done:
		assert.Equal(t, 1, got)
	case <-time.After(2 * time.Second):
		t.Fatal("RunOnce did not return after cancel")
	}
}

func TestStart_ReturnsOnCancel(t *testing.T) {
	src := &fakeSource{}
	job := NewGeocodeBackfill(src, &fakeResolver{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
