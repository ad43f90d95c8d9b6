package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"looklike/internal/models"
	"looklike/internal/places"
)

// fakeCatalog serves pages keyed by keyword. Page n of a keyword is
// addressed by the token "<n>:<keyword>".
type fakeCatalog struct {
	mu       sync.Mutex
	nearby   map[string][]places.Page
	text     map[string]places.Page
	errAt    map[string]error
	requests []places.PageRequest
}

func (f *fakeCatalog) Nearby(ctx context.Context, req places.PageRequest) (*places.Page, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	keyword, idx := req.Keyword, 0
	if req.PageToken != "" {
		n, kw, _ := strings.Cut(req.PageToken, ":")
		var err error
		if idx, err = strconv.Atoi(n); err != nil {
			return nil, err
		}
		keyword = kw
	}
	if err := f.errAt[fmt.Sprintf("%s/%d", keyword, idx)]; err != nil {
		return nil, err
	}
	pages := f.nearby[keyword]
	if idx >= len(pages) {
		return &places.Page{}, nil
	}
	page := pages[idx]
	if idx+1 < len(pages) {
		page.NextPageToken = fmt.Sprintf("%d:%s", idx+1, keyword)
	}
	return &page, nil
}

func (f *fakeCatalog) Text(ctx context.Context, req places.PageRequest) (*places.Page, error) {
	page := f.text[req.Keyword]
	return &page, nil
}

func (f *fakeCatalog) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func cands(ids ...string) []models.Candidate {
	out := make([]models.Candidate, len(ids))
	for i, id := range ids {
		out[i] = models.Candidate{PlaceID: id, Name: "Place " + id}
	}
	return out
}

func placeIDs(cs []models.Candidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.PlaceID
	}
	return ids
}

func drain(t *testing.T, r *Results) []string {
	t.Helper()
	var ids []string
	for r.Next() {
		ids = append(ids, r.Candidate().PlaceID)
	}
	require.NoError(t, r.Err())
	return ids
}

var center = models.Coordinate{Lat: 41.88, Lng: -87.63}

func testEngine(catalog Catalog) *Engine {
	return NewEngine(catalog, Config{
		MinRadiusMeters: 1000,
		MaxRadiusMeters: 50000,
		MaxPages:        3,
		PageTokenDelay:  0,
	})
}

func TestCheckRadius(t *testing.T) {
	e := testEngine(&fakeCatalog{})

	for _, r := range []int{1000, 1001, 5000, 25000, 49999, 50000} {
		assert.NoError(t, e.CheckRadius(r), "radius %d", r)
	}
	for _, r := range []int{-1, 0, 999, 50001, 1_000_000} {
		assert.ErrorIs(t, e.CheckRadius(r), ErrInvalidRadius, "radius %d", r)
	}
}

func TestSearch_InvalidRadiusMakesNoRequest(t *testing.T) {
	catalog := &fakeCatalog{}
	e := testEngine(catalog)

	_, err := e.Search(context.Background(), center, 60000, "cafe")
	assert.ErrorIs(t, err, ErrInvalidRadius)
	assert.Zero(t, catalog.requestCount())
}

func TestSearch_IsLazyAndFollowsPages(t *testing.T) {
	catalog := &fakeCatalog{nearby: map[string][]places.Page{
		"cafe": {
			{Candidates: cands("a", "b")},
			{Candidates: cands("c")},
		},
	}}
	e := testEngine(catalog)

	res, err := e.Search(context.Background(), center, 5000, "cafe")
	require.NoError(t, err)
	assert.Zero(t, catalog.requestCount(), "nothing fetched before Next")

	assert.Equal(t, []string{"a", "b", "c"}, drain(t, res))
	assert.Equal(t, 2, catalog.requestCount())
	assert.False(t, res.Next(), "sequence is not restartable")
}

func TestSearch_SkipsPlacesRepeatedAcrossPages(t *testing.T) {
	catalog := &fakeCatalog{nearby: map[string][]places.Page{
		"cafe": {
			{Candidates: cands("a", "b")},
			{Candidates: cands("b", "c", "a")},
			{Candidates: cands("d", "c")},
		},
	}}
	e := testEngine(catalog)

	res, err := e.Search(context.Background(), center, 5000, "cafe")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, drain(t, res))
}

func TestSearch_StopsAtMaxPages(t *testing.T) {
	catalog := &fakeCatalog{nearby: map[string][]places.Page{
		"bar": {
			{Candidates: cands("1")},
			{Candidates: cands("2")},
			{Candidates: cands("3")},
			{Candidates: cands("4")},
		},
	}}
	e := testEngine(catalog)

	res, err := e.Search(context.Background(), center, 5000, "bar")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, drain(t, res))
	assert.Equal(t, 3, catalog.requestCount())
}

func TestSearch_ErrorMidway(t *testing.T) {
	catalog := &fakeCatalog{
		nearby: map[string][]places.Page{
			"gym": {{Candidates: cands("a")}, {Candidates: cands("b")}},
		},
		errAt: map[string]error{"gym/1": fmt.Errorf("%w: HTTP 503", places.ErrSearchUnavailable)},
	}
	e := testEngine(catalog)

	res, err := e.Search(context.Background(), center, 5000, "gym")
	require.NoError(t, err)

	require.True(t, res.Next())
	assert.Equal(t, "a", res.Candidate().PlaceID)
	assert.False(t, res.Next())
	assert.ErrorIs(t, res.Err(), places.ErrSearchUnavailable)
}

func TestSearch_PageTokenDelayHonorsCancellation(t *testing.T) {
	catalog := &fakeCatalog{nearby: map[string][]places.Page{
		"spa": {{Candidates: cands("a")}, {Candidates: cands("b")}},
	}}
	e := NewEngine(catalog, Config{MaxPages: 3, PageTokenDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	res, err := e.Search(ctx, center, 5000, "spa")
	require.NoError(t, err)

	require.True(t, res.Next())
	cancel()
	assert.False(t, res.Next())
	assert.True(t, errors.Is(res.Err(), context.Canceled))
}

func TestSearchTerms_MergesInTermOrderAndDedupes(t *testing.T) {
	catalog := &fakeCatalog{
		nearby: map[string][]places.Page{
			"restaurant": {{Candidates: cands("r1", "shared", "r2")}},
			"cafe":       {{Candidates: cands("shared", "c1")}, {Candidates: cands("c2")}},
		},
		text: map[string]places.Page{
			"restaurant": {Candidates: cands("r2", "t1")},
		},
	}
	e := NewEngine(catalog, Config{MaxPages: 3, IncludeTextSearch: true, TermConcurrency: 2})

	got, err := e.SearchTerms(context.Background(), center, 5000, []string{"restaurant", "cafe", "Restaurant", " "})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "shared", "r2", "t1", "c1", "c2"}, placeIDs(got))
}

func TestSearchTerms_FailsWhenAnyTermFails(t *testing.T) {
	catalog := &fakeCatalog{
		nearby: map[string][]places.Page{"a": {{Candidates: cands("1")}}},
		errAt:  map[string]error{"b/0": places.ErrUpstreamRejected},
	}
	e := testEngine(catalog)

	_, err := e.SearchTerms(context.Background(), center, 5000, []string{"a", "b"})
	assert.ErrorIs(t, err, places.ErrUpstreamRejected)
}

func TestSearchTerms_InvalidRadius(t *testing.T) {
	e := testEngine(&fakeCatalog{})
	_, err := e.SearchTerms(context.Background(), center, 10, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestNewResults(t *testing.T) {
	res := NewResults(cands("x", "y", "x"))
	assert.Equal(t, []string{"x", "y"}, drain(t, res))
	assert.False(t, res.Next())
}
