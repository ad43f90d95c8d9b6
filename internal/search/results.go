package search

import (
	"context"
	"time"

	"looklike/internal/models"
	"looklike/internal/places"
)

// Source is a forward-only stream of candidates.
type Source interface {
	Next() bool
	Candidate() models.Candidate
	Err() error
}

type pageFetcher func(ctx context.Context, token string) (*places.Page, error)

// Results is a lazy, finite, non-restartable candidate sequence. A place the
// catalog repeats on a later page is yielded once, at its first position. Usage
// follows pgx.Rows:
//
//	for res.Next() {
//		c := res.Candidate()
//	}
//	if err := res.Err(); err != nil { ... }
type Results struct {
	ctx      context.Context
	fetch    pageFetcher
	maxPages int
	delay    time.Duration

	buf   []models.Candidate
	pos   int
	cur   models.Candidate
	token string
	pages int
	done  bool
	err   error
	seen  map[string]struct{}
}

func newResults(ctx context.Context, fetch pageFetcher, maxPages int, delay time.Duration) *Results {
	return &Results{
		ctx:      ctx,
		fetch:    fetch,
		maxPages: maxPages,
		delay:    delay,
	}
}

// NewResults wraps an already materialized slice.
func NewResults(candidates []models.Candidate) *Results {
	return &Results{buf: candidates, done: true}
}

// Next advances to the next candidate, fetching the next page if the current
// one is drained. It returns false at the end of the sequence or on error.
func (r *Results) Next() bool {
	for {
		if r.pos < len(r.buf) {
			c := r.buf[r.pos]
			r.pos++
			if r.repeated(c.PlaceID) {
				continue
			}
			r.cur = c
			return true
		}
		if r.done || r.err != nil {
			return false
		}
		if r.pages >= r.maxPages || (r.pages > 0 && r.token == "") {
			r.done = true
			return false
		}

		if r.pages > 0 && r.delay > 0 {
			timer := time.NewTimer(r.delay)
			select {
			case <-r.ctx.Done():
				timer.Stop()
				r.err = r.ctx.Err()
				return false
			case <-timer.C:
			}
		}

		page, err := r.fetch(r.ctx, r.token)
		if err != nil {
			r.err = err
			return false
		}
		r.pages++
		r.buf = page.Candidates
		r.pos = 0
		r.token = page.NextPageToken
	}
}

func (r *Results) repeated(placeID string) bool {
	if placeID == "" {
		return false
	}
	if r.seen == nil {
		r.seen = make(map[string]struct{})
	}
	if _, ok := r.seen[placeID]; ok {
		return true
	}
	r.seen[placeID] = struct{}{}
	return false
}

// Candidate returns the current candidate.
func (r *Results) Candidate() models.Candidate {
	return r.cur
}

// Err returns the error, if any, that stopped iteration.
func (r *Results) Err() error {
	return r.err
}
