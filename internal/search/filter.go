package search

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"looklike/internal/models"
)

// ErrInvalidFilters is returned for malformed or out-of-range filters.
var ErrInvalidFilters = errors.New("invalid filters")

// Filters are the caller's constraints on candidates. A nil pointer leaves
// that constraint unset. All set constraints must hold.
type Filters struct {
	BusinessType  string   `json:"business_type,omitempty"`
	MinRating     *float64 `json:"min_rating,omitempty"`
	MaxPriceLevel *int     `json:"max_price_level,omitempty"`
	OpenNow       *bool    `json:"open_now,omitempty"`
}

// ParseFilters decodes filters from JSON, rejecting unknown keys.
// Empty input and "null" yield the zero Filters.
func ParseFilters(data []byte) (Filters, error) {
	var f Filters
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return f, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return Filters{}, fmt.Errorf("%w: %v", ErrInvalidFilters, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Filters{}, fmt.Errorf("%w: trailing data after object", ErrInvalidFilters)
	}
	if err := f.Validate(); err != nil {
		return Filters{}, err
	}
	return f, nil
}

// Validate checks ranges: rating 0-5, price level 0-4.
func (f Filters) Validate() error {
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > 5) {
		return fmt.Errorf("%w: min_rating must be between 0 and 5", ErrInvalidFilters)
	}
	if f.MaxPriceLevel != nil && (*f.MaxPriceLevel < 0 || *f.MaxPriceLevel > 4) {
		return fmt.Errorf("%w: max_price_level must be between 0 and 4", ErrInvalidFilters)
	}
	return nil
}

// Match reports whether c satisfies every set constraint. A candidate with
// an unknown rating, price level or open-now flag fails the matching constraint.
func (f Filters) Match(c *models.Candidate) bool {
	if bt := normalizeTag(f.BusinessType); bt != "" && !hasTag(c.Types, bt) {
		return false
	}
	if f.MinRating != nil && (c.Rating == nil || *c.Rating < *f.MinRating) {
		return false
	}
	if f.MaxPriceLevel != nil && (c.PriceLevel == nil || *c.PriceLevel > *f.MaxPriceLevel) {
		return false
	}
	if f.OpenNow != nil && (c.OpenNow == nil || *c.OpenNow != *f.OpenNow) {
		return false
	}
	return true
}

// Apply drains src and returns the matching candidates in source order.
func (f Filters) Apply(src Source) ([]models.Candidate, error) {
	var out []models.Candidate
	for src.Next() {
		c := src.Candidate()
		if f.Match(&c) {
			out = append(out, c)
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// hasTag reports whether any type tag contains want as a substring.
func hasTag(types []string, want string) bool {
	for _, t := range types {
		if strings.Contains(normalizeTag(t), want) {
			return true
		}
	}
	return false
}

// normalizeTag maps "Meal Takeaway" and "meal-takeaway" to "meal_takeaway".
func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
