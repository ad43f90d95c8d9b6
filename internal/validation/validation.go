package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"looklike/internal/models"
)

// ErrInvalidInput is wrapped by every validation failure so the API can
// answer 400 with the specific message.
var ErrInvalidInput = errors.New("invalid input")

// Field limits, mirrored by the column sizes in migrations.
const (
	MaxNameLength         = 255
	MaxAddressLength      = 500
	MaxBusinessTypeLength = 100
	MaxNotesLength        = 5000
	MaxSearchTerms        = 10
	MaxSearchTermLength   = 100
)

// SearchTermPattern allows letters, digits, spaces and a little punctuation
// seen in business categories ("auto repair", "children's dentist", "b&b").
var SearchTermPattern = regexp.MustCompile(`^[\p{L}\p{N} '&.,/-]+$`)

// ValidateSearchTerm checks a single free-text search term.
func ValidateSearchTerm(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" || len(term) > MaxSearchTermLength {
		return false
	}
	return SearchTermPattern.MatchString(term)
}

// ValidateSearchTerms checks the term list of a search request.
func ValidateSearchTerms(terms []string) error {
	if len(terms) > MaxSearchTerms {
		return fmt.Errorf("%w: at most %d search terms are allowed", ErrInvalidInput, MaxSearchTerms)
	}
	for _, t := range terms {
		if !ValidateSearchTerm(t) {
			return fmt.Errorf("%w: search term %q must be 1-%d letters, digits or spaces", ErrInvalidInput, t, MaxSearchTermLength)
		}
	}
	return nil
}

// ValidateURL checks if a URL is valid and uses an allowed scheme (http/https only).
// This prevents javascript:, data:, vbscript:, and other dangerous URL schemes.
func ValidateURL(urlStr string) (bool, string) {
	if urlStr == "" {
		return false, "URL is required"
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return false, "Invalid URL format"
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "URL must use http:// or https:// scheme"
	}

	if u.Host == "" {
		return false, "URL must have a valid host"
	}

	return true, ""
}

// NormalizeWebsite returns a prospect website safe to hand to a browser, or
// "" when the catalog gave something that is not an http(s) URL.
func NormalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if ok, _ := ValidateURL(raw); !ok {
		return ""
	}
	return raw
}

// ValidateReferenceClient trims and checks a reference client before it is
// stored. Latitude and longitude must be given together.
func ValidateReferenceClient(rc *models.ReferenceClient) error {
	rc.Name = strings.TrimSpace(rc.Name)
	rc.Address = strings.TrimSpace(rc.Address)
	rc.BusinessType = strings.TrimSpace(rc.BusinessType)
	rc.Notes = strings.TrimSpace(rc.Notes)

	switch {
	case rc.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case len(rc.Name) > MaxNameLength:
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, MaxNameLength)
	case rc.Address == "":
		return fmt.Errorf("%w: address is required", ErrInvalidInput)
	case len(rc.Address) > MaxAddressLength:
		return fmt.Errorf("%w: address must be at most %d characters", ErrInvalidInput, MaxAddressLength)
	case len(rc.BusinessType) > MaxBusinessTypeLength:
		return fmt.Errorf("%w: business_type must be at most %d characters", ErrInvalidInput, MaxBusinessTypeLength)
	case len(rc.Notes) > MaxNotesLength:
		return fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, MaxNotesLength)
	}

	if (rc.Latitude == nil) != (rc.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidInput)
	}
	if coord, ok := rc.Coordinate(); ok && !coord.Valid() {
		return fmt.Errorf("%w: coordinate %.6f,%.6f is out of range", ErrInvalidInput, coord.Lat, coord.Lng)
	}
	return nil
}

// ValidateNotes checks free-text notes on a campaign link.
func ValidateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, MaxNotesLength)
	}
	return nil
}

// Pagination clamps list parameters to sane bounds.
func Pagination(limit, offset, defaultLimit, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
