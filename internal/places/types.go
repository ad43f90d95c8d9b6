package places

import (
	"strings"

	"looklike/internal/models"
	"looklike/internal/validation"
)

// Response statuses returned by the Google Maps web services.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusInvalidRequest = "INVALID_REQUEST"
	statusUnknownError   = "UNKNOWN_ERROR"
	statusNotFound       = "NOT_FOUND"
)

type searchResponse struct {
	NextPageToken string        `json:"next_page_token"`
	Results       []placeResult `json:"results"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
}

type placeResult struct {
	BusinessStatus   string        `json:"business_status"`
	Geometry         geometry      `json:"geometry"`
	Name             string        `json:"name"`
	OpeningHours     *openingHours `json:"opening_hours,omitempty"`
	PlaceID          string        `json:"place_id"`
	PriceLevel       *int          `json:"price_level,omitempty"`
	Rating           *float64      `json:"rating,omitempty"`
	Types            []string      `json:"types"`
	UserRatingsTotal *int          `json:"user_ratings_total,omitempty"`
	Vicinity         string        `json:"vicinity"`
	FormattedAddress string        `json:"formatted_address"`
	PhoneNumber      string        `json:"formatted_phone_number"`
	Website          string        `json:"website"`
}

type geometry struct {
	Location location `json:"location"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type openingHours struct {
	OpenNow *bool `json:"open_now"`
}

type geocodeResponse struct {
	Results []struct {
		FormattedAddress string   `json:"formatted_address"`
		Geometry         geometry `json:"geometry"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// candidate converts a catalog result into the domain shape. Nearby search
// fills vicinity, text search fills formatted_address.
func (r *placeResult) candidate() models.Candidate {
	addr := r.FormattedAddress
	if addr == "" {
		addr = r.Vicinity
	}
	c := models.Candidate{
		PlaceID:          r.PlaceID,
		Name:             strings.TrimSpace(r.Name),
		Address:          addr,
		Location:         models.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		Types:            r.Types,
		Rating:           r.Rating,
		PriceLevel:       r.PriceLevel,
		UserRatingsTotal: r.UserRatingsTotal,
		Phone:            r.PhoneNumber,
		Website:          validation.NormalizeWebsite(r.Website),
		BusinessStatus:   r.BusinessStatus,
	}
	if r.OpeningHours != nil {
		c.OpenNow = r.OpeningHours.OpenNow
	}
	return c
}
