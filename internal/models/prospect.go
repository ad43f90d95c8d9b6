package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Google type tags too generic to describe a business.
var genericPlaceTypes = map[string]bool{
	"point_of_interest": true,
	"establishment":     true,
}

// BusinessStatusClosedPermanently is the catalog's marker for a closed business.
const BusinessStatusClosedPermanently = "CLOSED_PERMANENTLY"

// Candidate is a raw business record returned by the places catalog.
type Candidate struct {
	PlaceID          string     `json:"place_id"`
	Name             string     `json:"name"`
	Address          string     `json:"address"`
	Location         Coordinate `json:"location"`
	Types            []string   `json:"types"`
	Rating           *float64   `json:"rating"`
	PriceLevel       *int       `json:"price_level"`
	OpenNow          *bool      `json:"open_now"`
	UserRatingsTotal *int       `json:"user_ratings_total"`
	Phone            string     `json:"phone,omitempty"`
	Website          string     `json:"website,omitempty"`
	BusinessStatus   string     `json:"business_status,omitempty"`
}

// BusinessType returns a human readable label built from the first two
// specific type tags, e.g. "Restaurant, Bar".
func (c *Candidate) BusinessType() string {
	return DescribeTypes(c.Types)
}

// DescribeTypes turns catalog type tags into a short display label.
func DescribeTypes(types []string) string {
	var labels []string
	for _, t := range types {
		if genericPlaceTypes[t] {
			continue
		}
		labels = append(labels, titleCase(strings.ReplaceAll(t, "_", " ")))
		if len(labels) == 2 {
			break
		}
	}
	return strings.Join(labels, ", ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Prospect is a discovered business, deduplicated by its catalog place id.
type Prospect struct {
	ID                uuid.UUID `json:"id"`
	PlaceID           string    `json:"place_id"`
	Name              string    `json:"name"`
	Address           string    `json:"address"`
	BusinessType      string    `json:"business_type"`
	Types             []string  `json:"types"`
	Latitude          *float64  `json:"latitude"`
	Longitude         *float64  `json:"longitude"`
	Phone             string    `json:"phone"`
	Website           string    `json:"website"`
	Rating            *float64  `json:"rating"`
	PriceLevel        *int      `json:"price_level"`
	UserRatingsTotal  *int      `json:"user_ratings_total"`
	IsOpenNow         *bool     `json:"is_open_now"`
	PermanentlyClosed bool      `json:"permanently_closed"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Coordinate returns the prospect location when known.
func (p *Prospect) Coordinate() (Coordinate, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *p.Latitude, Lng: *p.Longitude}, true
}
