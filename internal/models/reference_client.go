package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceClient is a known successful business used as the anchor for a search.
type ReferenceClient struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	BusinessType string    `json:"business_type"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Coordinate returns the cached coordinate, if the client has been geocoded.
func (r *ReferenceClient) Coordinate() (Coordinate, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *r.Latitude, Lng: *r.Longitude}, true
}

// SetCoordinate caches a resolved coordinate on the client.
func (r *ReferenceClient) SetCoordinate(c Coordinate) {
	lat, lng := c.Lat, c.Lng
	r.Latitude = &lat
	r.Longitude = &lng
}
