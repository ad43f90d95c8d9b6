package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SearchHistory records the parameters and outcome of one search.
type SearchHistory struct {
	ID                uuid.UUID       `json:"id"`
	ReferenceClientID *uuid.UUID      `json:"reference_client_id"`
	SearchTerms       []string        `json:"search_terms"`
	RadiusMeters      int             `json:"radius_meters"`
	CustomAddress     string          `json:"custom_address,omitempty"`
	Center            Coordinate      `json:"center"`
	Filters           json.RawMessage `json:"filters"`
	ResultsCount      int             `json:"results_count"`
	DurationSeconds   float64         `json:"search_duration_seconds"`
	CreatedAt         time.Time       `json:"created_at"`
}
