package models

// Stats holds dashboard counters.
type Stats struct {
	ReferenceClients int64 `json:"reference_clients"`
	Campaigns        int64 `json:"campaigns"`
	Prospects        int64 `json:"prospects"`
	Searches         int64 `json:"searches"`
	Converted        int64 `json:"converted"`
}

// ProspectResult is a prospect returned by a search, annotated with its
// distance from the search center.
type ProspectResult struct {
	Prospect
	DistanceMeters *float64 `json:"distance_meters"`
}
