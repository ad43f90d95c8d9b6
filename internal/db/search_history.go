package db

import (
	"context"

	"looklike/internal/models"
)

// RecordSearch appends a search to the history log.
func (d *DB) RecordSearch(ctx context.Context, h *models.SearchHistory) error {
	terms := h.SearchTerms
	if terms == nil {
		terms = []string{}
	}
	filters := string(h.Filters)
	if filters == "" {
		filters = "{}"
	}

	err := d.Pool.QueryRow(ctx, `
		INSERT INTO search_history (reference_client_id, search_terms, radius_meters, custom_address,
			latitude, longitude, filters, results_count, search_duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
		RETURNING id, created_at
	`,
		h.ReferenceClientID,
		terms,
		h.RadiusMeters,
		h.CustomAddress,
		h.Center.Lat,
		h.Center.Lng,
		filters,
		h.ResultsCount,
		h.DurationSeconds,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return persistenceError("record search", err)
	}
	return nil
}

// ListSearchHistory returns the most recent searches.
func (d *DB) ListSearchHistory(ctx context.Context, limit int) ([]models.SearchHistory, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, reference_client_id, search_terms, radius_meters, custom_address,
			latitude, longitude, filters, results_count, search_duration_seconds, created_at
		FROM search_history
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, persistenceError("list search history", err)
	}
	defer rows.Close()

	var history []models.SearchHistory
	for rows.Next() {
		var h models.SearchHistory
		var filters []byte
		if err := rows.Scan(
			&h.ID,
			&h.ReferenceClientID,
			&h.SearchTerms,
			&h.RadiusMeters,
			&h.CustomAddress,
			&h.Center.Lat,
			&h.Center.Lng,
			&filters,
			&h.ResultsCount,
			&h.DurationSeconds,
			&h.CreatedAt,
		); err != nil {
			return nil, persistenceError("scan search history", err)
		}
		h.Filters = filters
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list search history", err)
	}
	return history, nil
}
