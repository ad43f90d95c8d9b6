package db

import (
	"context"

	"looklike/internal/models"
)

// GetStats returns dashboard counters in a single round trip.
func (d *DB) GetStats(ctx context.Context) (*models.Stats, error) {
	var s models.Stats
	err := d.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM reference_clients),
			(SELECT COUNT(*) FROM campaigns),
			(SELECT COUNT(*) FROM prospects),
			(SELECT COUNT(*) FROM search_history),
			(SELECT COUNT(*) FROM campaign_prospects WHERE status = 'converted')
	`).Scan(&s.ReferenceClients, &s.Campaigns, &s.Prospects, &s.Searches, &s.Converted)
	if err != nil {
		return nil, persistenceError("get stats", err)
	}
	return &s, nil
}

// CountCampaignProspectsByStatus returns the number of links per status
// across all campaigns.
func (d *DB) CountCampaignProspectsByStatus(ctx context.Context) (map[models.Status]int64, error) {
	rows, err := d.Pool.Query(ctx, `SELECT status, COUNT(*) FROM campaign_prospects GROUP BY status`)
	if err != nil {
		return nil, persistenceError("count campaign prospects", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int64, len(models.Statuses))
	for rows.Next() {
		var status models.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, persistenceError("scan status count", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("count campaign prospects", err)
	}
	return counts, nil
}
