package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"looklike/internal/models"
)

// campaignSummarySelect aggregates per-status link counts for each campaign.
const campaignSummarySelect = `
	SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		COUNT(cp.prospect_id),
		COUNT(cp.prospect_id) FILTER (WHERE cp.status = 'contacted'),
		COUNT(cp.prospect_id) FILTER (WHERE cp.status = 'qualified'),
		COUNT(cp.prospect_id) FILTER (WHERE cp.status = 'not_interested'),
		COUNT(cp.prospect_id) FILTER (WHERE cp.status = 'converted')
	FROM campaigns c
	LEFT JOIN campaign_prospects cp ON cp.campaign_id = c.id
`

func scanCampaignSummary(row pgx.Row) (*models.CampaignSummary, error) {
	var s models.CampaignSummary
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.ProspectCount,
		&s.ContactedCount,
		&s.QualifiedCount,
		&s.NotInterestedCount,
		&s.ConvertedCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, persistenceError("scan campaign", err)
	}
	return &s, nil
}

// CreateCampaign creates a new, empty campaign.
func (d *DB) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO campaigns (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Description).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return persistenceError("create campaign", err)
	}
	return nil
}

// GetCampaign retrieves a campaign with its status counts.
func (d *DB) GetCampaign(ctx context.Context, id uuid.UUID) (*models.CampaignSummary, error) {
	query := campaignSummarySelect + ` WHERE c.id = $1 GROUP BY c.id`
	return scanCampaignSummary(d.Pool.QueryRow(ctx, query, id))
}

// ListCampaigns returns all campaigns with status counts, newest first.
func (d *DB) ListCampaigns(ctx context.Context) ([]models.CampaignSummary, error) {
	query := campaignSummarySelect + ` GROUP BY c.id ORDER BY c.created_at DESC`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, persistenceError("list campaigns", err)
	}
	defer rows.Close()

	var campaigns []models.CampaignSummary
	for rows.Next() {
		s, err := scanCampaignSummary(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list campaigns", err)
	}
	return campaigns, nil
}

// UpdateCampaign renames a campaign or changes its description.
func (d *DB) UpdateCampaign(ctx context.Context, c *models.Campaign) error {
	err := d.Pool.QueryRow(ctx, `
		UPDATE campaigns
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Description).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCampaignNotFound
	}
	if err != nil {
		return persistenceError("update campaign", err)
	}
	return nil
}

// DeleteCampaign removes a campaign and its prospect links. The prospects
// themselves are kept.
func (d *DB) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return persistenceError("delete campaign", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}
