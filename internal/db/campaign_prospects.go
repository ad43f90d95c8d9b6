package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"looklike/internal/models"
)

const campaignProspectColumns = `campaign_id, prospect_id, reference_client_id, status, notes, added_at, status_updated_at`

// Foreign key constraint names generated by Postgres for campaign_prospects.
const (
	fkCampaign        = "campaign_prospects_campaign_id_fkey"
	fkProspect        = "campaign_prospects_prospect_id_fkey"
	fkReferenceClient = "campaign_prospects_reference_client_id_fkey"
)

func scanCampaignProspect(row pgx.Row) (*models.CampaignProspect, error) {
	var cp models.CampaignProspect
	err := row.Scan(
		&cp.CampaignID,
		&cp.ProspectID,
		&cp.ReferenceClientID,
		&cp.Status,
		&cp.Notes,
		&cp.AddedAt,
		&cp.StatusUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssociationNotFound
	}
	if err != nil {
		return nil, persistenceError("scan campaign prospect", err)
	}
	return &cp, nil
}

// AttachProspect links a prospect to a campaign. The insert and the
// uniqueness check are one statement, so of two concurrent attaches for the
// same pair exactly one succeeds and the other gets ErrDuplicateAssociation.
func (d *DB) AttachProspect(ctx context.Context, cp *models.CampaignProspect) error {
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO campaign_prospects (campaign_id, prospect_id, reference_client_id, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (campaign_id, prospect_id) DO NOTHING
		RETURNING added_at, status_updated_at
	`, cp.CampaignID, cp.ProspectID, cp.ReferenceClientID, cp.Status, cp.Notes).Scan(&cp.AddedAt, &cp.StatusUpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateAssociation
	}
	if err != nil {
		if code, constraint, ok := pgError(err); ok {
			switch {
			case code == pgForeignKeyViolation && constraint == fkCampaign:
				return ErrCampaignNotFound
			case code == pgForeignKeyViolation && constraint == fkProspect:
				return ErrProspectNotFound
			case code == pgForeignKeyViolation && constraint == fkReferenceClient:
				return ErrReferenceClientNotFound
			case code == pgUniqueViolation:
				return ErrDuplicateAssociation
			}
		}
		return persistenceError("attach prospect", err)
	}
	return nil
}

// GetCampaignProspect retrieves one campaign/prospect link.
func (d *DB) GetCampaignProspect(ctx context.Context, campaignID, prospectID uuid.UUID) (*models.CampaignProspect, error) {
	query := `SELECT ` + campaignProspectColumns + ` FROM campaign_prospects WHERE campaign_id = $1 AND prospect_id = $2`
	return scanCampaignProspect(d.Pool.QueryRow(ctx, query, campaignID, prospectID))
}

// UpdateCampaignProspectStatus sets the outreach status of a link. The caller
// validates the target status.
func (d *DB) UpdateCampaignProspectStatus(ctx context.Context, campaignID, prospectID uuid.UUID, status models.Status) (*models.CampaignProspect, error) {
	query := `
		UPDATE campaign_prospects
		SET status = $3, status_updated_at = NOW()
		WHERE campaign_id = $1 AND prospect_id = $2
		RETURNING ` + campaignProspectColumns
	return scanCampaignProspect(d.Pool.QueryRow(ctx, query, campaignID, prospectID, status))
}

// UpdateCampaignProspectNotes replaces the free-text notes of a link.
func (d *DB) UpdateCampaignProspectNotes(ctx context.Context, campaignID, prospectID uuid.UUID, notes string) (*models.CampaignProspect, error) {
	query := `
		UPDATE campaign_prospects
		SET notes = $3
		WHERE campaign_id = $1 AND prospect_id = $2
		RETURNING ` + campaignProspectColumns
	return scanCampaignProspect(d.Pool.QueryRow(ctx, query, campaignID, prospectID, notes))
}

// DetachProspect hard-deletes a campaign/prospect link.
func (d *DB) DetachProspect(ctx context.Context, campaignID, prospectID uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `
		DELETE FROM campaign_prospects WHERE campaign_id = $1 AND prospect_id = $2
	`, campaignID, prospectID)
	if err != nil {
		return persistenceError("detach prospect", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAssociationNotFound
	}
	return nil
}

// ListCampaignProspects returns the links of a campaign joined with their
// prospects, oldest first. A non-nil status restricts the result.
func (d *DB) ListCampaignProspects(ctx context.Context, campaignID uuid.UUID, status *models.Status) ([]models.CampaignProspect, error) {
	query := `
		SELECT cp.campaign_id, cp.prospect_id, cp.reference_client_id, cp.status, cp.notes, cp.added_at, cp.status_updated_at,
			p.id, p.place_id, p.name, p.address, p.business_type, p.types, p.latitude, p.longitude,
			p.phone, p.website, p.rating, p.price_level, p.user_ratings_total, p.is_open_now, p.permanently_closed,
			p.created_at, p.updated_at
		FROM campaign_prospects cp
		JOIN prospects p ON p.id = cp.prospect_id
		WHERE cp.campaign_id = $1 AND ($2::text IS NULL OR cp.status = $2)
		ORDER BY cp.added_at ASC, p.name ASC
	`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := d.Pool.Query(ctx, query, campaignID, statusArg)
	if err != nil {
		return nil, persistenceError("list campaign prospects", err)
	}
	defer rows.Close()

	var links []models.CampaignProspect
	for rows.Next() {
		var cp models.CampaignProspect
		var p models.Prospect
		if err := rows.Scan(
			&cp.CampaignID,
			&cp.ProspectID,
			&cp.ReferenceClientID,
			&cp.Status,
			&cp.Notes,
			&cp.AddedAt,
			&cp.StatusUpdatedAt,
			&p.ID,
			&p.PlaceID,
			&p.Name,
			&p.Address,
			&p.BusinessType,
			&p.Types,
			&p.Latitude,
			&p.Longitude,
			&p.Phone,
			&p.Website,
			&p.Rating,
			&p.PriceLevel,
			&p.UserRatingsTotal,
			&p.IsOpenNow,
			&p.PermanentlyClosed,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, persistenceError("scan campaign prospect", err)
		}
		cp.Prospect = &p
		links = append(links, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list campaign prospects", err)
	}
	return links, nil
}
