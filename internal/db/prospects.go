package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"looklike/internal/models"
)

// prospectColumns is the standard column list for prospect queries.
const prospectColumns = `id, place_id, name, address, business_type, types, latitude, longitude,
	phone, website, rating, price_level, user_ratings_total, is_open_now, permanently_closed,
	created_at, updated_at`

// upsertProspectQuery inserts a prospect or, when the place id is already
// known, refreshes only the fields that drift between sightings. Rating,
// price and review count keep their stored value when a sighting omits them.
const upsertProspectQuery = `
	INSERT INTO prospects (place_id, name, address, business_type, types, latitude, longitude,
		phone, website, rating, price_level, user_ratings_total, is_open_now, permanently_closed)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (place_id) DO UPDATE SET
		rating = COALESCE(EXCLUDED.rating, prospects.rating),
		price_level = COALESCE(EXCLUDED.price_level, prospects.price_level),
		user_ratings_total = COALESCE(EXCLUDED.user_ratings_total, prospects.user_ratings_total),
		is_open_now = EXCLUDED.is_open_now,
		permanently_closed = EXCLUDED.permanently_closed,
		updated_at = NOW()
	RETURNING ` + prospectColumns

func scanProspect(row pgx.Row) (*models.Prospect, error) {
	var p models.Prospect
	err := row.Scan(
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
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProspectNotFound
	}
	if err != nil {
		return nil, persistenceError("scan prospect", err)
	}
	return &p, nil
}

func scanProspects(rows pgx.Rows) ([]models.Prospect, error) {
	defer rows.Close()

	var prospects []models.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("scan prospects", err)
	}
	return prospects, nil
}

func upsertArgs(c *models.Candidate) []any {
	types := c.Types
	if types == nil {
		types = []string{}
	}

	var lat, lng *float64
	if c.Location.Valid() && (c.Location.Lat != 0 || c.Location.Lng != 0) {
		la, ln := c.Location.Lat, c.Location.Lng
		lat, lng = &la, &ln
	}

	return []any{
		c.PlaceID,
		c.Name,
		c.Address,
		c.BusinessType(),
		types,
		lat,
		lng,
		c.Phone,
		c.Website,
		c.Rating,
		c.PriceLevel,
		c.UserRatingsTotal,
		c.OpenNow,
		c.BusinessStatus == models.BusinessStatusClosedPermanently,
	}
}

// UpsertProspects stores a batch of candidates as prospects, creating new rows
// and refreshing known ones by place id. The returned prospects follow the
// order of the input. The batch runs in a single transaction: on any failure
// nothing is written and the error wraps ErrPersistence.
func (d *DB) UpsertProspects(ctx context.Context, candidates []models.Candidate) ([]models.Prospect, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, persistenceError("begin prospect upsert", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range candidates {
		batch.Queue(upsertProspectQuery, upsertArgs(&candidates[i])...)
	}

	results := tx.SendBatch(ctx, batch)
	prospects := make([]models.Prospect, 0, len(candidates))
	for i := range candidates {
		p, err := scanProspect(results.QueryRow())
		if err != nil {
			results.Close()
			if errors.Is(err, ErrProspectNotFound) {
				return nil, persistenceError("upsert prospect "+candidates[i].PlaceID, err)
			}
			return nil, err
		}
		prospects = append(prospects, *p)
	}
	if err := results.Close(); err != nil {
		return nil, persistenceError("close prospect batch", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistenceError("commit prospect upsert", err)
	}
	return prospects, nil
}

// GetProspectByID retrieves a prospect by its ID.
func (d *DB) GetProspectByID(ctx context.Context, id uuid.UUID) (*models.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE id = $1`
	return scanProspect(d.Pool.QueryRow(ctx, query, id))
}

// GetProspectByPlaceID retrieves a prospect by its catalog place id.
func (d *DB) GetProspectByPlaceID(ctx context.Context, placeID string) (*models.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE place_id = $1`
	return scanProspect(d.Pool.QueryRow(ctx, query, placeID))
}

// ListProspects returns prospects, most recently seen first. A non-empty
// query matches name, address or business type.
func (d *DB) ListProspects(ctx context.Context, queryStr string, limit, offset int) ([]models.Prospect, error) {
	var rows pgx.Rows
	var err error
	if queryStr == "" {
		rows, err = d.Pool.Query(ctx, `
			SELECT `+prospectColumns+`
			FROM prospects
			ORDER BY updated_at DESC, name ASC
			LIMIT $1 OFFSET $2
		`, limit, offset)
	} else {
		pattern := "%" + queryStr + "%"
		rows, err = d.Pool.Query(ctx, `
			SELECT `+prospectColumns+`
			FROM prospects
			WHERE name ILIKE $1 OR address ILIKE $1 OR business_type ILIKE $1
			ORDER BY updated_at DESC, name ASC
			LIMIT $2 OFFSET $3
		`, pattern, limit, offset)
	}
	if err != nil {
		return nil, persistenceError("list prospects", err)
	}
	return scanProspects(rows)
}

// CountProspectsByPlaceID returns how many rows hold the given place id.
// The unique constraint keeps this at zero or one.
func (d *DB) CountProspectsByPlaceID(ctx context.Context, placeID string) (int, error) {
	var n int
	if err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM prospects WHERE place_id = $1`, placeID).Scan(&n); err != nil {
		return 0, persistenceError("count prospects", err)
	}
	return n, nil
}

// DeleteProspect removes a prospect and, by cascade, its campaign links.
func (d *DB) DeleteProspect(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM prospects WHERE id = $1`, id)
	if err != nil {
		return persistenceError("delete prospect", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProspectNotFound
	}
	return nil
}
