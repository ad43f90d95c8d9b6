package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"looklike/internal/models"
)

const referenceClientColumns = `id, name, address, business_type, latitude, longitude, notes, created_at, updated_at`

func scanReferenceClient(row pgx.Row) (*models.ReferenceClient, error) {
	var rc models.ReferenceClient
	err := row.Scan(
		&rc.ID,
		&rc.Name,
		&rc.Address,
		&rc.BusinessType,
		&rc.Latitude,
		&rc.Longitude,
		&rc.Notes,
		&rc.CreatedAt,
		&rc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReferenceClientNotFound
	}
	if err != nil {
		return nil, persistenceError("scan reference client", err)
	}
	return &rc, nil
}

// CreateReferenceClient inserts a reference client and fills in its generated fields.
func (d *DB) CreateReferenceClient(ctx context.Context, rc *models.ReferenceClient) error {
	query := `
		INSERT INTO reference_clients (name, address, business_type, latitude, longitude, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := d.Pool.QueryRow(ctx, query,
		rc.Name,
		rc.Address,
		rc.BusinessType,
		rc.Latitude,
		rc.Longitude,
		rc.Notes,
	).Scan(&rc.ID, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		return persistenceError("create reference client", err)
	}
	return nil
}

// GetReferenceClient retrieves a reference client by ID.
func (d *DB) GetReferenceClient(ctx context.Context, id uuid.UUID) (*models.ReferenceClient, error) {
	query := `SELECT ` + referenceClientColumns + ` FROM reference_clients WHERE id = $1`
	return scanReferenceClient(d.Pool.QueryRow(ctx, query, id))
}

// ListReferenceClients returns reference clients ordered by name.
func (d *DB) ListReferenceClients(ctx context.Context, limit, offset int) ([]models.ReferenceClient, error) {
	query := `
		SELECT ` + referenceClientColumns + `
		FROM reference_clients
		ORDER BY name ASC, created_at ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := d.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, persistenceError("list reference clients", err)
	}
	return scanReferenceClients(rows)
}

// ListUngeocodedReferenceClients returns clients that have no cached
// coordinate yet. Clients never attempted come first, oldest first, then
// those whose last failed attempt is oldest.
func (d *DB) ListUngeocodedReferenceClients(ctx context.Context, limit int) ([]models.ReferenceClient, error) {
	query := `
		SELECT ` + referenceClientColumns + `
		FROM reference_clients
		WHERE latitude IS NULL
		ORDER BY geocode_attempted_at ASC NULLS FIRST, created_at ASC
		LIMIT $1
	`
	rows, err := d.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, persistenceError("list ungeocoded reference clients", err)
	}
	return scanReferenceClients(rows)
}

// MarkGeocodeAttempted records a failed geocode attempt so the client moves
// behind the ones not yet tried.
func (d *DB) MarkGeocodeAttempted(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `UPDATE reference_clients SET geocode_attempted_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return persistenceError("mark geocode attempt", err)
	}
	if result.RowsAffected() == 0 {
		return ErrReferenceClientNotFound
	}
	return nil
}

func scanReferenceClients(rows pgx.Rows) ([]models.ReferenceClient, error) {
	defer rows.Close()

	var clients []models.ReferenceClient
	for rows.Next() {
		rc, err := scanReferenceClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *rc)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("scan reference clients", err)
	}
	return clients, nil
}

// UpdateReferenceClient saves the editable fields of a reference client.
func (d *DB) UpdateReferenceClient(ctx context.Context, rc *models.ReferenceClient) error {
	query := `
		UPDATE reference_clients
		SET name = $2, address = $3, business_type = $4, latitude = $5, longitude = $6, notes = $7,
			geocode_attempted_at = CASE WHEN address = $3 THEN geocode_attempted_at END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := d.Pool.QueryRow(ctx, query,
		rc.ID,
		rc.Name,
		rc.Address,
		rc.BusinessType,
		rc.Latitude,
		rc.Longitude,
		rc.Notes,
	).Scan(&rc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrReferenceClientNotFound
	}
	if err != nil {
		return persistenceError("update reference client", err)
	}
	return nil
}

// SetReferenceClientCoordinate caches a geocoded coordinate on a reference client.
func (d *DB) SetReferenceClientCoordinate(ctx context.Context, id uuid.UUID, c models.Coordinate) error {
	result, err := d.Pool.Exec(ctx, `
		UPDATE reference_clients
		SET latitude = $2, longitude = $3, updated_at = NOW()
		WHERE id = $1
	`, id, c.Lat, c.Lng)
	if err != nil {
		return persistenceError("set reference client coordinate", err)
	}
	if result.RowsAffected() == 0 {
		return ErrReferenceClientNotFound
	}
	return nil
}

// DeleteReferenceClient removes a reference client. Search history and
// campaign links keep their rows with the reference nulled out.
func (d *DB) DeleteReferenceClient(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM reference_clients WHERE id = $1`, id)
	if err != nil {
		return persistenceError("delete reference client", err)
	}
	if result.RowsAffected() == 0 {
		return ErrReferenceClientNotFound
	}
	return nil
}
