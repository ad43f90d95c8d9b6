package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"looklike/migrations"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// RunMigrations runs all embedded SQL migrations.
func (d *DB) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.Pool.Close()
}

// SeedDevClients inserts sample reference clients for development. Skips
// clients whose name already exists.
func (d *DB) SeedDevClients(ctx context.Context) error {
	clients := []struct {
		name         string
		address      string
		businessType string
		lat, lng     float64
	}{
		{"Lou Malnati's River North", "439 N Wells St, Chicago, IL 60654", "restaurant", 41.8904, -87.6339},
		{"Intelligentsia Coffee Millennium Park", "53 E Randolph St, Chicago, IL 60601", "cafe", 41.8846, -87.6256},
		{"Athletico Physical Therapy Loop", "11 E Adams St, Chicago, IL 60603", "physiotherapist", 41.8794, -87.6269},
	}

	query := `
		INSERT INTO reference_clients (name, address, business_type, latitude, longitude)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (SELECT 1 FROM reference_clients WHERE name = $1)
	`

	for _, c := range clients {
		if _, err := d.Pool.Exec(ctx, query, c.name, c.address, c.businessType, c.lat, c.lng); err != nil {
			return fmt.Errorf("failed to seed reference client %s: %w", c.name, err)
		}
	}

	return nil
}
