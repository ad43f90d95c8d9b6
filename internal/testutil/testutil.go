// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"looklike/internal/db"
	"looklike/internal/models"
)

// TestDB creates a test database connection and returns a cleanup function.
// Uses TEST_DATABASE_URL and skips the test when it is not set. Integration
// packages share one database, so run them with -p 1.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanupTestData(ctx, database.Pool)

	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	// Delete in order to respect foreign keys
	pool.Exec(ctx, "DELETE FROM campaign_prospects")
	pool.Exec(ctx, "DELETE FROM search_history")
	pool.Exec(ctx, "DELETE FROM campaigns")
	pool.Exec(ctx, "DELETE FROM prospects")
	pool.Exec(ctx, "DELETE FROM reference_clients")
}

// CreateTestReferenceClient creates a reference client, optionally with a
// cached coordinate, and returns it.
func CreateTestReferenceClient(t *testing.T, database *db.DB, name, businessType string, coord *models.Coordinate) *models.ReferenceClient {
	t.Helper()

	rc := &models.ReferenceClient{
		Name:         name,
		Address:      "100 W Randolph St, Chicago, IL 60601",
		BusinessType: businessType,
	}
	if coord != nil {
		rc.SetCoordinate(*coord)
	}
	if err := database.CreateReferenceClient(context.Background(), rc); err != nil {
		t.Fatalf("failed to create test reference client: %v", err)
	}

	return rc
}

// CreateTestCampaign creates a campaign and returns it.
func CreateTestCampaign(t *testing.T, database *db.DB, name string) *models.Campaign {
	t.Helper()

	c := &models.Campaign{Name: name}
	if err := database.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("failed to create test campaign: %v", err)
	}

	return c
}

// CreateTestProspects upserts one prospect per place id and returns them in
// the same order.
func CreateTestProspects(t *testing.T, database *db.DB, placeIDs ...string) []models.Prospect {
	t.Helper()

	candidates := make([]models.Candidate, len(placeIDs))
	for i, id := range placeIDs {
		candidates[i] = models.Candidate{
			PlaceID:  id,
			Name:     "Test Business " + id,
			Address:  "1 N State St, Chicago, IL",
			Location: models.Coordinate{Lat: 41.8826, Lng: -87.6278},
			Types:    []string{"restaurant", "food", "establishment"},
		}
	}

	prospects, err := database.UpsertProspects(context.Background(), candidates)
	if err != nil {
		t.Fatalf("failed to create test prospects: %v", err)
	}

	return prospects
}
