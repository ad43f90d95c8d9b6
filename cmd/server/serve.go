package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/storage/redis/v3"
	"github.com/spf13/cobra"

	"looklike/internal/campaigns"
	"looklike/internal/config"
	"looklike/internal/db"
	"looklike/internal/geo"
	"looklike/internal/jobs"
	"looklike/internal/metrics"
	"looklike/internal/places"
	"looklike/internal/search"
	"looklike/internal/server"
	"looklike/internal/validation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(ctx context.Context) error {
	cfg := config.Load()
	setupLogging(cfg)

	if cfg.GoogleAPIKey == "" {
		return errors.New("GOOGLE_API_KEY is required")
	}
	if cfg.PlacesBaseURL != "" {
		if ok, msg := validation.ValidateURL(cfg.PlacesBaseURL); !ok {
			return fmt.Errorf("PLACES_BASE_URL: %s", msg)
		}
	}
	if cfg.APIToken == "" {
		slog.Warn("API_TOKEN is not set; the API accepts unauthenticated requests")
	}

	yamlCfg, err := config.LoadYAMLConfig(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading %s: %w", cfg.ConfigFile, err)
	}

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("migrations completed successfully")

	if cfg.IsDev() {
		if err := database.SeedDevClients(ctx); err != nil {
			slog.Warn("failed to seed development data", "error", err)
		}
	}

	metrics.Init(database)

	// Geocode cache: redis when configured, otherwise in-process
	var cache geo.Cache
	if cfg.RedisURL != "" {
		store := redis.New(redis.Config{URL: cfg.RedisURL})
		defer store.Close()
		cache = store
		slog.Info("geocode cache backed by redis")
	}

	s := yamlCfg.Search
	client := places.NewClient(places.Config{
		APIKey:         cfg.GoogleAPIKey,
		BaseURL:        cfg.PlacesBaseURL,
		RequestTimeout: s.RequestTimeout,
		MaxRetries:     s.MaxRetries,
		InitialBackoff: s.InitialBackoff,
	})
	resolver := geo.NewResolver(client, cache, database, s.GeocodeCacheTTL)
	engine := search.NewEngine(client, search.Config{
		MinRadiusMeters:   s.MinRadiusMeters,
		MaxRadiusMeters:   s.MaxRadiusMeters,
		MaxPages:          s.MaxPages,
		PageTokenDelay:    s.PageTokenDelay,
		IncludeTextSearch: s.IncludeTextSearch,
		TermConcurrency:   s.TermConcurrency,
	})
	searchService := search.NewService(database, resolver, engine, yamlCfg.Industries)
	tracker := campaigns.NewTracker(database)

	srv := server.New(cfg)
	srv.RegisterRoutes(server.Dependencies{
		DB:      database,
		Search:  searchService,
		Tracker: tracker,
	})

	if interval := yamlCfg.Jobs.GeocodeBackfillInterval; interval > 0 {
		go jobs.NewGeocodeBackfill(database, resolver, interval).Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server exited")
	return nil
}
