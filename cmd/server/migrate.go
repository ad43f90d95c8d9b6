package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"looklike/internal/config"
	"looklike/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		setupLogging(cfg)

		seed, _ := cmd.Flags().GetBool("seed")
		return runMigrations(cmd.Context(), cfg, seed)
	},
}

func init() {
	migrateCmd.Flags().Bool("seed", false, "insert sample reference clients after migrating")
}

func runMigrations(ctx context.Context, cfg *config.Config, seed bool) error {
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("migrations completed successfully")

	if seed {
		if err := database.SeedDevClients(ctx); err != nil {
			return err
		}
		slog.Info("sample reference clients seeded")
	}
	return nil
}
