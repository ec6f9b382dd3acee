package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/pkgscout/pkgscout/internal/api"
	"github.com/pkgscout/pkgscout/internal/collector"
	"github.com/pkgscout/pkgscout/internal/config"
	"github.com/pkgscout/pkgscout/internal/enricher"
	"github.com/pkgscout/pkgscout/internal/search"
	"github.com/pkgscout/pkgscout/internal/storage"
	"github.com/pkgscout/pkgscout/internal/storage/postgres"
	"github.com/pkgscout/pkgscout/internal/storage/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL storage: %v", err)
		}
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite storage: %v", err)
		}
	}
	defer store.Close()

	// Wire search pipeline
	coll := collector.NewGitHubCollector(cfg.GitHubToken, cfg.GitHubGraphQLURL, logger)
	enr := enricher.New(store, coll, logger)
	ranker := search.NewRanker(store, enr, cfg.SearchDefaultLimit, logger)

	// Initialize handler
	handler := api.NewHandler(ranker, store)

	// Setup routes
	router := api.SetupRoutes(handler)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	logger.Info("starting API server", "addr", addr, "storage", cfg.StorageType)

	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}
