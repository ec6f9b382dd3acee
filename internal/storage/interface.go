package storage

import (
	"context"

	"github.com/pkgscout/pkgscout/internal/domain"
)

// Storage is the abstract interface for the package persistence layer.
// All mutations are durable before the call returns.
type Storage interface {
	// ReplaceAll replaces the entire dataset in one transaction. Previously
	// fetched GitHub stats are carried forward onto incoming records whose
	// freshly resolved repository identity matches the stored one.
	ReplaceAll(ctx context.Context, pkgs []*domain.Package) error

	// ApplyDownloads bulk-overwrites download counts, keyed by normalized
	// name. Names with no matching record are ignored.
	ApplyDownloads(ctx context.Context, counts map[string]int64) error

	// ApplyGithubStats bulk-overwrites GitHub fields, keyed by exact name.
	// Names with no matching record are ignored.
	ApplyGithubStats(ctx context.Context, stats map[string]domain.GithubStats) error

	// Search returns packages whose lowercased name or summary contains
	// queryLower as a substring, up to domain.MaxSearchResults rows in
	// deterministic (name ascending) order, plus the total match count
	// before truncation.
	Search(ctx context.Context, queryLower string) ([]*domain.Package, int, error)

	// GetPackage returns a single package by exact name.
	GetPackage(ctx context.Context, name string) (*domain.Package, error)

	// CountPackages returns the number of stored packages.
	CountPackages(ctx context.Context) (int, error)

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
