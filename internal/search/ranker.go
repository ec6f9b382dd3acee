// Package search turns raw store matches into ranked, limited result sets,
// triggering GitHub enrichment for matches that still lack stats.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pkgscout/pkgscout/internal/domain"
	"github.com/pkgscout/pkgscout/internal/storage"
)

// ErrEmptyQuery is returned when the query is blank after trimming.
var ErrEmptyQuery = errors.New("empty search query")

// Enricher fetches and persists missing GitHub stats for the given packages,
// reporting whether anything was fetched.
type Enricher interface {
	Enrich(ctx context.Context, candidates []*domain.Package) (bool, error)
}

// Ranker executes searches against the store and orders the results.
type Ranker struct {
	store        storage.Storage
	enricher     Enricher
	defaultLimit int
	logger       *slog.Logger
}

// NewRanker creates a new Ranker
func NewRanker(store storage.Storage, enricher Enricher, defaultLimit int, logger *slog.Logger) *Ranker {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Ranker{
		store:        store,
		enricher:     enricher,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Search matches query case-insensitively against package names and
// summaries, enriches matches that are missing GitHub stats, and returns the
// top limit packages ordered by the requested field descending.
//
// Enrichment failures degrade rather than fail the search: whatever stats
// were committed before the failure are reflected, the rest stay at zero.
func (r *Ranker) Search(ctx context.Context, query string, limit int, order string) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > domain.MaxSearchResults {
		limit = domain.MaxSearchResults
	}
	orderField := domain.ParseOrderField(order)
	queryLower := strings.ToLower(query)

	pkgs, total, err := r.store.Search(ctx, queryLower)
	if err != nil {
		return nil, err
	}

	fetched, err := r.enricher.Enrich(ctx, pkgs)
	if err != nil {
		r.logger.Warn("enrichment incomplete", "query", query, "error", err)
	}
	if fetched {
		// Re-read so freshly persisted stats participate in the ordering.
		pkgs, total, err = r.store.Search(ctx, queryLower)
		if err != nil {
			return nil, err
		}
	}

	domain.SortPackages(pkgs, orderField)
	if len(pkgs) > limit {
		pkgs = pkgs[:limit]
	}

	return &domain.SearchResult{
		Packages: pkgs,
		Shown:    len(pkgs),
		Total:    total,
		Query:    query,
		Limit:    limit,
		Order:    orderField,
	}, nil
}
