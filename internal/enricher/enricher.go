// Package enricher fills missing GitHub stats on package records by batching
// eligible packages into bounded composite remote queries and writing the
// results back through the store.
package enricher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkgscout/pkgscout/internal/collector"
	"github.com/pkgscout/pkgscout/internal/domain"
	"github.com/pkgscout/pkgscout/internal/storage"
)

// maxBatchSize bounds one composite query so the remote API never sees an
// oversized request.
const maxBatchSize = 600

// Enricher batches GitHub stat fetches for packages that still need them.
type Enricher struct {
	store     storage.Storage
	collector collector.StatsCollector
	logger    *slog.Logger

	// mu serializes Enrich calls so two concurrent searches over overlapping
	// packages do not both fetch the same repositories.
	mu  sync.Mutex
	now func() time.Time
}

// New creates a new Enricher
func New(store storage.Storage, coll collector.StatsCollector, logger *slog.Logger) *Enricher {
	return &Enricher{
		store:     store,
		collector: coll,
		logger:    logger,
		now:       time.Now,
	}
}

// Enrich fetches GitHub stats for every eligible candidate and persists them
// batch by batch. It reports whether any batch was committed; a failed batch
// aborts the remaining ones while earlier batches stay committed.
func (e *Enricher) Enrich(ctx context.Context, candidates []*domain.Package) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var eligible []*domain.Package
	for _, p := range candidates {
		if p.EligibleForEnrichment() {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return false, nil
	}

	fetched := false
	for start := 0; start < len(eligible); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(eligible) {
			end = len(eligible)
		}
		if err := e.enrichBatch(ctx, eligible[start:end]); err != nil {
			return fetched, err
		}
		fetched = true
	}

	return fetched, nil
}

// enrichBatch runs one aggregated fetch and persists the outcome for every
// package in the batch. Packages the remote returned nothing for are stamped
// with zero stats so they are not retried on every query.
func (e *Enricher) enrichBatch(ctx context.Context, batch []*domain.Package) error {
	refs := make([]collector.RepoRef, len(batch))
	for i, p := range batch {
		refs[i] = collector.RepoRef{Owner: p.GithubOwner, Name: p.GithubName}
	}

	results, err := e.collector.FetchRepoStats(ctx, refs)
	if err != nil {
		return err
	}

	fetchedAt := e.now().Unix()
	stats := make(map[string]domain.GithubStats, len(batch))
	for i, p := range batch {
		st := domain.GithubStats{FetchedAt: fetchedAt}
		if r, ok := results[i]; ok {
			st.Stars = r.Stars
			st.Forks = r.Forks
			st.URL = r.URL
		}
		stats[p.Name] = st
	}

	if err := e.store.ApplyGithubStats(ctx, stats); err != nil {
		return err
	}

	e.logger.Info("enriched batch", "packages", len(batch), "hits", len(results))
	return nil
}
