package collector

import (
	"context"
)

// RepoRef identifies a GitHub repository to fetch stats for.
type RepoRef struct {
	Owner string
	Name  string
}

// RepoStats is the fixed stat set fetched per repository.
type RepoStats struct {
	Stars int
	Forks int
	URL   string
}

// StatsCollector defines the interface for fetching GitHub repository stats.
type StatsCollector interface {
	// FetchRepoStats issues one aggregated remote request for all refs and
	// returns the results keyed by the index of the corresponding ref.
	// Repositories the remote knows nothing about (private, deleted) are
	// simply absent from the map; that is not an error.
	FetchRepoStats(ctx context.Context, refs []RepoRef) (map[int]*RepoStats, error)
}
