package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// MaxSearchResults is the hard cap on how many packages a single search may
// touch, regardless of the limit a caller asks for.
const MaxSearchResults = 2000

// Package represents a PyPI package with its registry metadata, download
// count and cached GitHub statistics. Name is the immutable primary key.
type Package struct {
	Name           string    `json:"name"`
	NameNormalized string    `json:"-"`
	NameLower      string    `json:"-"`
	Version        string    `json:"version"`
	UploadTime     time.Time `json:"latest_upload"`
	HomePage       string    `json:"home_page,omitempty"`
	Summary        string    `json:"summary"`
	SummaryLower   string    `json:"-"`

	Downloads int64 `json:"downloads"`
	Stars     int   `json:"stars"`
	Forks     int   `json:"forks"`

	// GithubOwner and GithubName are resolved once, at load time, from the
	// package's static URL fields. Both empty means the package can never
	// acquire GitHub stats.
	GithubOwner string `json:"-"`
	GithubName  string `json:"-"`
	GithubURL   string `json:"github,omitempty"`

	// GithubFetchedAt is the unix timestamp of the last completed GitHub
	// fetch. Zero means never fetched.
	GithubFetchedAt int64 `json:"-"`
}

// GithubStats holds the result of one GitHub fetch for a single package.
type GithubStats struct {
	Stars     int    `json:"stargazerCount"`
	Forks     int    `json:"forkCount"`
	URL       string `json:"url"`
	FetchedAt int64  `json:"timestamp"`
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName lowercases a package name and folds runs of separator
// characters into a single hyphen, for loose cross-dataset matching.
func NormalizeName(name string) string {
	return strings.ToLower(nameSeparators.ReplaceAllString(name, "-"))
}

// SetDerivedFields fills the lowercased and normalized variants used for
// matching. Call after Name and Summary are set.
func (p *Package) SetDerivedFields() {
	p.NameNormalized = NormalizeName(p.Name)
	p.NameLower = strings.ToLower(p.Name)
	p.SummaryLower = strings.ToLower(p.Summary)
}

// EligibleForEnrichment reports whether the package should be included in an
// outbound GitHub stats fetch: identity resolved, no completed fetch yet.
func (p *Package) EligibleForEnrichment() bool {
	return p.GithubURL == "" &&
		p.GithubFetchedAt == 0 &&
		p.GithubOwner != "" &&
		p.GithubName != ""
}

// CarryForwardStats copies previously fetched GitHub stats from prior onto
// incoming. Stats are carried only when prior holds a completed fetch and the
// freshly resolved repository identity matches the one the stats were fetched
// for; a package that moved to a different repository starts over.
func CarryForwardStats(incoming, prior *Package) {
	if prior == nil || prior.GithubFetchedAt == 0 {
		return
	}
	if incoming.GithubOwner != prior.GithubOwner || incoming.GithubName != prior.GithubName {
		return
	}
	incoming.Stars = prior.Stars
	incoming.Forks = prior.Forks
	incoming.GithubURL = prior.GithubURL
	incoming.GithubFetchedAt = prior.GithubFetchedAt
}

// OrderField selects the metric search results are sorted by.
type OrderField string

const (
	OrderDownloads    OrderField = "downloads"
	OrderStars        OrderField = "stars"
	OrderForks        OrderField = "forks"
	OrderLatestUpload OrderField = "latest_upload"
)

// ParseOrderField coerces a request parameter to a known order field,
// falling back to downloads for anything unrecognized.
func ParseOrderField(s string) OrderField {
	switch OrderField(s) {
	case OrderDownloads, OrderStars, OrderForks, OrderLatestUpload:
		return OrderField(s)
	default:
		return OrderDownloads
	}
}

// SortPackages sorts pkgs in place, descending by the given field. The sort
// is stable: ties keep their prior relative order.
func SortPackages(pkgs []*Package, order OrderField) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		switch order {
		case OrderStars:
			return pkgs[i].Stars > pkgs[j].Stars
		case OrderForks:
			return pkgs[i].Forks > pkgs[j].Forks
		case OrderLatestUpload:
			return pkgs[i].UploadTime.After(pkgs[j].UploadTime)
		default:
			return pkgs[i].Downloads > pkgs[j].Downloads
		}
	})
}
