package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/pkgscout/pkgscout/internal/errors"
)

const defaultGraphQLURL = "https://api.github.com/graphql"

// requestTimeout bounds one composite GraphQL request
const requestTimeout = 30 * time.Second

// githubCollector implements StatsCollector against the GitHub GraphQL API
type githubCollector struct {
	endpoint    string
	httpClient  *http.Client
	rateLimiter RateLimiter
	logger      *slog.Logger
}

// NewGitHubCollector creates a new GitHub stats collector. The token is
// carried as a bearer credential on every request; an empty token leaves the
// endpoint to reject the call with an authentication error.
func NewGitHubCollector(token, endpoint string, logger *slog.Logger) StatsCollector {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = requestTimeout

	if endpoint == "" {
		endpoint = defaultGraphQLURL
	}

	return &githubCollector{
		endpoint:    endpoint,
		httpClient:  tc,
		rateLimiter: NewRateLimiter(logger),
		logger:      logger,
	}
}

// FetchRepoStats issues one composite GraphQL query aliasing every ref as
// r0, r1, ... and maps the response back by ref index.
func (c *githubCollector) FetchRepoStats(ctx context.Context, refs []RepoRef) (map[int]*RepoStats, error) {
	results := make(map[int]*RepoStats)
	if len(refs) == 0 {
		return results, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("github call", "repos", len(refs))

	body, err := json.Marshal(map[string]string{"query": buildStatsQuery(refs)})
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("github graphql request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.NewUnauthorizedError("github rejected the token")
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("github returned status %d: %s", resp.StatusCode, string(msg)), nil)
	}

	var payload struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewUpstreamError("failed to decode github response", err)
	}
	if payload.Data == nil {
		return nil, apperrors.NewUpstreamError("github response missing data envelope", nil)
	}

	c.updateRateLimitFromResponse(payload.Data)

	for i := range refs {
		raw, ok := payload.Data[aliasKey(i)]
		if !ok || string(raw) == "null" {
			continue
		}

		var entry struct {
			ForkCount      int    `json:"forkCount"`
			StargazerCount int    `json:"stargazerCount"`
			URL            string `json:"url"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		results[i] = &RepoStats{
			Stars: entry.StargazerCount,
			Forks: entry.ForkCount,
			URL:   entry.URL,
		}
	}

	return results, nil
}

// buildStatsQuery assembles the composite query, one aliased repository
// block per ref plus the rateLimit block feeding the rate limiter.
func buildStatsQuery(refs []RepoRef) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, ref := range refs {
		fmt.Fprintf(&b, "%s: repository(owner: %q, name: %q) { forkCount stargazerCount url }\n",
			aliasKey(i), ref.Owner, ref.Name)
	}
	b.WriteString("rateLimit { remaining resetAt }\n}")
	return b.String()
}

func aliasKey(i int) string {
	return fmt.Sprintf("r%d", i)
}

// updateRateLimitFromResponse updates the rate limiter from the rateLimit
// block of a GraphQL response
func (c *githubCollector) updateRateLimitFromResponse(data map[string]json.RawMessage) {
	raw, ok := data["rateLimit"]
	if !ok || string(raw) == "null" {
		return
	}

	var rl struct {
		Remaining int       `json:"remaining"`
		ResetAt   time.Time `json:"resetAt"`
	}
	if err := json.Unmarshal(raw, &rl); err != nil {
		return
	}
	c.rateLimiter.UpdateLimit(rl.Remaining, rl.ResetAt)
}
