package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgscout/pkgscout/internal/domain"
	apperrors "github.com/pkgscout/pkgscout/internal/errors"
	"github.com/pkgscout/pkgscout/internal/search"
	"github.com/pkgscout/pkgscout/pkg/client"
)

// memStore is an in-memory Storage for handler tests.
type memStore struct {
	pkgs []*domain.Package
}

func (m *memStore) Search(ctx context.Context, queryLower string) ([]*domain.Package, int, error) {
	var matched []*domain.Package
	for _, p := range m.pkgs {
		if strings.Contains(p.NameLower, queryLower) || strings.Contains(p.SummaryLower, queryLower) {
			matched = append(matched, p)
		}
	}
	return matched, len(matched), nil
}

func (m *memStore) GetPackage(ctx context.Context, name string) (*domain.Package, error) {
	for _, p := range m.pkgs {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, apperrors.NewNotFoundError("package")
}

func (m *memStore) CountPackages(ctx context.Context) (int, error) { return len(m.pkgs), nil }

func (m *memStore) ReplaceAll(context.Context, []*domain.Package) error { return nil }
func (m *memStore) ApplyDownloads(context.Context, map[string]int64) error { return nil }
func (m *memStore) ApplyGithubStats(context.Context, map[string]domain.GithubStats) error {
	return nil
}
func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

type noopEnricher struct{}

func (noopEnricher) Enrich(context.Context, []*domain.Package) (bool, error) { return false, nil }

func newTestServer(t *testing.T, pkgs []*domain.Package) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memStore{pkgs: pkgs}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ranker := search.NewRanker(store, noopEnricher{}, 50, logger)
	handler := NewHandler(ranker, store)

	srv := httptest.NewServer(SetupRoutes(handler))
	t.Cleanup(srv.Close)
	return srv
}

func seedPackages() []*domain.Package {
	mk := func(name string, downloads int64, stars int) *domain.Package {
		p := &domain.Package{
			Name:      name,
			Version:   "1.0.0",
			Summary:   name + " does things",
			Downloads: downloads,
			Stars:     stars,
		}
		p.SetDerivedFields()
		return p
	}
	return []*domain.Package{
		mk("httpx", 500, 3),
		mk("httpcore", 100, 9),
		mk("numpy", 9000, 1),
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t, seedPackages())

	resp, err := http.Get(srv.URL + "/search?query=http&order=stars")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data domain.SearchResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, 2, body.Data.Total)
	require.Len(t, body.Data.Packages, 2)
	assert.Equal(t, "httpcore", body.Data.Packages[0].Name)
	assert.Equal(t, "httpx", body.Data.Packages[1].Name)
}

func TestSearchBlankQueryRedirects(t *testing.T) {
	srv := newTestServer(t, seedPackages())

	noRedirect := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	for _, target := range []string{"/search", "/search?query=", "/search?query=%20%20"} {
		resp, err := noRedirect.Get(srv.URL + target)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode, "target %s", target)
		assert.Equal(t, "/", resp.Header.Get("Location"))
	}
}

func TestGetPackageEndpoint(t *testing.T) {
	srv := newTestServer(t, seedPackages())

	resp, err := http.Get(srv.URL + "/api/v1/packages/numpy")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data domain.Package `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "numpy", body.Data.Name)
	assert.Equal(t, int64(9000), body.Data.Downloads)
}

func TestGetPackageNotFound(t *testing.T) {
	srv := newTestServer(t, seedPackages())

	resp, err := http.Get(srv.URL + "/api/v1/packages/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("generated when absent", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("echoed when provided", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "fixed-id")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "fixed-id", resp.Header.Get("X-Request-ID"))
	})
}

func TestClientAgainstServer(t *testing.T) {
	srv := newTestServer(t, seedPackages())
	c := client.NewClient(srv.URL)

	require.NoError(t, c.HealthCheck())

	result, err := c.SearchPackages("http", 1, "downloads")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Packages, 1)
	assert.Equal(t, "httpx", result.Packages[0].Name)

	pkg, err := c.GetPackage("numpy")
	require.NoError(t, err)
	assert.Equal(t, "numpy", pkg.Name)

	count, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = c.GetPackage("nope")
	require.Error(t, err)
}
