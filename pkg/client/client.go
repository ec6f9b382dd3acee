package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkgscout/pkgscout/internal/domain"
)

// Client is the API client for pkgscout
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SearchPackages runs a package search. Zero limit and empty order fall back
// to the server defaults.
func (c *Client) SearchPackages(query string, limit int, order string) (*domain.SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if order != "" {
		params.Set("order", order)
	}

	var response struct {
		Data *domain.SearchResult `json:"data"`
	}
	if err := c.get("/search", params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetPackage retrieves a single package by exact name
func (c *Client) GetPackage(name string) (*domain.Package, error) {
	var response struct {
		Data *domain.Package `json:"data"`
	}
	if err := c.get("/api/v1/packages/"+url.PathEscape(name), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetStats retrieves store-level counts
func (c *Client) GetStats() (int, error) {
	var response struct {
		Data struct {
			Packages int `json:"packages"`
		} `json:"data"`
	}
	if err := c.get("/api/v1/stats", nil, &response); err != nil {
		return 0, err
	}
	return response.Data.Packages, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) get(path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	resp, err := c.httpClient.Get(u.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
