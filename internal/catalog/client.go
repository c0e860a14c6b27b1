// Package catalog provides the Google Books client behind the
// book search, recommendation and new-release endpoints. All reads are
// best-effort: callers get an empty slice plus an error and decide how
// to degrade.
package catalog

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Google Books volumes endpoint.
const DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// Config tunes the catalog client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client talks to the Google Books volumes API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
}

// NewClient creates a rate-limited catalog client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 5),
		baseURL:     cfg.BaseURL,
		logger:      logger,
	}
}

// fetchVolumes performs one volumes query and returns the raw items.
func (c *Client) fetchVolumes(ctx context.Context, params url.Values) ([]volume, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	queryURL := c.baseURL + "?" + params.Encode()

	c.logger.Debug("querying catalog", "url", queryURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request failed: status %d", resp.StatusCode)
	}

	var volumesResp volumesResponse
	if err := json.UnmarshalRead(resp.Body, &volumesResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return volumesResp.Items, nil
}

// fixCoverURL upgrades a thumbnail URL: https, zoom=2 for a sharper
// image. Empty in, empty out.
func fixCoverURL(u string) string {
	if u == "" {
		return ""
	}
	u = strings.Replace(u, "http://", "https://", 1)
	u = strings.Replace(u, "&zoom=1", "&zoom=2", 1)
	if !strings.Contains(u, "zoom=") {
		u += "&zoom=2"
	}
	return u
}

// authorsOrUnknown keeps the wire contract: a volume with no authors
// lists "Unknown Author".
func authorsOrUnknown(authors []string) []string {
	if len(authors) == 0 {
		return []string{"Unknown Author"}
	}
	return authors
}
