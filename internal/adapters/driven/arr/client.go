package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driven"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// Ensure Client implements the interfaces.
var (
	_ driven.GateProbe     = (*Client)(nil)
	_ driven.IndexerLister = (*Client)(nil)
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4096

// Client talks to a live instance over its HTTP API.
type Client struct {
	mu         sync.RWMutex
	http       *http.Client
	baseURL    string
	apiKey     string
	limiter    *RateLimiter
	searchTerm string
}

// NewClient creates a new instance client.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst).WithMaxWait(cfg.Timeout),
		searchTerm: cfg.SearchTerm,
	}
}

// Initialize points the client at apiURL with apiKey.
func (c *Client) Initialize(_ context.Context, apiURL, apiKey string) error {
	base, err := normalizeBaseURL(apiURL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = base
	c.apiKey = apiKey
	return nil
}

// BaseURL returns the instance URL the client talks to.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// CheckStatus calls system/status.
func (c *Client) CheckStatus(ctx context.Context) error {
	_, err := c.SystemStatus(ctx)
	return err
}

// SystemStatus returns the raw system/status document.
func (c *Client) SystemStatus(ctx context.Context) (json.RawMessage, error) {
	var status json.RawMessage
	if err := c.getJSON(ctx, "system/status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// ListIndexers returns the indexers configured on the instance.
func (c *Client) ListIndexers(ctx context.Context) ([]domain.Indexer, error) {
	var resources []indexerResource
	if err := c.getJSON(ctx, "indexer", nil, &resources); err != nil {
		return nil, err
	}

	indexers := make([]domain.Indexer, 0, len(resources))
	for _, r := range resources {
		indexers = append(indexers, r.toDomain())
	}
	return indexers, nil
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	c.mu.RLock()
	base, key := c.baseURL, c.apiKey
	c.mu.RUnlock()

	if base == "" {
		return nil, fmt.Errorf("%w: instance URL not set", domain.ErrConfiguration)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := base + APIPrefix + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(HeaderAPIKey, key)
	}

	logger.Debug("%s %s", method, endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			c.limiter.RecordRateLimited(resp.Header.Get("Retry-After"))
		}
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: instance URL is empty", domain.ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: instance URL: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: instance URL must be http or https, got %q", domain.ErrInvalidInput, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: instance URL has no host: %q", domain.ErrInvalidInput, raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// FetchSystemStatus reads system/status from the instance at apiURL using a
// short-lived client built from cfg.
func FetchSystemStatus(ctx context.Context, cfg Config, apiURL, apiKey string) (json.RawMessage, error) {
	c := NewClient(cfg)
	if err := c.Initialize(ctx, apiURL, apiKey); err != nil {
		return nil, err
	}
	return c.SystemStatus(ctx)
}
