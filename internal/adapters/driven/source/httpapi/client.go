// Package httpapi implements the source client port over the generic
// HTTP connector protocol: a listing endpoint plus a per-item fetch
// endpoint, both JSON, authenticated with a bearer key.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driven"
	"github.com/answergrid/answergrid/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.SourceClient = (*Client)(nil)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond is the proactive throttle against source
	// systems.
	DefaultRequestsPerSecond = 5

	// maxRetryAfter caps how long a Retry-After header can make us wait.
	maxRetryAfter = 30 * time.Second
)

// Client talks to source systems over the HTTP connector protocol.
// One client serves every tenant's connectors; the config passed per
// call carries the endpoint and credentials.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithRequestsPerSecond adjusts the outbound throttle.
func WithRequestsPerSecond(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a source client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// listResponse is the wire shape of the listing endpoint.
type listResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Version string `json:"version"`
	} `json:"items"`
}

// itemResponse is the wire shape of the fetch endpoint.
type itemResponse struct {
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Version    string         `json:"version"`
	Properties map[string]any `json:"properties,omitempty"`
}

// FetchItem pulls the current content of one source item.
func (c *Client) FetchItem(ctx context.Context, cfg domain.ConnectorConfig, sourceNativeID string) (*domain.SourceContent, error) {
	if sourceNativeID == "" {
		return nil, fmt.Errorf("empty source native id: %w", domain.ErrInvalidInput)
	}

	endpoint, err := itemURL(cfg.Endpoint, sourceNativeID)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, endpoint, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	var item itemResponse
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", sourceNativeID, err)
	}

	return &domain.SourceContent{
		Title:      item.Title,
		Content:    item.Content,
		Version:    item.Version,
		Properties: item.Properties,
	}, nil
}

// ListItems enumerates all items the source currently has.
func (c *Client) ListItems(ctx context.Context, cfg domain.ConnectorConfig) ([]domain.SourceItem, error) {
	endpoint, err := listURL(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, endpoint, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	items := make([]domain.SourceItem, 0, len(list.Items))
	for _, item := range list.Items {
		if item.ID == "" {
			continue
		}
		items = append(items, domain.SourceItem{
			SourceNativeID: item.ID,
			Version:        item.Version,
		})
	}
	return items, nil
}

// get performs one throttled request and maps failures onto the source
// sentinels.
func (c *Client) get(ctx context.Context, endpoint, apiKey string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("source request failed: %v: %w", err, domain.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrSourceItemNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		c.honourRetryAfter(ctx, resp)
		return nil, fmt.Errorf("source throttled (status 429): %w", domain.ErrSourceUnavailable)
	default:
		return nil, fmt.Errorf("source returned status %d: %w", resp.StatusCode, domain.ErrSourceUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %v: %w", err, domain.ErrSourceUnavailable)
	}
	return body, nil
}

// honourRetryAfter sleeps out a Retry-After header, capped, so the next
// attempt is not an instant re-throttle.
func (c *Client) honourRetryAfter(ctx context.Context, resp *http.Response) {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return
	}

	wait := min(time.Duration(seconds)*time.Second, maxRetryAfter)
	logger.Debug("source client: honouring Retry-After of %v", wait)
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

func listURL(endpoint string) (string, error) {
	base, err := parseEndpoint(endpoint)
	if err != nil {
		return "", err
	}
	return base.JoinPath("items").String(), nil
}

func itemURL(endpoint, sourceNativeID string) (string, error) {
	base, err := parseEndpoint(endpoint)
	if err != nil {
		return "", err
	}
	return base.JoinPath("items", url.PathEscape(sourceNativeID)).String(), nil
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("connector endpoint is empty: %w", domain.ErrInvalidInput)
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse connector endpoint: %w", err)
	}
	return base, nil
}
