// Package s2 enriches papers from the Semantic Scholar Academic Graph,
// the pipeline's citation-graph source.
package s2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Semantic Scholar Academic Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// BatchFields are the fields requested for batch paper lookups.
	BatchFields = "title,year,venue,authors,externalIds"

	// RateLimit is 1 request per second for unauthenticated clients.
	RateLimit = 1.0
)

// Common errors returned by the S2 client.
var (
	ErrAuthError       = errors.New("S2 authentication error")
	ErrRateLimited     = errors.New("S2 rate limit exceeded")
	ErrNetworkError    = errors.New("network error communicating with S2")
	ErrInvalidResponse = errors.New("invalid response from S2")
)

// S2Paper is one paper as returned by the batch endpoint.
type S2Paper struct {
	PaperID     string `json:"paperId"`
	Title       string `json:"title"`
	Year        int    `json:"year"`
	Venue       string `json:"venue"`
	ExternalIDs struct {
		DOI    string `json:"DOI"`
		ArXiv  string `json:"ArXiv"`
		PubMed string `json:"PubMed"`
	} `json:"externalIds"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

// Client is a rate-limited HTTP client for the S2 Academic Graph API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new S2 client, reading S2_API_KEY from the
// environment when present.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}
	if key := os.Getenv("S2_API_KEY"); key != "" {
		c.apiKey = key
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBatch fetches up to 500 papers in one request. The response slice is
// aligned with ids; entries the graph does not know are nil.
func (c *Client) GetBatch(ctx context.Context, ids []string) ([]*S2Paper, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	reqURL := c.baseURL + "/paper/batch?fields=" + BatchFields
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var papers []*S2Paper
	if err := json.NewDecoder(resp.Body).Decode(&papers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(papers) != len(ids) {
		return nil, fmt.Errorf("%w: %d papers for %d ids", ErrInvalidResponse, len(papers), len(ids))
	}
	return papers, nil
}
