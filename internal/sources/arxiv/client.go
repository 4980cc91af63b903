// Package arxiv enriches papers from the arXiv Atom export API.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the arXiv export API base URL.
	BaseURL = "https://export.arxiv.org/api/query"

	// RateLimit honors arXiv's request that clients stay under 1
	// request every 3 seconds.
	RateLimit = 1.0 / 3.0
)

// Common errors returned by the arXiv client.
var (
	ErrNetworkError    = errors.New("network error communicating with arXiv")
	ErrInvalidResponse = errors.New("invalid response from arXiv")
)

// Entry is a single paper in an Atom feed.
type Entry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	DOI       string `xml:"doi"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

type feed struct {
	Entries []Entry `xml:"entry"`
}

// Client is a rate-limited HTTP client for the arXiv export API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the default request rate (for testing).
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// NewClient creates a new arXiv client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetByID fetches the entry for one arXiv ID. It returns nil when the
// feed comes back empty.
func (c *Client) GetByID(ctx context.Context, arxivID string) (*Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + "?id_list=" + url.QueryEscape(arxivID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrNetworkError, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(f.Entries) == 0 {
		return nil, nil
	}
	// The API signals an unknown ID with an error entry whose id has
	// no abs/ path component.
	e := f.Entries[0]
	if !strings.Contains(e.ID, "/abs/") {
		return nil, nil
	}
	return &e, nil
}
