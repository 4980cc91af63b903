// Package openalex queries the OpenAlex works index, the pipeline's
// primary metadata source.
package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the OpenAlex API base URL.
	BaseURL = "https://api.openalex.org"

	// RateLimit is 10 requests per second per OpenAlex documentation.
	RateLimit = 10.0
)

// Location is one place OpenAlex says a work can be found.
type Location struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
	Source         *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

// Work is the slice of an OpenAlex work the pipeline consumes.
type Work struct {
	ID              string            `json:"id"`
	DOI             string            `json:"doi"`
	Title           string            `json:"title"`
	DisplayName     string            `json:"display_name"`
	PublicationYear int               `json:"publication_year"`
	IDs             map[string]string `json:"ids"`
	PrimaryLocation *Location         `json:"primary_location"`
	Locations       []Location        `json:"locations"`
	Authorships     []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

// Client is a rate-limited HTTP client for the OpenAlex API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
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

// WithMailto sets the polite-pool contact address.
func WithMailto(email string) ClientOption {
	return func(c *Client) { c.mailto = email }
}

// NewClient creates a new OpenAlex client. OPENALEX_MAILTO in the
// environment opts into the polite pool unless overridden.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		mailto:     os.Getenv("OPENALEX_MAILTO"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetByDOI fetches a single work by DOI.
func (c *Client) GetByDOI(ctx context.Context, doi string) (*Work, error) {
	var work Work
	path := "/works/https://doi.org/" + url.PathEscape(doi)
	if err := c.get(ctx, path, nil, &work); err != nil {
		return nil, err
	}
	if work.ID == "" {
		return nil, ErrNotFound
	}
	return &work, nil
}

// SearchByTitle returns the best-matching work for a title, or ErrNotFound.
func (c *Client) SearchByTitle(ctx context.Context, title string) (*Work, error) {
	params := url.Values{}
	params.Set("filter", "title.search:"+sanitizeFilter(title))
	params.Set("per-page", "1")

	var resp struct {
		Results []Work `json:"results"`
	}
	if err := c.get(ctx, "/works", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Results[0], nil
}

// get performs a rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}

	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrNetworkError, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{StatusCode: resp.StatusCode, Message: "request rejected"}
	}
	return nil
}

// sanitizeFilter strips characters OpenAlex filter syntax reserves.
func sanitizeFilter(s string) string {
	return strings.NewReplacer(",", " ", ":", " ", "|", " ").Replace(s)
}

func userAgent() string {
	return "consolidate/1.0 (bibliographic consolidation pipeline)"
}
