// Package source holds the HTTP clients for the three catalog services and
// the normalisation of their responses into book.Entry values.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"booknest/internal/domain/book"
)

// DefaultTimeout bounds every catalog request.
const DefaultTimeout = 15 * time.Second

// Searcher is a catalog service that can be searched by free text.
type Searcher interface {
	Name() book.Source
	Search(ctx context.Context, query string, limit int) ([]book.Entry, error)
}

// Option configures a catalog client.
type Option func(*client)

// WithBaseURL overrides the service base URL. Used in tests to point at a
// local server.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent sets the identifying User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *client) { c.userAgent = ua }
}

// client is the HTTP plumbing shared by the three services.
type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func newClient(baseURL string, opts []Option) client {
	c := client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// getJSON fetches url and decodes the body into target.
func (c *client) getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func headN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
