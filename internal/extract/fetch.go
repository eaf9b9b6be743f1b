// Package extract turns a page URL into clean text: a fetcher retrieves the
// markup and an ordered chain of extraction strategies distills it.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Fetcher retrieves the raw markup of a single page. Implementations must
// honor context cancellation and deadlines.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
	Name() string
}

// maxBodySize caps how much of a response body is read.
const maxBodySize = 5 * 1024 * 1024

// HTTPFetcher performs a plain HTTP GET with a user agent and body cap.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher. Per-page deadlines come from the caller's
// context, so the underlying client carries no timeout of its own.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{},
		userAgent: userAgent,
	}
}

// Name identifies the fetcher in extraction results.
func (f *HTTPFetcher) Name() string { return "http" }

// Fetch retrieves the page body. Non-2xx responses and non-HTML content
// types are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return "", fmt.Errorf("non-HTML content type %q for %s", contentType, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// SetTimeout is a convenience for callers that cannot pass per-request
// contexts (the discovery probes); the pipeline itself uses context deadlines.
func (f *HTTPFetcher) SetTimeout(d time.Duration) {
	f.client.Timeout = d
}
