// Package discovery aggregates candidate page URLs for a site from three
// independent sources: robots.txt directives, sitemap XML, and a bounded
// recursive crawl of on-site navigation.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sitescout/sitescout/internal/research"
)

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient replaces the HTTP client used by the robots and sitemap
// passes. Tests point this at httptest servers.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithCrawlParallelism bounds the colly collector's parallelism.
func WithCrawlParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.crawlParallelism = n
		}
	}
}

// Engine runs the three discovery passes and merges their results.
type Engine struct {
	maxLinks         int
	maxDepth         int
	timeout          time.Duration
	userAgent        string
	crawlParallelism int
	client           *http.Client
	sink             research.ProgressSink
}

// NewEngine creates a discovery engine. maxLinks caps the merged result set;
// maxDepth bounds the recursive crawl pass.
func NewEngine(maxLinks, maxDepth int, timeout time.Duration, userAgent string, sink research.ProgressSink, opts ...Option) *Engine {
	e := &Engine{
		maxLinks:         maxLinks,
		maxDepth:         maxDepth,
		timeout:          timeout,
		userAgent:        userAgent,
		crawlParallelism: 4,
		client:           &http.Client{Timeout: timeout},
		sink:             sink,
	}
	if e.sink == nil {
		e.sink = research.NullSink{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Discover runs all three passes and merges their links in fixed priority
// order: robots > sitemap > crawl. Within a source, first-discovered order is
// preserved. The merged set is deduplicated by normalized URL and capped at
// maxLinks, so the crawl pass loses capacity first when the cap is hit.
//
// A failing source degrades to an empty contribution; only all three coming
// back empty is fatal.
func (e *Engine) Discover(ctx context.Context, baseURL string) ([]research.DiscoveredLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" {
		base.Scheme = "https"
	}

	// Pass 1: robots.txt. Its sitemap directives seed pass 2.
	robots, err := e.discoverRobots(ctx, base)
	if err != nil {
		logrus.Warnf("discovery: robots.txt pass failed: %v", err)
		e.sink.OnEvent("discovery", research.EventProgress, "robots.txt unavailable, continuing")
		robots = &robotsResult{}
	}

	// Pass 2: sitemaps.
	sitemapURLs := e.discoverSitemaps(ctx, base, robots.sitemaps)
	if len(sitemapURLs) == 0 {
		e.sink.OnEvent("discovery", research.EventProgress, "no sitemap entries found")
	}

	// Pass 3: recursive crawl.
	hits, err := e.discoverCrawl(ctx, base)
	if err != nil {
		logrus.Warnf("discovery: crawl pass failed: %v", err)
		e.sink.OnEvent("discovery", research.EventProgress, "crawl pass failed, continuing")
	}

	// The base page alone is not a discovery; all three passes coming back
	// empty means the site gave us nothing to research.
	if len(robots.candidates) == 0 && len(sitemapURLs) == 0 && len(hits) == 0 {
		return nil, research.ErrDiscoveryExhausted
	}

	merged := e.merge(base, robots.candidates, sitemapURLs, hits)

	e.sink.OnEvent("discovery", research.EventProgress, fmt.Sprintf(
		"merged %d links (robots=%d sitemap=%d crawl=%d)",
		len(merged), len(robots.candidates), len(sitemapURLs), len(hits)))

	return merged, nil
}

// merge deduplicates and caps the per-source link lists, preserving the
// robots > sitemap > crawl precedence.
func (e *Engine) merge(base *url.URL, robotsLinks, sitemapLinks []string, hits []crawlHit) []research.DiscoveredLink {
	seen := make(map[string]bool, e.maxLinks)
	var out []research.DiscoveredLink

	add := func(raw string, source research.Source, depth int) bool {
		if len(out) >= e.maxLinks {
			return false
		}
		parsed, err := url.Parse(raw)
		if err != nil || !SameOrigin(base, parsed) {
			return true
		}
		normalized, err := NormalizeURL(raw)
		if err != nil || seen[normalized] {
			return true
		}
		seen[normalized] = true
		out = append(out, research.DiscoveredLink{URL: normalized, Source: source, Depth: depth})
		return true
	}

	// The base page itself is always a candidate.
	add(base.String(), research.SourceCrawl, 0)

	for _, link := range robotsLinks {
		if !add(link, research.SourceRobots, 0) {
			break
		}
	}
	for _, link := range sitemapLinks {
		if !add(link, research.SourceSitemap, 0) {
			break
		}
	}
	for _, hit := range hits {
		if !add(hit.URL, research.SourceCrawl, hit.Depth) {
			break
		}
	}
	return out
}

// Host returns the canonical host of a URL string, used for logging.
func Host(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return strings.ToLower(parsed.Hostname())
}
