package discovery

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// sitemapURLSet represents a sitemap.xml urlset document.
type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// sitemapIndex represents a sitemap index document.
type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// discoverSitemaps resolves the given sitemap URLs (from robots directives
// plus the conventional /sitemap.xml) and collects their <loc> entries.
// Sitemap indexes are followed exactly one level deep.
func (e *Engine) discoverSitemaps(ctx context.Context, base *url.URL, seeds []string) []string {
	if !contains(seeds, base.Scheme+"://"+base.Host+"/sitemap.xml") {
		seeds = append(seeds, base.Scheme+"://"+base.Host+"/sitemap.xml")
	}

	var collected []string
	for _, seed := range seeds {
		urls, children, err := e.fetchSitemap(ctx, seed)
		if err != nil {
			logrus.Debugf("sitemap %s: %v", seed, err)
			continue
		}
		collected = append(collected, urls...)

		// One level of index recursion only.
		for _, child := range children {
			childURLs, _, err := e.fetchSitemap(ctx, child)
			if err != nil {
				logrus.Debugf("child sitemap %s: %v", child, err)
				continue
			}
			collected = append(collected, childURLs...)
			if len(collected) >= e.maxLinks {
				return collected
			}
		}
		if len(collected) >= e.maxLinks {
			return collected
		}
	}
	return collected
}

// fetchSitemap retrieves one sitemap document and returns its page URLs, or
// its child sitemap URLs if the document turns out to be an index.
func (e *Engine) fetchSitemap(ctx context.Context, sitemapURL string) (urls []string, children []string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build sitemap request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("sitemap HTTP %d", resp.StatusCode)
	}

	// Size-limit before decompression so a small .gz cannot balloon in memory.
	var reader io.Reader = io.LimitReader(resp.Body, maxSitemapSize)
	if strings.HasSuffix(sitemapURL, ".gz") {
		gz, gzErr := gzip.NewReader(reader)
		if gzErr != nil {
			return nil, nil, fmt.Errorf("sitemap gzip: %w", gzErr)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("read sitemap: %w", err)
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		for _, entry := range index.Sitemaps {
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return nil, children, nil
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, nil, fmt.Errorf("parse sitemap XML: %w", err)
	}
	for _, entry := range set.URLs {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil, nil
}

const maxSitemapSize = 50 * 1024 * 1024
