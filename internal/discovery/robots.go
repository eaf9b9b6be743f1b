package discovery

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/temoto/robotstxt"
)

// robotsResult is the contribution of the robots.txt pass: literal path
// directives become candidate links and Sitemap directives seed the sitemap
// pass.
type robotsResult struct {
	candidates []string
	sitemaps   []string
}

// discoverRobots fetches and parses <base>/robots.txt. Allow and Disallow
// values that are literal paths (no wildcards) are surfaced as candidate
// links; they routinely point at real sections of the site.
func (e *Engine) discoverRobots(ctx context.Context, base *url.URL) (*robotsResult, error) {
	robotsURL := base.Scheme + "://" + base.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("robots.txt HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	result := &robotsResult{}

	data, err := robotstxt.FromBytes(body)
	if err == nil {
		result.sitemaps = append(result.sitemaps, data.Sitemaps...)
	}

	// robotstxt keeps its rules private, so literal path extraction works
	// on the raw directives.
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "allow", "disallow":
			if value == "" || value == "/" {
				continue
			}
			if strings.ContainsAny(value, "*$") {
				continue
			}
			if isAssetPath(value) {
				continue
			}
			result.candidates = append(result.candidates, base.Scheme+"://"+base.Host+value)
		case "sitemap":
			// FromBytes already collects these, but malformed files that
			// fail strict parsing still carry usable Sitemap lines.
			if value != "" && !contains(result.sitemaps, value) {
				result.sitemaps = append(result.sitemaps, value)
			}
		}
	}

	return result, nil
}

const maxRobotsSize = 512 * 1024

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
