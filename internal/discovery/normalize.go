package discovery

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL reduces a URL to its deduplication form: lowercased scheme and
// host, path only (query and fragment stripped), no trailing slash. Two links
// that normalize identically are the same page for discovery purposes.
func NormalizeURL(raw string) (string, error) {
	// Handle protocol-relative URLs
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %q", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}

	path := parsed.EscapedPath()
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "/" {
		path = ""
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host) + path, nil
}

// SameOrigin reports whether candidate shares the base URL's host, treating
// the bare domain and its www subdomain as the same site.
func SameOrigin(base *url.URL, candidate *url.URL) bool {
	return canonicalHost(base.Hostname()) == canonicalHost(candidate.Hostname())
}

func canonicalHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// skippedExtensions are asset paths the discovery passes never treat as
// candidate pages.
var skippedExtensions = []string{
	".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico",
	".pdf", ".zip", ".gz", ".mp4", ".mp3", ".webp", ".woff", ".woff2",
}

func isAssetPath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
