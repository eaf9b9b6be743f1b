package discovery

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/About", "https://example.com/About"},
		{"strips trailing slash", "https://example.com/about/", "https://example.com/about"},
		{"strips query", "https://example.com/about?utm_source=x", "https://example.com/about"},
		{"strips fragment", "https://example.com/about#team", "https://example.com/about"},
		{"root path collapses", "https://example.com/", "https://example.com"},
		{"protocol-relative", "//example.com/contact", "https://example.com/contact"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeURLRejectsNonHTTP(t *testing.T) {
	for _, raw := range []string{"mailto:team@example.com", "javascript:void(0)", "ftp://example.com/file", "/relative/path"} {
		_, err := NormalizeURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestNormalizeURLDeduplicatesVariants(t *testing.T) {
	variants := []string{
		"https://example.com/about",
		"https://example.com/about/",
		"https://EXAMPLE.com/about?ref=nav",
		"https://example.com/about#history",
	}

	seen := make(map[string]bool)
	for _, v := range variants {
		normalized, err := NormalizeURL(v)
		require.NoError(t, err)
		seen[normalized] = true
	}
	assert.Len(t, seen, 1)
}

func TestSameOrigin(t *testing.T) {
	base, _ := url.Parse("https://example.com")

	same := []string{"https://example.com/x", "https://www.example.com/y", "http://EXAMPLE.COM"}
	for _, raw := range same {
		candidate, _ := url.Parse(raw)
		assert.True(t, SameOrigin(base, candidate), raw)
	}

	other := []string{"https://blog.example.com/x", "https://example.org", "https://notexample.com"}
	for _, raw := range other {
		candidate, _ := url.Parse(raw)
		assert.False(t, SameOrigin(base, candidate), raw)
	}
}

func TestIsAssetPath(t *testing.T) {
	assert.True(t, isAssetPath("/static/logo.PNG"))
	assert.True(t, isAssetPath("/docs/whitepaper.pdf"))
	assert.False(t, isAssetPath("/about"))
	assert.False(t, isAssetPath("/products/widget"))
}
