package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"company_name": "Acme", "seed_url": "https://acme.example"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Acme", cfg.CompanyName)
	assert.Equal(t, 1000, cfg.MaxLinks)
	assert.Equal(t, 3, cfg.MaxCrawlDepth)
	assert.Equal(t, 25, cfg.MaxPrioritizedPages)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 12000, cfg.PerPageTimeoutMs)
	assert.Equal(t, 400, cfg.MinSubstantialContentLength)
	assert.Equal(t, "SiteScout-Researcher/1.0", cfg.UserAgent)
	assert.Equal(t, "openai", cfg.Providers.Selection.Primary)
	assert.Equal(t, "gemini", cfg.Providers.Synthesis.Primary)
	assert.Equal(t, 2.0, cfg.Providers.RateLimitRPS)
	assert.Equal(t, "research.db", cfg.DBPath)
}

func TestLoadConfigExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `{
		"seed_url": "https://acme.example",
		"max_links": 50,
		"concurrency": 4,
		"providers": {
			"selection": {"primary": "gemini", "primary_model": "gemini-2.0-flash"}
		}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxLinks)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "gemini", cfg.Providers.Selection.Primary)
	// Synthesis was untouched, so it still defaults.
	assert.Equal(t, "gemini", cfg.Providers.Synthesis.Primary)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing target", `{}`},
		{"negative links", `{"seed_url": "https://x.example", "max_links": -1}`},
		{"tiny timeout", `{"seed_url": "https://x.example", "per_page_timeout_ms": 10}`},
		{"bad json", `{"seed_url": `},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
