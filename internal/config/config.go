package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// PurposeConfig selects the primary and secondary provider for one call
// purpose (page selection or synthesis). Provider names: "openai", "gemini".
type PurposeConfig struct {
	Primary        string `json:"primary"`
	PrimaryModel   string `json:"primary_model"`
	Secondary      string `json:"secondary"`
	SecondaryModel string `json:"secondary_model"`
}

// ProvidersConfig holds AI provider routing and rate-limit settings. API
// keys come from the environment (OPENAI_API_KEY, GEMINI_API_KEY), never
// from the config file.
type ProvidersConfig struct {
	Selection     PurposeConfig `json:"selection"`
	Synthesis     PurposeConfig `json:"synthesis"`
	OpenAIBaseURL string        `json:"openai_base_url"`
	RateLimitRPS  float64       `json:"rate_limit_rps"`
	MaxWaitMs     int           `json:"max_wait_ms"`
}

// Config holds all runtime configuration parameters
type Config struct {
	CompanyName                 string          `json:"company_name"`
	SeedURL                     string          `json:"seed_url"`
	MaxLinks                    int             `json:"max_links"`
	MaxCrawlDepth               int             `json:"max_crawl_depth"`
	MaxPrioritizedPages         int             `json:"max_prioritized_pages"`
	Concurrency                 int             `json:"concurrency"`
	PerPageTimeoutMs            int             `json:"per_page_timeout_ms"`
	GlobalTimeoutMs             int             `json:"global_timeout_ms"`
	MinSubstantialContentLength int             `json:"min_substantial_content_length"`
	RenderJS                    bool            `json:"render_js"`
	UserAgent                   string          `json:"user_agent"`
	Providers                   ProvidersConfig `json:"providers"`
	DBPath                      string          `json:"db_path"`
	MetricsPath                 string          `json:"metrics_path"`
}

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Apply defaults for missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults sets default values for unspecified fields
func ApplyDefaults(cfg *Config) {
	if cfg.MaxLinks == 0 {
		cfg.MaxLinks = 1000
	}
	if cfg.MaxCrawlDepth == 0 {
		cfg.MaxCrawlDepth = 3
	}
	if cfg.MaxPrioritizedPages == 0 {
		cfg.MaxPrioritizedPages = 25
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 10
	}
	if cfg.PerPageTimeoutMs == 0 {
		cfg.PerPageTimeoutMs = 12000
	}
	if cfg.GlobalTimeoutMs == 0 {
		// Ceiling for the whole run, enforced by the caller.
		cfg.GlobalTimeoutMs = 10 * 60 * 1000
	}
	if cfg.MinSubstantialContentLength == 0 {
		cfg.MinSubstantialContentLength = 400
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "SiteScout-Researcher/1.0"
	}
	if cfg.Providers.Selection.Primary == "" {
		cfg.Providers.Selection = PurposeConfig{
			Primary:        "openai",
			PrimaryModel:   "gpt-4o-mini",
			Secondary:      "gemini",
			SecondaryModel: "gemini-2.0-flash",
		}
	}
	if cfg.Providers.Synthesis.Primary == "" {
		cfg.Providers.Synthesis = PurposeConfig{
			Primary:        "gemini",
			PrimaryModel:   "gemini-2.0-flash",
			Secondary:      "openai",
			SecondaryModel: "gpt-4o",
		}
	}
	if cfg.Providers.RateLimitRPS == 0 {
		cfg.Providers.RateLimitRPS = 2.0
	}
	if cfg.Providers.MaxWaitMs == 0 {
		cfg.Providers.MaxWaitMs = 30000
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "research.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.log"
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if cfg.SeedURL == "" && cfg.CompanyName == "" {
		return fmt.Errorf("seed_url or company_name is required")
	}
	if cfg.MaxLinks < 1 {
		return fmt.Errorf("max_links must be >= 1")
	}
	if cfg.MaxCrawlDepth < 1 {
		return fmt.Errorf("max_crawl_depth must be >= 1")
	}
	if cfg.MaxPrioritizedPages < 1 {
		return fmt.Errorf("max_prioritized_pages must be >= 1")
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1")
	}
	if cfg.PerPageTimeoutMs < 1000 {
		return fmt.Errorf("per_page_timeout_ms must be >= 1000")
	}
	if cfg.Providers.RateLimitRPS <= 0 {
		return fmt.Errorf("rate_limit_rps must be > 0")
	}
	return nil
}
