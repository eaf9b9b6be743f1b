// Package research holds the domain types shared by every pipeline stage:
// the research target, discovered links, extraction results and the final
// intelligence artifact. All of them live and die within a single run.
package research

import "time"

// Target identifies the company being researched. Immutable input.
type Target struct {
	Company string
	URL     string
}

// Source identifies which discovery pass produced a link.
type Source string

const (
	SourceRobots  Source = "robots"
	SourceSitemap Source = "sitemap"
	SourceCrawl   Source = "crawl"
)

// DiscoveredLink is a candidate page found by the discovery engine.
type DiscoveredLink struct {
	URL    string
	Source Source
	Depth  int
}

// PrioritizedPage is a discovered link the prioritizer selected, with its
// rank (0 = highest) and the model's stated reason for picking it.
type PrioritizedPage struct {
	Link      DiscoveredLink
	Rank      int
	Rationale string
}

// PageStatus classifies the outcome of one extraction attempt.
type PageStatus string

const (
	StatusSuccess      PageStatus = "success"
	StatusEmpty        PageStatus = "empty"
	StatusFetchError   PageStatus = "fetch_error"
	StatusExtractError PageStatus = "extract_error"
	StatusTimeout      PageStatus = "timeout"
)

// PageExtractionResult records one attempted page. Each extraction worker
// owns exactly one result; it is immutable once handed to the batch.
type PageExtractionResult struct {
	URL      string
	Rank     int
	Status   PageStatus
	Text     string
	Chars    int
	Elapsed  time.Duration
	Strategy string
	Err      string
}

// ExtractionBatch is the full set of per-page results for one run.
type ExtractionBatch struct {
	Results    []PageExtractionResult
	Attempted  int
	Succeeded  int
	TotalChars int
}

// Successful returns the successful results in rank order.
func (b *ExtractionBatch) Successful() []PageExtractionResult {
	var out []PageExtractionResult
	for _, r := range b.Results {
		if r.Status == StatusSuccess {
			out = append(out, r)
		}
	}
	return out
}

// IntelligenceArtifact is the synthesizer's structured output. Degraded is
// set when a stage had to fall back: heuristic page selection, zero
// extractable pages, or a schema parse that failed even after repair.
type IntelligenceArtifact struct {
	Narrative        string   `json:"narrative"`
	Industry         string   `json:"industry"`
	BusinessModel    string   `json:"business_model"`
	ProductsServices []string `json:"products_services"`
	TargetMarket     string   `json:"target_market"`
	Leadership       []string `json:"leadership"`
	Founded          string   `json:"founded"`
	Headquarters     string   `json:"headquarters"`
	CompanySize      string   `json:"company_size"`
	Degraded         bool     `json:"degraded"`
}
