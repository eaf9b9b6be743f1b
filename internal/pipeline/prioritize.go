package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sitescout/sitescout/internal/discovery"
	"github.com/sitescout/sitescout/internal/provider"
	"github.com/sitescout/sitescout/internal/research"
)

// selectionChoice is one URL the model picked, with its stated reason.
type selectionChoice struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// selectionResponse is the expected JSON shape of the selection call.
type selectionResponse struct {
	Pages []selectionChoice `json:"pages"`
}

// selectionPromptBudgetChars bounds how much of the link list goes into the
// prompt; beyond it a head sample in discovery order is sent.
const selectionPromptBudgetChars = 60000

// prioritize asks the selection provider to rank the discovered links and
// validates the answer against the discovered set. Any failure degrades to
// the keyword heuristic instead of aborting; the returned flag reports that.
func (p *Pipeline) prioritize(ctx context.Context, target research.Target, links []research.DiscoveredLink) ([]research.PrioritizedPage, bool) {
	prompt := buildSelectionPrompt(target, links, p.cfg.MaxPrioritizedPages)

	raw, err := p.completer.Complete(ctx, provider.PurposeSelection, prompt)
	if err != nil {
		logrus.Warnf("prioritization: provider call failed, using heuristic: %v", err)
		return heuristicSelect(links, p.cfg.MaxPrioritizedPages), true
	}

	parsed, err := parseSelection(raw)
	if err != nil {
		logrus.Warnf("prioritization: malformed response, using heuristic: %v", err)
		return heuristicSelect(links, p.cfg.MaxPrioritizedPages), true
	}

	// Anti-hallucination guard: only URLs present in the discovered set
	// survive, matched by normalized form.
	known := make(map[string]research.DiscoveredLink, len(links))
	for _, link := range links {
		known[link.URL] = link
	}

	var pages []research.PrioritizedPage
	seen := make(map[string]bool)
	for _, choice := range parsed.Pages {
		if len(pages) >= p.cfg.MaxPrioritizedPages {
			break
		}
		normalized, err := discovery.NormalizeURL(choice.URL)
		if err != nil {
			continue
		}
		link, ok := known[normalized]
		if !ok || seen[normalized] {
			continue
		}
		seen[normalized] = true
		pages = append(pages, research.PrioritizedPage{
			Link:      link,
			Rank:      len(pages),
			Rationale: choice.Reason,
		})
	}

	if len(pages) == 0 {
		logrus.Warn("prioritization: no usable URLs in response, using heuristic")
		return heuristicSelect(links, p.cfg.MaxPrioritizedPages), true
	}
	return pages, false
}

// buildSelectionPrompt is deterministic for a given link list: same links,
// same prompt, so retries never alter what the model sees.
func buildSelectionPrompt(target research.Target, links []research.DiscoveredLink, maxPages int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are researching the company %q (%s).\n\n", target.Company, target.URL)
	fmt.Fprintf(&b, "Below is a list of pages discovered on the company's website. ")
	fmt.Fprintf(&b, "Select at most %d URLs most likely to contain information about the company's founding, leadership, products, services, pricing, or business model.\n\n", maxPages)
	b.WriteString("Respond with JSON only, in this exact shape:\n")
	b.WriteString(`{"pages": [{"url": "...", "reason": "..."}]}` + "\n\n")
	b.WriteString("Discovered pages:\n")

	for i, link := range links {
		line := fmt.Sprintf("%d. %s (source=%s)\n", i+1, link.URL, link.Source)
		if b.Len()+len(line) > selectionPromptBudgetChars {
			fmt.Fprintf(&b, "... and %d more pages omitted\n", len(links)-i)
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

// parseSelection decodes the model's JSON, tolerating markdown code fences.
func parseSelection(raw string) (*selectionResponse, error) {
	cleaned := stripCodeFence(raw)
	var resp selectionResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("decode selection JSON: %w", err)
	}
	if len(resp.Pages) == 0 {
		return nil, fmt.Errorf("selection response contains no pages")
	}
	return &resp, nil
}

// heuristicKeywords orders path keywords by how likely they are to mark
// business-relevant pages. Lower index wins.
var heuristicKeywords = []string{
	"about", "team", "company", "leadership", "contact",
	"product", "service", "pricing", "careers",
}

// heuristicSelect is the provider-free fallback: prefer links whose paths
// contain business-relevant keywords, then fill with the remaining links in
// discovery order.
func heuristicSelect(links []research.DiscoveredLink, maxPages int) []research.PrioritizedPage {
	type scored struct {
		link    research.DiscoveredLink
		keyword int // index into heuristicKeywords, len() when unmatched
		order   int
	}

	items := make([]scored, 0, len(links))
	for i, link := range links {
		items = append(items, scored{link: link, keyword: keywordScore(link.URL), order: i})
	}
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].keyword != items[b].keyword {
			return items[a].keyword < items[b].keyword
		}
		return items[a].order < items[b].order
	})

	if len(items) > maxPages {
		items = items[:maxPages]
	}

	pages := make([]research.PrioritizedPage, 0, len(items))
	for i, item := range items {
		rationale := "heuristic: discovery order"
		if item.keyword < len(heuristicKeywords) {
			rationale = fmt.Sprintf("heuristic: path matches %q", heuristicKeywords[item.keyword])
		}
		pages = append(pages, research.PrioritizedPage{
			Link:      item.link,
			Rank:      i,
			Rationale: rationale,
		})
	}
	return pages
}

// keywordScore returns the index of the first matching keyword in the URL
// path, or len(heuristicKeywords) when none match.
func keywordScore(rawURL string) int {
	lower := strings.ToLower(rawURL)
	for i, kw := range heuristicKeywords {
		if strings.Contains(lower, kw) {
			return i
		}
	}
	return len(heuristicKeywords)
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
