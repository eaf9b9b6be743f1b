package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one technique for turning fetched markup into clean text.
// Strategies are tried in order by the Chain; the first one producing
// substantial content wins.
type Strategy interface {
	Name() string
	Extract(html string) (string, error)
}

// Chain applies its strategies in order and stops at the first result that
// meets the substance threshold.
type Chain struct {
	strategies []Strategy
	minLen     int
}

// NewChain builds the default chain: precise structured-text extraction
// first, then the permissive selector sweep.
func NewChain(minSubstantialLen int) *Chain {
	return &Chain{
		strategies: []Strategy{
			structuredText{},
			contentSelectors{},
		},
		minLen: minSubstantialLen,
	}
}

// NewChainWith builds a chain from explicit strategies, for tests.
func NewChainWith(minSubstantialLen int, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, minLen: minSubstantialLen}
}

// Extract runs the chain. It returns the text, the name of the strategy that
// produced it, and an error only when every strategy errored. Insubstantial
// output from all strategies yields ("", longestName, nil): the caller
// records the page as empty, not failed.
func (c *Chain) Extract(html string) (text string, strategy string, err error) {
	var lastErr error
	var longest string
	var longestName string

	for _, s := range c.strategies {
		out, sErr := s.Extract(html)
		if sErr != nil {
			lastErr = fmt.Errorf("%s: %w", s.Name(), sErr)
			continue
		}
		if len(out) >= c.minLen {
			return out, s.Name(), nil
		}
		if len(out) > len(longest) {
			longest = out
			longestName = s.Name()
		}
	}

	if longest != "" || lastErr == nil {
		// Best-effort short content; status is decided by the caller.
		return longest, longestName, nil
	}
	return "", "", lastErr
}

// MinLen exposes the substance threshold for callers deciding empty vs
// success.
func (c *Chain) MinLen() int { return c.minLen }

// boilerplateSelector lists the regions both strategies strip outright.
const boilerplateSelector = "script, style, nav, header, footer, aside, noscript, iframe, form, svg"

// structuredText is the precision-oriented first pass: strip boilerplate
// regions, take the document body text, collapse whitespace.
type structuredText struct{}

func (structuredText) Name() string { return "structured_text" }

func (structuredText) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	doc.Find(boilerplateSelector).Remove()

	return collapseWhitespace(doc.Find("body").Text()), nil
}

// contentSelectors is the permissive fallback: re-parse the raw markup and
// pull text from content-bearing containers, including elements whose class
// or id names suggest services, offerings, or partnerships.
type contentSelectors struct{}

func (contentSelectors) Name() string { return "content_selectors" }

// contentContainerSelectors are tried against the cleaned document in order.
var contentContainerSelectors = []string{
	"main",
	"article",
	"[role=main]",
	"#content, #main, #main-content",
	".content, .main-content, .page-content, .entry-content",
	"[class*=service], [class*=product], [class*=offering], [class*=partner], [class*=solution]",
	"[id*=service], [id*=product], [id*=about]",
	"section",
}

func (contentSelectors) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	doc.Find(boilerplateSelector).Remove()

	var parts []string
	seen := make(map[string]bool)
	for _, selector := range contentContainerSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := collapseWhitespace(sel.Text())
			if len(text) < 40 || seen[text] {
				return
			}
			// Skip blocks fully contained in text we already kept; nested
			// selectors would otherwise duplicate whole sections.
			for _, kept := range parts {
				if strings.Contains(kept, text) {
					return
				}
			}
			seen[text] = true
			parts = append(parts, text)
		})
	}

	if len(parts) == 0 {
		// Last resort within this strategy: paragraph and heading text.
		doc.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
			text := collapseWhitespace(sel.Text())
			if len(text) >= 20 && !seen[text] {
				seen[text] = true
				parts = append(parts, text)
			}
		})
	}

	return strings.Join(parts, "\n\n"), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
