package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sitescout/sitescout/internal/provider"
	"github.com/sitescout/sitescout/internal/research"
)

// synthesisReserveTokens is held back from the context budget for the
// instructions and the response.
const synthesisReserveTokens = 8000

// synthesize feeds the successful page contents to the synthesis provider
// and parses the structured response. A schema-parse failure triggers one
// repair re-prompt; if that also fails the artifact carries only the raw
// narrative plus the Degraded flag. Only a provider failure on both routes
// is returned as an error.
func (p *Pipeline) synthesize(ctx context.Context, target research.Target, batch *research.ExtractionBatch) (research.IntelligenceArtifact, error) {
	successes := batch.Successful()
	if len(successes) == 0 {
		// Nothing to feed the model; report a degraded artifact rather
		// than fabricating a synthesis call.
		return research.IntelligenceArtifact{Degraded: true}, nil
	}

	info := p.completer.ModelInfo(provider.PurposeSynthesis)
	budgetChars := (info.ContextTokens - synthesisReserveTokens) * 4
	if budgetChars <= 0 {
		budgetChars = 100000
	}

	prompt := buildSynthesisPrompt(target, successes, budgetChars)

	raw, err := p.completer.Complete(ctx, provider.PurposeSynthesis, prompt)
	if err != nil {
		return research.IntelligenceArtifact{}, fmt.Errorf("synthesis call: %w", err)
	}

	artifact, parseErr := parseArtifact(raw)
	if parseErr == nil {
		return artifact, nil
	}

	logrus.Warnf("synthesis: schema parse failed, attempting repair: %v", parseErr)
	repaired, err := p.completer.Complete(ctx, provider.PurposeSynthesis, buildRepairPrompt(raw))
	if err == nil {
		if artifact, parseErr = parseArtifact(repaired); parseErr == nil {
			return artifact, nil
		}
	}

	// Degraded outcome: keep whatever narrative the model produced.
	return research.IntelligenceArtifact{
		Narrative: strings.TrimSpace(stripCodeFence(raw)),
		Degraded:  true,
	}, nil
}

// buildSynthesisPrompt concatenates page contents in rank order up to the
// character budget, so the lowest-priority pages are truncated first.
func buildSynthesisPrompt(target research.Target, pages []research.PageExtractionResult, budgetChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a business analyst. Below is the content of %d pages from the website of %q (%s).\n\n", len(pages), target.Company, target.URL)
	b.WriteString("Produce a business-intelligence summary of the company. Respond with JSON only, in this exact shape:\n")
	b.WriteString(`{"narrative": "...", "industry": "...", "business_model": "...", "products_services": ["..."], "target_market": "...", "leadership": ["..."], "founded": "...", "headquarters": "...", "company_size": "..."}`)
	b.WriteString("\n\nUse empty strings or empty lists for fields the content does not support.\n\n")

	used := b.Len()
	for _, page := range pages {
		section := fmt.Sprintf("=== %s ===\n%s\n\n", page.URL, page.Text)
		remaining := budgetChars - used
		if remaining <= 0 {
			break
		}
		if len(section) > remaining {
			// Partial tail page only when there is meaningful room left.
			if remaining > 500 {
				b.WriteString(section[:remaining])
			}
			break
		}
		b.WriteString(section)
		used += len(section)
	}
	return b.String()
}

// buildRepairPrompt asks the model to fix its own malformed output.
func buildRepairPrompt(malformed string) string {
	var b strings.Builder
	b.WriteString("The following response was supposed to be a single JSON object with the fields ")
	b.WriteString("narrative, industry, business_model, products_services, target_market, leadership, founded, headquarters, company_size, ")
	b.WriteString("but it does not parse. Reply with only the corrected JSON object, no commentary:\n\n")
	b.WriteString(malformed)
	return b.String()
}

// parseArtifact decodes the synthesis response into the artifact schema.
// A response that parses but carries no narrative at all is treated as a
// schema mismatch.
func parseArtifact(raw string) (research.IntelligenceArtifact, error) {
	cleaned := stripCodeFence(raw)
	var artifact research.IntelligenceArtifact
	if err := json.Unmarshal([]byte(cleaned), &artifact); err != nil {
		return research.IntelligenceArtifact{}, fmt.Errorf("decode artifact JSON: %w", err)
	}
	if strings.TrimSpace(artifact.Narrative) == "" {
		return research.IntelligenceArtifact{}, fmt.Errorf("artifact missing narrative")
	}
	artifact.Degraded = false
	return artifact, nil
}
