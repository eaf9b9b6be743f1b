// Package pipeline orchestrates the four research stages: discovery,
// prioritization, extraction, and synthesis. Each stage degrades where it
// can; only an empty discovery, a both-routes provider failure, or external
// cancellation aborts a run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/extract"
	"github.com/sitescout/sitescout/internal/provider"
	"github.com/sitescout/sitescout/internal/research"
)

// Completer is the provider surface the pipeline needs. The router satisfies
// it; tests substitute scripted fakes.
type Completer interface {
	Complete(ctx context.Context, purpose provider.Purpose, prompt string) (string, error)
	ModelInfo(purpose provider.Purpose) provider.ModelInfo
}

// Discoverer produces the candidate link set for a site.
type Discoverer interface {
	Discover(ctx context.Context, baseURL string) ([]research.DiscoveredLink, error)
}

// Pipeline wires the stages together. One Pipeline may serve multiple runs;
// per-run state lives on the stack of Research.
type Pipeline struct {
	cfg        *config.Config
	discoverer Discoverer
	fetcher    extract.Fetcher
	chain      *extract.Chain
	completer  Completer
	sink       research.ProgressSink
}

// New assembles a pipeline from its stage components.
func New(cfg *config.Config, discoverer Discoverer, fetcher extract.Fetcher, chain *extract.Chain, completer Completer, sink research.ProgressSink) *Pipeline {
	if sink == nil {
		sink = research.NullSink{}
	}
	return &Pipeline{
		cfg:        cfg,
		discoverer: discoverer,
		fetcher:    fetcher,
		chain:      chain,
		completer:  completer,
		sink:       sink,
	}
}

// Research runs the full pipeline for one target. The extraction batch is
// returned alongside the artifact so callers can archive per-page outcomes;
// on cancellation it holds whatever pages had completed.
func (p *Pipeline) Research(ctx context.Context, target research.Target) (research.IntelligenceArtifact, research.ExtractionBatch, error) {
	start := time.Now()
	var batch research.ExtractionBatch

	// Stage 1: discovery.
	p.sink.OnEvent("discovery", research.EventStarted, target.URL)
	links, err := p.discoverer.Discover(ctx, target.URL)
	if err != nil {
		p.sink.OnEvent("discovery", research.EventFailed, err.Error())
		if ctx.Err() != nil {
			return research.IntelligenceArtifact{}, batch, fmt.Errorf("%w: during discovery: %v", research.ErrPipelineCancelled, err)
		}
		return research.IntelligenceArtifact{}, batch, err
	}
	p.sink.OnEvent("discovery", research.EventCompleted, fmt.Sprintf("%d links", len(links)))

	if ctx.Err() != nil {
		return research.IntelligenceArtifact{}, batch, fmt.Errorf("%w: after discovery", research.ErrPipelineCancelled)
	}

	// Stage 2: prioritization.
	p.sink.OnEvent("prioritization", research.EventStarted, fmt.Sprintf("%d candidates", len(links)))
	pages, degradedSelection := p.prioritize(ctx, target, links)
	if ctx.Err() != nil {
		return research.IntelligenceArtifact{}, batch, fmt.Errorf("%w: during prioritization", research.ErrPipelineCancelled)
	}
	p.sink.OnEvent("prioritization", research.EventCompleted, fmt.Sprintf("%d pages selected (heuristic=%t)", len(pages), degradedSelection))

	// Stage 3: extraction.
	p.sink.OnEvent("extraction", research.EventStarted, fmt.Sprintf("%d pages, concurrency=%d", len(pages), p.cfg.Concurrency))
	batch = p.extractAll(ctx, pages)
	if ctx.Err() != nil {
		p.sink.OnEvent("extraction", research.EventFailed, "cancelled")
		return research.IntelligenceArtifact{}, batch, fmt.Errorf("%w: during extraction", research.ErrPipelineCancelled)
	}
	p.sink.OnEvent("extraction", research.EventCompleted, fmt.Sprintf(
		"%d/%d pages succeeded, %d chars", batch.Succeeded, batch.Attempted, batch.TotalChars))

	// Stage 4: synthesis.
	p.sink.OnEvent("synthesis", research.EventStarted, fmt.Sprintf("%d successful pages", batch.Succeeded))
	artifact, err := p.synthesize(ctx, target, &batch)
	if err != nil {
		p.sink.OnEvent("synthesis", research.EventFailed, err.Error())
		if ctx.Err() != nil {
			return research.IntelligenceArtifact{}, batch, fmt.Errorf("%w: during synthesis", research.ErrPipelineCancelled)
		}
		return research.IntelligenceArtifact{}, batch, err
	}
	if degradedSelection {
		artifact.Degraded = true
	}
	p.sink.OnEvent("synthesis", research.EventCompleted, fmt.Sprintf(
		"degraded=%t elapsed=%s", artifact.Degraded, time.Since(start).Round(time.Millisecond)))

	return artifact, batch, nil
}
