package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sitescout/sitescout/internal/research"
)

// extractAll fetches the prioritized pages under the configured concurrency
// limit. Workers are fully independent: one page hanging until its own
// timeout or blowing up in the parser never cancels or delays a sibling, and
// the batch always waits for every worker. A half-successful batch is still
// usable synthesis input.
//
// On external cancellation, pages that had not completed are abandoned and
// only finished results appear in the batch.
func (p *Pipeline) extractAll(ctx context.Context, pages []research.PrioritizedPage) research.ExtractionBatch {
	perPage := time.Duration(p.cfg.PerPageTimeoutMs) * time.Millisecond

	var (
		mu      sync.Mutex
		results []research.PageExtractionResult
	)

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)

	for _, page := range pages {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			res := p.extractOne(ctx, page, perPage)

			// Cancelled mid-flight: keep only pages that truly completed.
			if ctx.Err() != nil && res.Status != research.StatusSuccess {
				return nil
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()

			status := research.EventCompleted
			if res.Status != research.StatusSuccess {
				status = research.EventFailed
			}
			p.sink.OnEvent("extraction.page", status, fmt.Sprintf(
				"%s status=%s chars=%d strategy=%s elapsed=%s",
				res.URL, res.Status, res.Chars, res.Strategy, res.Elapsed.Round(time.Millisecond)))
			return nil
		})
	}
	_ = g.Wait()

	// Collection happens in completion order; synthesis wants rank order.
	sort.Slice(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })

	batch := research.ExtractionBatch{Results: results, Attempted: len(results)}
	for _, r := range results {
		if r.Status == research.StatusSuccess {
			batch.Succeeded++
			batch.TotalChars += r.Chars
		}
	}
	return batch
}

// extractOne runs one worker: fetch under the per-page timeout, then the
// strategy chain. It always produces exactly one result, owned by this
// worker alone until it is appended to the batch.
func (p *Pipeline) extractOne(ctx context.Context, page research.PrioritizedPage, timeout time.Duration) (res research.PageExtractionResult) {
	start := time.Now()
	res = research.PageExtractionResult{URL: page.Link.URL, Rank: page.Rank}

	// A panicking parser must not take down sibling workers.
	defer func() {
		if r := recover(); r != nil {
			res.Status = research.StatusExtractError
			res.Err = fmt.Sprintf("extractor panic: %v", r)
			res.Elapsed = time.Since(start)
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	html, err := p.fetcher.Fetch(pageCtx, page.Link.URL)
	if err != nil {
		res.Elapsed = time.Since(start)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			res.Status = research.StatusTimeout
		} else {
			res.Status = research.StatusFetchError
		}
		res.Err = err.Error()
		return res
	}

	text, strategy, err := p.chain.Extract(html)
	res.Elapsed = time.Since(start)
	res.Strategy = strategy
	if err != nil {
		res.Status = research.StatusExtractError
		res.Err = err.Error()
		return res
	}

	res.Text = text
	res.Chars = len(text)
	if res.Chars >= p.chain.MinLen() {
		res.Status = research.StatusSuccess
	} else {
		res.Status = research.StatusEmpty
	}
	return res
}
