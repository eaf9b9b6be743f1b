package discovery

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// crawlHit is one anchor found by the recursive crawl pass.
type crawlHit struct {
	URL   string
	Depth int
}

// discoverCrawl walks same-origin anchor links from the base page up to the
// configured depth. Pages are fetched only to harvest further links; content
// extraction happens later, and only for prioritized pages.
func (e *Engine) discoverCrawl(ctx context.Context, base *url.URL) ([]crawlHit, error) {
	host := base.Hostname()

	collector := colly.NewCollector(
		colly.Async(true),
		// colly counts the seed request as depth 1.
		colly.MaxDepth(e.maxDepth+1),
		colly.AllowedDomains(host, "www."+canonicalHost(host), canonicalHost(host)),
	)
	collector.SetRequestTimeout(e.timeout)
	collector.UserAgent = e.userAgent

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: e.crawlParallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure crawl limits: %w", err)
	}

	var (
		mu   sync.Mutex
		hits []crawlHit
		seen = make(map[string]bool)
	)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	collector.OnHTML("a[href]", func(el *colly.HTMLElement) {
		link := el.Request.AbsoluteURL(el.Attr("href"))
		if link == "" {
			return
		}
		parsed, err := url.Parse(link)
		if err != nil || !SameOrigin(base, parsed) || isAssetPath(parsed.Path) {
			return
		}
		normalized, err := NormalizeURL(link)
		if err != nil {
			return
		}

		mu.Lock()
		full := len(hits) >= e.maxLinks
		if !full && !seen[normalized] {
			seen[normalized] = true
			hits = append(hits, crawlHit{URL: link, Depth: el.Request.Depth})
		}
		mu.Unlock()

		if full || ctx.Err() != nil {
			return
		}
		if err := el.Request.Visit(link); err != nil {
			// Already-visited and depth-limit errors are routine here.
			logrus.Debugf("crawl visit %s: %v", link, err)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Request != nil {
			logrus.Debugf("crawl fetch %s failed: %v", r.Request.URL, err)
		}
	})

	if err := collector.Visit(base.String()); err != nil {
		return nil, fmt.Errorf("visit base page: %w", err)
	}

	done := make(chan struct{})
	go func() {
		collector.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// In-flight colly requests are abandoned; whatever was collected
		// so far is still usable.
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]crawlHit, len(hits))
	copy(out, hits)
	return out, nil
}
