package extract

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RenderFetcher retrieves pages through a headless browser so that
// script-rendered markup is visible to the extraction strategies. It is
// wired in when render_js is enabled; most sites do fine with HTTPFetcher.
type RenderFetcher struct {
	browser *rod.Browser
}

// NewRenderFetcher connects to (or launches) a browser instance.
func NewRenderFetcher() (*RenderFetcher, error) {
	browser := rod.New()
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &RenderFetcher{browser: browser}, nil
}

// Name identifies the fetcher in extraction results.
func (f *RenderFetcher) Name() string { return "render" }

// Fetch loads the page, waits for the load event, and returns the rendered
// DOM serialized as HTML.
func (f *RenderFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	page, err := f.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait for load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("serialize DOM: %w", err)
	}
	return html, nil
}

// Close shuts the browser down.
func (f *RenderFetcher) Close() error {
	return f.browser.Close()
}
