// Package browser reads product data from store pages that only render
// prices client-side, driving headless Chrome through chromedp.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"shopsmart/pkg/models"
	"shopsmart/pkg/scrapers"
)

const DefaultTimeout = 45 * time.Second

type Scraper struct {
	Timeout time.Duration
	// Settle is how long to wait after load for client-side rendering.
	Settle time.Duration
}

func NewScraper() *Scraper {
	return &Scraper{Timeout: DefaultTimeout, Settle: 2 * time.Second}
}

const findJSONLD = `
(function() {
	const scripts = document.querySelectorAll('script[type="application/ld+json"]');
	for (const script of scripts) {
		if (script.innerText.includes('"Product"')) {
			return script.innerText;
		}
	}
	return "";
})()
`

const findPriceLabel = `
(function() {
	let el = document.querySelector(".a-price .a-offscreen")
		|| document.querySelector("._30jeq3")
		|| document.querySelector("[itemprop='price']");
	if (!el) return "";
	return el.getAttribute("content") || el.innerText;
})()
`

func (s *Scraper) Scrape(ctx context.Context, url string) (*scrapers.Snapshot, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(scrapers.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	scrapeCtx, cancelScrape := context.WithTimeout(browserCtx, timeout)
	defer cancelScrape()

	var ldContent, priceLabel, title string

	slog.Debug("navigating store page", "url", url)

	err := chromedp.Run(scrapeCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.Sleep(s.Settle),
		chromedp.Evaluate(findJSONLD, &ldContent),
		chromedp.Evaluate(findPriceLabel, &priceLabel),
		chromedp.Evaluate(`document.querySelector("h1")?.innerText || ""`, &title),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}

	return snapshot(url, ldContent, priceLabel, title)
}

// snapshot prefers JSON-LD and falls back to the visible price label.
func snapshot(url, ldContent, priceLabel, title string) (*scrapers.Snapshot, error) {
	snap := &scrapers.Snapshot{}
	if ldContent != "" {
		if p, ok := scrapers.ParseJSONLD(ldContent); ok {
			snap = p
		} else {
			slog.Debug("unparsable JSON-LD", "url", url)
		}
	}

	if snap.Name == "" {
		snap.Name = strings.TrimSpace(title)
	}
	if snap.URL == "" {
		snap.URL = url
	}
	if snap.Price == 0 {
		if v, ok := scrapers.ParsePrice(priceLabel); ok {
			snap.Price = v
			snap.InStock = true
		}
	}

	if snap.Name == "" && snap.Price == 0 {
		return nil, models.ErrProductNotFound
	}
	return snap, nil
}
