// Package jsonld reads product data from server-rendered store pages using
// the schema.org JSON-LD block most retailers embed for search engines.
package jsonld

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gocolly/colly/v2"

	"shopsmart/pkg/models"
	"shopsmart/pkg/scrapers"
)

type Scraper struct {
	Collector *colly.Collector
}

// NewScraper restricts visits to domains when any are given.
func NewScraper(domains ...string) *Scraper {
	opts := []colly.CollectorOption{
		colly.UserAgent(scrapers.UserAgent),
	}
	if len(domains) > 0 {
		opts = append(opts, colly.AllowedDomains(domains...))
	}
	return &Scraper{Collector: colly.NewCollector(opts...)}
}

func (s *Scraper) Scrape(ctx context.Context, url string) (*scrapers.Snapshot, error) {
	// A fresh clone per visit so callbacks from earlier pages do not pile up.
	c := s.Collector.Clone()
	c.Context = ctx

	var (
		snap       *scrapers.Snapshot
		metaPrice  string
		labelPrice string
		title      string
	)

	c.OnHTML(`script[type="application/ld+json"]`, func(e *colly.HTMLElement) {
		if snap != nil {
			return
		}
		if p, ok := scrapers.ParseJSONLD(e.Text); ok {
			snap = p
		}
	})

	c.OnHTML(`meta[itemprop="price"], meta[property="product:price:amount"]`, func(e *colly.HTMLElement) {
		if metaPrice == "" {
			metaPrice = e.Attr("content")
		}
	})

	// Common price labels: Amazon, Flipkart, generic microdata.
	c.OnHTML(`.a-price .a-offscreen, ._30jeq3, [itemprop="price"]`, func(e *colly.HTMLElement) {
		if labelPrice == "" {
			labelPrice = strings.TrimSpace(e.Text)
		}
	})

	c.OnHTML("h1", func(e *colly.HTMLElement) {
		if title == "" {
			title = strings.TrimSpace(e.Text)
		}
	})

	slog.Debug("visiting store page", "url", url)
	if err := c.Visit(url); err != nil {
		return nil, err
	}

	if snap == nil {
		snap = &scrapers.Snapshot{Name: title}
	}
	if snap.URL == "" {
		snap.URL = url
	}
	if snap.Name == "" {
		snap.Name = title
	}
	if snap.Price == 0 {
		for _, label := range []string{metaPrice, labelPrice} {
			if v, ok := scrapers.ParsePrice(label); ok {
				snap.Price = v
				// A visible price without structured availability counts as in stock.
				snap.InStock = true
				break
			}
		}
	}

	if snap.Name == "" && snap.Price == 0 {
		return nil, models.ErrProductNotFound
	}
	return snap, nil
}
