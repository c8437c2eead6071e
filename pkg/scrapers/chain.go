package scrapers

import (
	"context"
	"errors"
)

// Chain tries each scraper in order until one returns a priced snapshot. If
// none does, the last snapshot or the joined errors are returned.
type Chain []Scraper

func (c Chain) Scrape(ctx context.Context, url string) (*Snapshot, error) {
	var (
		best *Snapshot
		errs []error
	)
	for _, s := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := s.Scrape(ctx, url)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if snap.Price > 0 {
			return snap, nil
		}
		best = snap
	}
	if best != nil {
		return best, nil
	}
	if len(errs) == 0 {
		return nil, errors.New("no scrapers configured")
	}
	return nil, errors.Join(errs...)
}
