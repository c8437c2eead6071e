package scrapers

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"shopsmart/pkg/affiliate"
	"shopsmart/pkg/models"
)

const DefaultConcurrency = 3

// Verifier refreshes offer prices from the store pages they link to.
type Verifier struct {
	scraper Scraper
	limit   int
	logger  *slog.Logger
}

func NewVerifier(s Scraper, concurrency int, logger *slog.Logger) *Verifier {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{scraper: s, limit: concurrency, logger: logger}
}

// Verify updates p's offers in place and returns how many were refreshed. An
// offer whose page cannot be read keeps the values it had.
func (v *Verifier) Verify(ctx context.Context, p *models.ProductRecord) (int, error) {
	refreshed := make([]bool, len(p.Offers))

	g := new(errgroup.Group)
	g.SetLimit(v.limit)

	for i := range p.Offers {
		offer := &p.Offers[i]
		if !affiliate.IsValidLink(offer.Link) {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			snap, err := v.scraper.Scrape(ctx, offer.Link)
			if err != nil {
				v.logger.Warn("offer verification failed", "store", offer.StoreName, "link", offer.Link, "error", err)
				return nil
			}
			refreshed[i] = apply(offer, snap)
			return nil
		})
	}
	g.Wait()

	n := 0
	for _, ok := range refreshed {
		if ok {
			n++
		}
	}
	if err := ctx.Err(); err != nil {
		return n, err
	}
	v.logger.Info("offers verified", "product", p.ID, "refreshed", n, "total", len(p.Offers))
	return n, nil
}

func apply(offer *models.StoreOffer, snap *Snapshot) bool {
	if snap == nil || snap.Price <= 0 {
		return false
	}
	offer.Price = snap.Price
	if offer.EffectivePrice == 0 || offer.EffectivePrice > snap.Price {
		offer.EffectivePrice = snap.Price
	}
	if snap.OldPrice > snap.Price {
		offer.OriginalPrice = snap.OldPrice
	}
	offer.InStock = snap.InStock
	return true
}
