package models

import "github.com/shopspring/decimal"

const emiMonths = 6

// PriceSummary is the derived price view shown next to a product.
type PriceSummary struct {
	BestPrice       float64  `json:"bestPrice"`
	MaxPrice        float64  `json:"maxPrice"`
	Stores          []string `json:"stores"`
	IsPriceDropping bool     `json:"isPriceDropping"`
	EMIMonthly      float64  `json:"emiMonthly"`
	EMIMonths       int      `json:"emiMonths"`
	Savings         float64  `json:"savings"`
}

// Summarize computes best/max effective prices across offers. It returns
// ErrNoOffers for records that must not be shown.
func Summarize(p *ProductRecord) (PriceSummary, error) {
	if p == nil || len(p.Offers) == 0 {
		return PriceSummary{}, ErrNoOffers
	}

	var s PriceSummary
	seen := make(map[string]bool)
	total := decimal.Zero
	var bestOriginal float64
	for i, o := range p.Offers {
		price := o.BestPrice()
		if i == 0 || price < s.BestPrice {
			s.BestPrice = price
			bestOriginal = o.OriginalPrice
		}
		if i == 0 || price > s.MaxPrice {
			s.MaxPrice = price
		}
		total = total.Add(decimal.NewFromFloat(price))
		if !seen[o.StoreName] {
			seen[o.StoreName] = true
			s.Stores = append(s.Stores, o.StoreName)
		}
	}

	avg := total.Div(decimal.NewFromInt(int64(len(p.Offers))))
	last := avg
	if n := len(p.PriceHistory); n > 0 && p.PriceHistory[n-1].Price > 0 {
		last = decimal.NewFromFloat(p.PriceHistory[n-1].Price)
	}
	s.IsPriceDropping = avg.LessThanOrEqual(last)

	best := decimal.NewFromFloat(s.BestPrice)
	s.EMIMonths = emiMonths
	s.EMIMonthly = best.Div(decimal.NewFromInt(emiMonths)).Round(0).InexactFloat64()
	if bestOriginal > s.BestPrice {
		s.Savings = decimal.NewFromFloat(bestOriginal).Sub(best).InexactFloat64()
	}
	return s, nil
}
