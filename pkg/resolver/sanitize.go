package resolver

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopsmart/pkg/models"
	"shopsmart/pkg/preload"
)

const (
	placeholderID     = "generate_unique_id"
	unboxingTemplate  = "QUERY"
	minImageURLLength = 10
)

var originalPriceMarkup = decimal.RequireFromString("1.2")

// sanitize decodes the extracted object and fills every gap the UI relies
// on. Bad per-offer values are coerced, never rejected, and offer entries
// that are not objects are skipped.
func (r *Resolver) sanitize(data []byte) (*models.ProductRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}

	p := &models.ProductRecord{
		ID:                    string(raw.ID),
		Name:                  strings.TrimSpace(string(raw.Name)),
		RefinedQuery:          string(raw.RefinedQuery),
		Description:           string(raw.Description),
		ImageURL:              string(raw.ImageURL),
		OverallRating:         float64(raw.OverallRating),
		ReviewCount:           int(raw.ReviewCount),
		Features:              []string(raw.Features),
		Pros:                  []string(raw.Pros),
		Cons:                  []string(raw.Cons),
		SustainabilityScore:   float64(raw.SustainabilityScore),
		SustainabilityReason:  string(raw.SustainabilityReason),
		ReturnPolicy:          string(raw.ReturnPolicy),
		UnboxingLink:          string(raw.UnboxingLink),
		IsGSTInvoiceAvailable: bool(raw.IsGSTInvoiceAvailable),
		OfflineAvailability:   []string(raw.OfflineAvailability),
	}

	if p.ID == "" || p.ID == placeholderID {
		p.ID = r.newID()
	}
	if len(p.ImageURL) < minImageURLLength || strings.Contains(p.ImageURL, "placeholder") {
		p.ImageURL = preload.FallbackImageURL
	}
	if p.UnboxingLink == "" || strings.Contains(p.UnboxingLink, unboxingTemplate) {
		p.UnboxingLink = "https://www.youtube.com/results?search_query=unboxing+" + encodeComponent(p.Name)
	}

	now := r.now()
	for i, entry := range raw.Offers {
		o, ok := decodeObject[rawOffer](entry)
		if !ok {
			r.logger.Debug("skipping offer entry", "product", p.Name, "index", i)
			continue
		}
		p.Offers = append(p.Offers, r.sanitizeOffer(o, p.Name, now))
	}
	if len(p.Offers) == 0 {
		return nil, models.ErrNoOffers
	}

	for _, pp := range raw.PriceHistory {
		p.PriceHistory = append(p.PriceHistory, models.PricePoint{Date: string(pp.Date), Price: float64(pp.Price)})
	}
	for _, a := range raw.Alternatives {
		p.Alternatives = append(p.Alternatives, models.AlternativeProduct{Name: string(a.Name), Price: float64(a.Price), Reason: string(a.Reason)})
	}
	for _, a := range raw.Accessories {
		p.Accessories = append(p.Accessories, models.Accessory{Name: string(a.Name), Type: string(a.Type), EstimatedPrice: float64(a.EstimatedPrice)})
	}
	for _, c := range raw.Coupons {
		p.Coupons = append(p.Coupons, models.Coupon{Code: string(c.Code), Description: string(c.Description), DiscountAmount: float64(c.DiscountAmount)})
	}
	if pred, ok := decodeObject[rawPrediction](raw.PricePrediction); ok {
		p.PricePrediction = &models.PricePrediction{
			Trend:      strings.ToUpper(string(pred.Trend)),
			Advice:     strings.ToUpper(string(pred.Advice)),
			Confidence: float64(pred.Confidence),
		}
	}
	if len(raw.Specs) > 0 {
		p.Specs = raw.Specs
	}
	return p, nil
}

func (r *Resolver) sanitizeOffer(o rawOffer, productName string, now time.Time) models.StoreOffer {
	price := float64(o.Price)
	offer := models.StoreOffer{
		StoreName:      string(o.StoreName),
		Price:          price,
		EffectivePrice: float64(o.EffectivePrice),
		OriginalPrice:  float64(o.OriginalPrice),
		Currency:       string(o.Currency),
		InStock:        bool(o.InStock),
		Rating:         float64(o.Rating),
		Offers:         []string(o.Offers),
		OfferExpiry:    string(o.OfferExpiry),
	}
	if offer.EffectivePrice == 0 {
		offer.EffectivePrice = price
	}
	if offer.OriginalPrice == 0 {
		offer.OriginalPrice = decimal.NewFromFloat(price).Mul(originalPriceMarkup).Round(2).InexactFloat64()
	}
	if offer.Offers == nil {
		offer.Offers = []string{}
	}
	if offer.Currency == "" {
		offer.Currency = "INR"
	}
	offer.Link = r.links.Rewrite(string(o.Link), offer.StoreName, productName)

	if offer.OfferExpiry == "" {
		if exp, ok := r.expiry.Expiry(offer.StoreName, now); ok {
			offer.OfferExpiry = exp.UTC().Format(time.RFC3339)
		}
	}
	return offer
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
