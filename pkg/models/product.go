package models

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNoOffers        = errors.New("product has no store offers")
)

type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type StoreOffer struct {
	StoreName      string   `json:"storeName"`
	Price          float64  `json:"price"`
	// EffectivePrice is the listed price after bank offers and coins.
	EffectivePrice float64  `json:"effectivePrice,omitempty"`
	OriginalPrice  float64  `json:"originalPrice,omitempty"`
	Currency       string   `json:"currency"`
	Link           string   `json:"link"`
	InStock        bool     `json:"inStock"`
	Rating         float64  `json:"rating"`
	Offers         []string `json:"offers,omitempty"`
	OfferExpiry    string   `json:"offerExpiry,omitempty"`
}

// BestPrice returns the effective price, falling back to the listed price.
func (o StoreOffer) BestPrice() float64 {
	if o.EffectivePrice > 0 {
		return o.EffectivePrice
	}
	return o.Price
}

type AlternativeProduct struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Reason string  `json:"reason"`
}

type Accessory struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	EstimatedPrice float64 `json:"estimatedPrice"`
}

type Coupon struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	DiscountAmount float64 `json:"discountAmount,omitempty"`
}

type PricePrediction struct {
	Trend      string  `json:"trend"`
	Advice     string  `json:"advice"`
	Confidence float64 `json:"confidence"`
}

type ProductRecord struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	RefinedQuery  string               `json:"refinedQuery,omitempty"`
	Description   string               `json:"description"`
	ImageURL      string               `json:"imageUrl"`
	Offers        []StoreOffer         `json:"offers"`
	PriceHistory  []PricePoint         `json:"priceHistory"`
	OverallRating float64              `json:"overallRating"`
	ReviewCount   int                  `json:"reviewCount"`
	Features      []string             `json:"features"`
	Alternatives  []AlternativeProduct `json:"alternatives,omitempty"`

	Pros                 []string          `json:"pros,omitempty"`
	Cons                 []string          `json:"cons,omitempty"`
	SustainabilityScore  float64           `json:"sustainabilityScore,omitempty"`
	SustainabilityReason string            `json:"sustainabilityReason,omitempty"`
	PricePrediction      *PricePrediction  `json:"pricePrediction,omitempty"`
	Coupons              []Coupon          `json:"coupons,omitempty"`
	Specs                map[string]string `json:"specs,omitempty"`
	ReturnPolicy         string            `json:"returnPolicy,omitempty"`

	Accessories           []Accessory `json:"accessories,omitempty"`
	UnboxingLink          string      `json:"unboxingLink,omitempty"`
	IsGSTInvoiceAvailable bool        `json:"isGstInvoiceAvailable,omitempty"`
	OfflineAvailability   []string    `json:"offlineAvailability,omitempty"`
}

// Clone returns a deep copy so callers can mutate the result without touching
// shared records.
func (p *ProductRecord) Clone() *ProductRecord {
	if p == nil {
		return nil
	}
	out := *p
	out.Offers = make([]StoreOffer, len(p.Offers))
	for i, o := range p.Offers {
		o.Offers = cloneStrings(o.Offers)
		out.Offers[i] = o
	}
	out.PriceHistory = append([]PricePoint(nil), p.PriceHistory...)
	out.Features = cloneStrings(p.Features)
	out.Alternatives = append([]AlternativeProduct(nil), p.Alternatives...)
	out.Pros = cloneStrings(p.Pros)
	out.Cons = cloneStrings(p.Cons)
	if p.PricePrediction != nil {
		pp := *p.PricePrediction
		out.PricePrediction = &pp
	}
	out.Coupons = append([]Coupon(nil), p.Coupons...)
	if p.Specs != nil {
		out.Specs = make(map[string]string, len(p.Specs))
		for k, v := range p.Specs {
			out.Specs[k] = v
		}
	}
	out.Accessories = append([]Accessory(nil), p.Accessories...)
	out.OfflineAvailability = cloneStrings(p.OfflineAvailability)
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
