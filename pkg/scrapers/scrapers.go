// Package scrapers re-reads store pages to confirm the prices an AI answer
// claimed. Concrete scrapers live in the jsonld and browser subpackages.
package scrapers

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Snapshot is what a store page says about a product right now.
type Snapshot struct {
	Name     string
	Price    float64
	OldPrice float64
	Currency string
	InStock  bool
	URL      string
}

type Scraper interface {
	Scrape(ctx context.Context, url string) (*Snapshot, error)
}

type jsonLDOffer struct {
	Type          string          `json:"@type"`
	Price         json.RawMessage `json:"price"` // string or number
	LowPrice      json.RawMessage `json:"lowPrice"`
	PriceCurrency string          `json:"priceCurrency"`
	Availability  string          `json:"availability"`
	URL           string          `json:"url"`
}

type jsonLDProduct struct {
	Type   json.RawMessage `json:"@type"`
	Name   string          `json:"name"`
	Offers json.RawMessage `json:"offers"`
	Graph  []jsonLDProduct `json:"@graph"`
}

// ParseJSONLD reads a schema.org Product out of one ld+json script body. The
// body may be a single object, an array or an @graph container.
func ParseJSONLD(text string) (*Snapshot, bool) {
	text = strings.TrimSpace(text)

	var candidates []jsonLDProduct
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &candidates); err != nil {
			return nil, false
		}
	} else {
		var one jsonLDProduct
		if err := json.Unmarshal([]byte(text), &one); err != nil {
			return nil, false
		}
		candidates = append([]jsonLDProduct{one}, one.Graph...)
	}

	for _, c := range candidates {
		if !hasType(c.Type, "Product") {
			continue
		}
		snap := &Snapshot{Name: strings.TrimSpace(c.Name)}
		if offer, ok := firstOffer(c.Offers); ok {
			snap.Currency = offer.PriceCurrency
			snap.URL = offer.URL
			snap.Price = rawPrice(offer.Price)
			if snap.Price == 0 {
				snap.Price = rawPrice(offer.LowPrice)
			}
			avail := strings.ToLower(offer.Availability)
			snap.InStock = strings.Contains(avail, "instock") || avail == "in stock"
		}
		return snap, true
	}
	return nil, false
}

// @type is either a string or a list of strings.
func hasType(raw json.RawMessage, want string) bool {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return one == want
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, t := range many {
			if t == want {
				return true
			}
		}
	}
	return false
}

func firstOffer(raw json.RawMessage) (jsonLDOffer, bool) {
	if len(raw) == 0 {
		return jsonLDOffer{}, false
	}
	var one jsonLDOffer
	if err := json.Unmarshal(raw, &one); err == nil {
		return one, true
	}
	var many []jsonLDOffer
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0], true
	}
	return jsonLDOffer{}, false
}

func rawPrice(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	p, _ := ParsePrice(s)
	return p
}

var priceChars = regexp.MustCompile(`\d[\d.,]*`)

// ParsePrice reads a price label such as "₹1,19,900", "€ 0,99" or
// "$1,299.00". Thousands separators are told apart from decimal separators by
// position and group length.
func ParsePrice(label string) (float64, bool) {
	s := priceChars.FindString(label)
	if s == "" {
		return 0, false
	}
	s = strings.TrimRight(s, ".,")

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if len(s)-lastComma-1 == 3 || strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
