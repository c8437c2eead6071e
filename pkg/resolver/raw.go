package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// number accepts JSON numbers and numeric strings. Anything else decodes as 0
// so one bad field degrades the offer instead of failing the whole record.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	*n = 0
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*n = number(f)
		}
	}
	return nil
}

// flag accepts booleans and "true"/"false" strings.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	*f = false
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flag(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, _ = strconv.ParseBool(strings.TrimSpace(s))
		*f = flag(v)
	}
	return nil
}

// text accepts strings and stringifies scalars; null stays empty. Objects
// and arrays are kept as compact JSON.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	*t = ""
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case nil:
	case float64, bool:
		*t = text(fmt.Sprint(x))
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err == nil {
			*t = text(buf.String())
		}
	}
	return nil
}

// textList accepts a list of mixed values or a single bare value. Empty
// entries are dropped.
type textList []string

func (l *textList) UnmarshalJSON(b []byte) error {
	*l = nil
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		items = []json.RawMessage{b}
	}
	for _, item := range items {
		var t text
		_ = t.UnmarshalJSON(item)
		if t != "" {
			*l = append(*l, string(t))
		}
	}
	return nil
}

// textMap accepts an object of mixed values. Anything else decodes as empty.
type textMap map[string]string

func (m *textMap) UnmarshalJSON(b []byte) error {
	*m = nil
	var fields map[string]text
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil
	}
	for k, v := range fields {
		if *m == nil {
			*m = make(textMap, len(fields))
		}
		(*m)[k] = string(v)
	}
	return nil
}

// list decodes a JSON array element by element and drops the elements that
// are not objects of the expected shape. A non-array decodes as empty.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	for _, item := range items {
		if v, ok := decodeObject[T](item); ok {
			*l = append(*l, v)
		}
	}
	return nil
}

// decodeObject reports false for anything other than a JSON object.
func decodeObject[T any](b json.RawMessage) (T, bool) {
	var v T
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false
	}
	return v, true
}

type rawOffer struct {
	StoreName      text     `json:"storeName"`
	Price          number   `json:"price"`
	EffectivePrice number   `json:"effectivePrice"`
	OriginalPrice  number   `json:"originalPrice"`
	Currency       text     `json:"currency"`
	Link           text     `json:"link"`
	InStock        flag     `json:"inStock"`
	Rating         number   `json:"rating"`
	Offers         textList `json:"offers"`
	OfferExpiry    text     `json:"offerExpiry"`
}

type rawPricePoint struct {
	Date  text   `json:"date"`
	Price number `json:"price"`
}

type rawAlternative struct {
	Name   text   `json:"name"`
	Price  number `json:"price"`
	Reason text   `json:"reason"`
}

type rawAccessory struct {
	Name           text   `json:"name"`
	Type           text   `json:"type"`
	EstimatedPrice number `json:"estimatedPrice"`
}

type rawCoupon struct {
	Code           text   `json:"code"`
	Description    text   `json:"description"`
	DiscountAmount number `json:"discountAmount"`
}

type rawPrediction struct {
	Trend      text   `json:"trend"`
	Advice     text   `json:"advice"`
	Confidence number `json:"confidence"`
}

// rawRecord keeps offers undecoded so each entry is coerced on its own.
type rawRecord struct {
	ID                    text                 `json:"id"`
	Name                  text                 `json:"name"`
	RefinedQuery          text                 `json:"refinedQuery"`
	Description           text                 `json:"description"`
	ImageURL              text                 `json:"imageUrl"`
	Offers                []json.RawMessage    `json:"-"`
	PriceHistory          list[rawPricePoint]  `json:"priceHistory"`
	OverallRating         number               `json:"overallRating"`
	ReviewCount           number               `json:"reviewCount"`
	Features              textList             `json:"features"`
	Alternatives          list[rawAlternative] `json:"alternatives"`
	Pros                  textList             `json:"pros"`
	Cons                  textList             `json:"cons"`
	SustainabilityScore   number               `json:"sustainabilityScore"`
	SustainabilityReason  text                 `json:"sustainabilityReason"`
	PricePrediction       json.RawMessage      `json:"pricePrediction"`
	Coupons               list[rawCoupon]      `json:"coupons"`
	Specs                 textMap              `json:"specs"`
	ReturnPolicy          text                 `json:"returnPolicy"`
	Accessories           list[rawAccessory]   `json:"accessories"`
	UnboxingLink          text                 `json:"unboxingLink"`
	IsGSTInvoiceAvailable flag                 `json:"isGstInvoiceAvailable"`
	OfflineAvailability   textList             `json:"offlineAvailability"`
}

func (r *rawRecord) UnmarshalJSON(b []byte) error {
	type plain rawRecord
	var wire struct {
		plain
		Offers json.RawMessage `json:"offers"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*r = rawRecord(wire.plain)
	if err := json.Unmarshal(wire.Offers, &r.Offers); err != nil {
		r.Offers = nil
	}
	return nil
}
