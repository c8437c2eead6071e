package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"shopsmart/pkg/affiliate"
	"shopsmart/pkg/assistant"
	"shopsmart/pkg/models"
	"shopsmart/pkg/preload"
)

type fakeCompleter struct {
	mu      sync.Mutex
	out     string
	err     error
	calls   int
	prompts []string
	images  []*assistant.Image
	chatErr error
	system  string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, image *assistant.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, image)
	return f.out, f.err
}

func (f *fakeCompleter) Chat(_ context.Context, system string, _ []models.ChatMessage, question string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system = system
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return "answer to " + question, nil
}

type memCache struct {
	m map[string]*models.ProductRecord
}

func (c *memCache) Get(q string) (*models.ProductRecord, bool) {
	p, ok := c.m[q]
	return p, ok
}

func (c *memCache) Set(q string, p *models.ProductRecord) { c.m[q] = p }

type fixedExpiry struct{ after time.Duration }

func (f fixedExpiry) Expiry(_ string, now time.Time) (time.Time, bool) {
	return now.Add(f.after), true
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestResolver(ai assistant.Completer, opts ...Option) *Resolver {
	base := []Option{
		WithExpiryPolicy(NoExpiry{}),
		WithClock(func() time.Time { return testNow }),
	}
	return New(ai, affiliate.New("shopsmart-21", "shopsmart_aff", ""), append(base, opts...)...)
}

const sampleJSON = `{
  "id": "generate_unique_id",
  "name": "Pixel 8",
  "imageUrl": "https://placeholder.com/img.png",
  "unboxingLink": "https://www.youtube.com/results?search_query=unboxing+QUERY",
  "overallRating": "4.4",
  "reviewCount": 900,
  "specs": {"RAM": "8GB", "Weight": 187},
  "pricePrediction": {"trend": "down", "advice": "wait", "confidence": 70},
  "offers": [
    {"storeName": "Amazon", "price": "59999", "currency": "INR", "link": null, "inStock": true, "rating": 4.3},
    {"storeName": "Croma", "price": 61000, "effectivePrice": 58000, "originalPrice": 65000, "link": "https://www.croma.com/google-pixel-8/p/1", "inStock": "true", "offers": ["5% off"]},
    {"storeName": "Flipkart", "price": {"value": 1}, "link": "https://www.flipkart.com/pixel-8/p/itm"}
  ],
  "alternatives": [{"name": "Galaxy S23", "price": "54999", "reason": "cheaper"}]
}`

func TestResolvePreloadedHit(t *testing.T) {
	ai := &fakeCompleter{err: errors.New("must not be called")}
	r := newTestResolver(ai)

	p, err := r.Resolve(context.Background(), "iPhone 15 Pro")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ai.calls != 0 {
		t.Errorf("AI called %d times on a preload hit", ai.calls)
	}
	if len(p.Offers) != 4 {
		t.Errorf("offers = %d, want 4", len(p.Offers))
	}
	s, _ := models.Summarize(p)
	if s.BestPrice != 114900 {
		t.Errorf("best price = %v, want 114900", s.BestPrice)
	}

	p.Offers[0].Price = 1
	again, _ := r.Resolve(context.Background(), "iphone 15 pro")
	if again.Offers[0].Price != 119900 {
		t.Error("mutation of a previous result leaked into the next one")
	}
}

func TestResolveMalformedResponse(t *testing.T) {
	ai := &fakeCompleter{out: "Sorry, I could not find that product anywhere."}
	r := newTestResolver(ai)

	_, err := r.Resolve(context.Background(), "xyz-unknown-product-12345")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	var re *ResolutionError
	if !errors.As(err, &re) || re.Kind != MalformedResponse {
		t.Errorf("err = %#v, want ResolutionError{MalformedResponse}", err)
	}
	if ai.calls != 1 {
		t.Errorf("AI calls = %d, want exactly 1", ai.calls)
	}
}

func TestResolveTransportFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	ai := &fakeCompleter{err: cause}
	r := newTestResolver(ai)

	_, err := r.Resolve(context.Background(), "xyz-unknown-product-12345")
	if !errors.Is(err, ErrTransportFailure) {
		t.Fatalf("err = %v, want ErrTransportFailure", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not preserved: %v", err)
	}
	if ai.calls != 1 {
		t.Errorf("AI calls = %d, want 1 (no retry)", ai.calls)
	}
	if UserMessage(err) != "Unable to retrieve live prices. Please check your connection." {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	r := newTestResolver(&fakeCompleter{})
	if _, err := r.Resolve(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestResolveSanitizes(t *testing.T) {
	ai := &fakeCompleter{out: "Here you go:\n```json\n" + sampleJSON + "\n```"}
	r := newTestResolver(ai, WithIDGenerator(func() string { return "prod_fixed" }))

	p, err := r.Resolve(context.Background(), "pixel 8")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(ai.prompts[0], `"pixel 8"`) {
		t.Errorf("prompt does not carry the query: %s", ai.prompts[0])
	}

	if p.ID != "prod_fixed" {
		t.Errorf("id = %q, want prod_fixed", p.ID)
	}
	if p.ImageURL != preload.FallbackImageURL {
		t.Errorf("imageUrl = %q, want fallback", p.ImageURL)
	}
	if p.UnboxingLink != "https://www.youtube.com/results?search_query=unboxing+Pixel%208" {
		t.Errorf("unboxingLink = %q", p.UnboxingLink)
	}
	if p.OverallRating != 4.4 {
		t.Errorf("overallRating = %v, want 4.4", p.OverallRating)
	}
	if p.Specs["Weight"] != "187" {
		t.Errorf("specs = %v", p.Specs)
	}
	if p.PricePrediction == nil || p.PricePrediction.Trend != "DOWN" || p.PricePrediction.Advice != "WAIT" {
		t.Errorf("pricePrediction = %+v", p.PricePrediction)
	}
	if len(p.Alternatives) != 1 || p.Alternatives[0].Price != 54999 {
		t.Errorf("alternatives = %+v", p.Alternatives)
	}

	amazon, croma, flipkart := p.Offers[0], p.Offers[1], p.Offers[2]

	if amazon.Price != 59999 || amazon.EffectivePrice != 59999 {
		t.Errorf("amazon price/effective = %v/%v, want 59999/59999", amazon.Price, amazon.EffectivePrice)
	}
	if amazon.OriginalPrice != 71998.8 {
		t.Errorf("amazon originalPrice = %v, want 71998.8", amazon.OriginalPrice)
	}
	if amazon.Link != "https://www.amazon.in/s?k=Pixel%208&tag=shopsmart-21" {
		t.Errorf("amazon link = %q", amazon.Link)
	}
	if amazon.Offers == nil || len(amazon.Offers) != 0 {
		t.Errorf("amazon offers = %#v, want empty slice", amazon.Offers)
	}
	if amazon.OfferExpiry != "" {
		t.Errorf("expiry synthesized with NoExpiry policy: %q", amazon.OfferExpiry)
	}

	if croma.EffectivePrice != 58000 || croma.OriginalPrice != 65000 || !croma.InStock {
		t.Errorf("croma = %+v", croma)
	}
	if croma.Link != "https://www.croma.com/google-pixel-8/p/1" {
		t.Errorf("croma link = %q", croma.Link)
	}

	if flipkart.Price != 0 || flipkart.EffectivePrice != 0 {
		t.Errorf("flipkart price not coerced to 0: %+v", flipkart)
	}
	if flipkart.Link != "https://www.flipkart.com/pixel-8/p/itm?affid=shopsmart_aff" {
		t.Errorf("flipkart link = %q", flipkart.Link)
	}
}

func TestResolveEffectivePriceDefaults(t *testing.T) {
	ai := &fakeCompleter{out: `{"name":"Kettle","offers":[{"storeName":"Croma","price":1499}]}`}
	r := newTestResolver(ai)

	p, err := r.Resolve(context.Background(), "electric kettle")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Offers[0].EffectivePrice != 1499 {
		t.Errorf("effectivePrice = %v, want 1499", p.Offers[0].EffectivePrice)
	}
	if !strings.HasPrefix(p.ID, "prod_") {
		t.Errorf("generated id = %q", p.ID)
	}
}

func TestResolveNoOffersIsMalformed(t *testing.T) {
	ai := &fakeCompleter{out: `{"name":"Kettle","offers":[]}`}
	r := newTestResolver(ai)

	if _, err := r.Resolve(context.Background(), "electric kettle"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestResolveCoercesLooseShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOffers int
		check      func(t *testing.T, p *models.ProductRecord)
	}{
		{
			name:       "offer perks as a bare string",
			body:       `{"name":"Pixel 8","offers":[{"storeName":"Amazon","price":59999,"offers":"No Cost EMI"}]}`,
			wantOffers: 1,
			check: func(t *testing.T, p *models.ProductRecord) {
				if got := p.Offers[0].Offers; len(got) != 1 || got[0] != "No Cost EMI" {
					t.Errorf("perks = %#v, want [No Cost EMI]", got)
				}
			},
		},
		{
			name:       "bank perk as an object",
			body:       `{"name":"Pixel 8","offers":[{"storeName":"Croma","price":61000,"offers":[{"bank":"HDFC","discount":3000},"5% off",null]}]}`,
			wantOffers: 1,
			check: func(t *testing.T, p *models.ProductRecord) {
				got := p.Offers[0].Offers
				if len(got) != 2 || got[0] != `{"bank":"HDFC","discount":3000}` || got[1] != "5% off" {
					t.Errorf("perks = %#v", got)
				}
			},
		},
		{
			name:       "nested spec value and scalar lists",
			body:       `{"name":"Pixel 8","specs":{"Display":{"size":"6.2in","type":"OLED"},"RAM":"8GB"},"pros":"Great camera","features":["USB-C",5],"pricePrediction":"likely to drop","offers":[{"storeName":"Amazon","price":59999}]}`,
			wantOffers: 1,
			check: func(t *testing.T, p *models.ProductRecord) {
				if p.Specs["Display"] != `{"size":"6.2in","type":"OLED"}` || p.Specs["RAM"] != "8GB" {
					t.Errorf("specs = %v", p.Specs)
				}
				if len(p.Pros) != 1 || p.Pros[0] != "Great camera" {
					t.Errorf("pros = %#v", p.Pros)
				}
				if len(p.Features) != 2 || p.Features[1] != "5" {
					t.Errorf("features = %#v", p.Features)
				}
				if p.PricePrediction != nil {
					t.Errorf("pricePrediction = %+v, want nil", p.PricePrediction)
				}
			},
		},
		{
			name:       "one bad offer entry among good ones",
			body:       `{"name":"Pixel 8","offers":[{"storeName":"Amazon","price":59999},"Croma 61000",42],"alternatives":["Galaxy S23",{"name":"OnePlus 12","price":"64999"}]}`,
			wantOffers: 1,
			check: func(t *testing.T, p *models.ProductRecord) {
				if p.Offers[0].StoreName != "Amazon" || p.Offers[0].Price != 59999 {
					t.Errorf("offer = %+v", p.Offers[0])
				}
				if len(p.Alternatives) != 1 || p.Alternatives[0].Price != 64999 {
					t.Errorf("alternatives = %+v", p.Alternatives)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(&fakeCompleter{out: tt.body})
			p, err := r.Resolve(context.Background(), "pixel 8")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if len(p.Offers) != tt.wantOffers {
				t.Fatalf("offers = %d, want %d", len(p.Offers), tt.wantOffers)
			}
			tt.check(t, p)
		})
	}
}

func TestResolveNoUsableOfferIsMalformed(t *testing.T) {
	for _, body := range []string{
		`{"name":"Pixel 8","offers":["Amazon 59999","Croma 61000"]}`,
		`{"name":"Pixel 8","offers":"Amazon 59999"}`,
	} {
		r := newTestResolver(&fakeCompleter{out: body})
		if _, err := r.Resolve(context.Background(), "pixel 8"); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("%s: err = %v, want ErrMalformedResponse", body, err)
		}
	}
}

func TestResolveSyntheticExpiry(t *testing.T) {
	ai := &fakeCompleter{out: `{"name":"Kettle","offers":[{"storeName":"Amazon","price":1499},{"storeName":"Croma","price":1499,"offerExpiry":"2024-03-05T00:00:00Z"}]}`}
	r := newTestResolver(ai, WithExpiryPolicy(fixedExpiry{after: 5 * time.Hour}))

	p, err := r.Resolve(context.Background(), "electric kettle")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Offers[0].OfferExpiry != "2024-03-01T15:00:00Z" {
		t.Errorf("amazon expiry = %q", p.Offers[0].OfferExpiry)
	}
	if p.Offers[1].OfferExpiry != "2024-03-05T00:00:00Z" {
		t.Errorf("existing expiry overwritten: %q", p.Offers[1].OfferExpiry)
	}
}

func TestResolveUsesResponseCache(t *testing.T) {
	ai := &fakeCompleter{out: `{"name":"Kettle","offers":[{"storeName":"Croma","price":1499}]}`}
	cache := &memCache{m: map[string]*models.ProductRecord{}}
	r := newTestResolver(ai, WithCache(cache))

	if _, err := r.Resolve(context.Background(), "Electric Kettle"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, ok := cache.m["electric kettle"]; !ok {
		t.Fatal("result not cached under the normalized query")
	}
	if _, err := r.Resolve(context.Background(), "electric kettle"); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if ai.calls != 1 {
		t.Errorf("AI calls = %d, want 1", ai.calls)
	}
}

func TestIdentifyImage(t *testing.T) {
	ai := &fakeCompleter{out: "  OnePlus 12R Iron Gray 256GB \n"}
	r := newTestResolver(ai)

	q, err := r.IdentifyImage(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	if err != nil {
		t.Fatalf("IdentifyImage: %v", err)
	}
	if q != "OnePlus 12R Iron Gray 256GB" {
		t.Errorf("query = %q", q)
	}
	if ai.images[0] == nil || ai.images[0].MIMEType != "image/jpeg" {
		t.Errorf("image payload not forwarded: %+v", ai.images[0])
	}
}

func TestIdentifyImageFailures(t *testing.T) {
	tests := []struct {
		name  string
		ai    *fakeCompleter
		image []byte
	}{
		{name: "Empty image", ai: &fakeCompleter{out: "x"}, image: nil},
		{name: "Service error", ai: &fakeCompleter{err: errors.New("boom")}, image: []byte{1}},
		{name: "Blank answer", ai: &fakeCompleter{out: "  "}, image: []byte{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestResolver(tt.ai).IdentifyImage(context.Background(), tt.image, "")
			if !errors.Is(err, ErrImageIdentification) {
				t.Errorf("err = %v, want ErrImageIdentification", err)
			}
		})
	}
}

func TestChat(t *testing.T) {
	ai := &fakeCompleter{}
	r := newTestResolver(ai)
	p, _ := preload.Lookup("PS5 Slim")

	answer, err := r.Chat(context.Background(), p, nil, "Does it support 120fps?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "answer to Does it support 120fps?" {
		t.Errorf("answer = %q", answer)
	}
	if !strings.Contains(ai.system, "Current Best Price: ₹42990") {
		t.Errorf("system prompt missing best price: %s", ai.system)
	}

	ai.chatErr = errors.New("down")
	answer, err = r.Chat(context.Background(), p, nil, "hello")
	if err != nil || answer != chatFallback {
		t.Errorf("fallback: answer=%q err=%v", answer, err)
	}

	if _, err := r.Chat(context.Background(), p, nil, " "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("err = %v, want ErrEmptyQuestion", err)
	}
}
