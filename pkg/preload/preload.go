// Package preload holds the static demo dataset served without calling the AI
// service.
package preload

import (
	"strings"
	"time"

	"shopsmart/pkg/models"
)

// FallbackImageURL replaces missing or placeholder images on AI results.
const FallbackImageURL = "https://images.unsplash.com/photo-1706698889851-409641772651?auto=format&fit=crop&w=800&q=80"

type entry struct {
	key    string
	record *models.ProductRecord
}

// entries is ordered; lookups scan it front to back and the first match wins.
var entries = build(time.Now())

// Lookup returns a deep copy of the first record whose key contains the
// lowercased query or is contained by it.
func Lookup(query string) (*models.ProductRecord, bool) {
	q := strings.ToLower(query)
	for _, e := range entries {
		k := strings.ToLower(e.key)
		if strings.Contains(q, k) || strings.Contains(k, q) {
			return e.record.Clone(), true
		}
	}
	return nil, false
}

// Keys returns the canonical product names in lookup order.
func Keys() []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}

// All returns copies of every preloaded record in lookup order.
func All() []*models.ProductRecord {
	out := make([]*models.ProductRecord, len(entries))
	for i, e := range entries {
		out[i] = e.record.Clone()
	}
	return out
}

func build(now time.Time) []entry {
	return []entry{
		{key: "iPhone 15 Pro", record: &models.ProductRecord{
			ID:            "preload_iphone15pro",
			Name:          "Apple iPhone 15 Pro (Black Titanium, 128 GB)",
			Description:   "iPhone 15 Pro. Forged in titanium. Featuring the groundbreaking A17 Pro chip, a customizable Action button, and a more versatile Pro camera system.",
			ImageURL:      "https://images.unsplash.com/photo-1696446701796-da61225697cc?auto=format&fit=crop&w=800&q=80",
			OverallRating: 4.8,
			ReviewCount:   12500,
			Features:      []string{"A17 Pro Chip", "Titanium Design", "Action Button", "USB-C", "48MP Main Camera"},
			Pros:          []string{"Incredibly lightweight Titanium build", "A17 Pro is a beast for gaming", "USB-C finally!", "Action button is handy"},
			Cons:          []string{"Battery life could be better", "Charging speed still limited to 20W-27W", "Expensive compared to US pricing"},

			SustainabilityScore:  8,
			SustainabilityReason: "Made with 100% recycled aluminum in internal frame and 100% recycled cobalt in the battery.",
			PricePrediction:      &models.PricePrediction{Trend: "DOWN", Advice: "BUY_NOW", Confidence: 92},
			Offers: []models.StoreOffer{
				{StoreName: "Flipkart", Price: 119900, OriginalPrice: 134900, EffectivePrice: 114900, Offers: []string{"₹5000 HDFC Bank Off"}, Currency: "INR", Link: "https://www.flipkart.com/apple-iphone-15-pro-black-titanium-128-gb/p/itm", InStock: true, Rating: 4.8, OfferExpiry: now.Add(24 * time.Hour).UTC().Format(time.RFC3339)},
				{StoreName: "Amazon", Price: 121900, OriginalPrice: 134900, EffectivePrice: 116900, Offers: []string{"Flat ₹3000 Instant Discount"}, Currency: "INR", Link: "https://www.amazon.in/dp/B0CHX1", InStock: true, Rating: 4.7},
				{StoreName: "Croma", Price: 119900, OriginalPrice: 134900, EffectivePrice: 119900, Offers: []string{}, Currency: "INR", Link: "https://www.croma.com", InStock: true, Rating: 4.8},
				{StoreName: "JioMart", Price: 124900, OriginalPrice: 134900, EffectivePrice: 124900, Offers: []string{}, Currency: "INR", Link: "https://www.jiomart.com", InStock: true, Rating: 4.5},
			},
			PriceHistory: []models.PricePoint{
				{Date: "Oct", Price: 134900}, {Date: "Nov", Price: 129900}, {Date: "Dec", Price: 124900},
				{Date: "Jan", Price: 122900}, {Date: "Feb", Price: 119900}, {Date: "Today", Price: 114900},
			},
			Specs:                 map[string]string{"Display": "6.1-inch Super Retina XDR", "Processor": "A17 Pro", "Camera": "48MP + 12MP + 12MP", "Battery": "Up to 23 hrs playback"},
			ReturnPolicy:          "10 Days Replacement Policy",
			Accessories:           []models.Accessory{{Name: "20W USB-C Power Adapter", Type: "Charger", EstimatedPrice: 1900}, {Name: "MagSafe Clear Case", Type: "Case", EstimatedPrice: 4900}},
			UnboxingLink:          "https://www.youtube.com/results?search_query=iphone+15+pro+unboxing",
			IsGSTInvoiceAvailable: true,
			OfflineAvailability:   []string{"Imagine Stores", "Croma", "Reliance Digital"},
		}},
		{key: "Samsung S24 Ultra", record: &models.ProductRecord{
			ID:            "preload_s24ultra",
			Name:          "Samsung Galaxy S24 Ultra 5G (Titanium Gray, 12GB RAM, 256GB Storage)",
			Description:   "Galaxy AI is here. Welcome to the era of mobile AI. With Galaxy S24 Ultra in your hands, you can unleash whole new levels of creativity, productivity and possibility.",
			ImageURL:      FallbackImageURL,
			OverallRating: 4.7,
			ReviewCount:   8900,
			Features:      []string{"Galaxy AI", "Snapdragon 8 Gen 3", "200MP Camera", "Titanium Frame", "S-Pen Included"},
			Pros:          []string{"Best display on any smartphone", "Galaxy AI features are useful", "Incredible Zoom capability", "7 Years of OS updates"},
			Cons:          []string{"Very large and boxy design", "Shutter lag in moving subjects", "Expensive"},

			SustainabilityScore:  7,
			SustainabilityReason: "Uses recycled cobalt and rare earth elements in speakers.",
			PricePrediction:      &models.PricePrediction{Trend: "STABLE", Advice: "BUY_NOW", Confidence: 85},
			Offers: []models.StoreOffer{
				{StoreName: "Amazon", Price: 129999, OriginalPrice: 134999, EffectivePrice: 121999, Offers: []string{"₹8000 HDFC Bank Off"}, Currency: "INR", Link: "https://www.amazon.in/dp/B0", InStock: true, Rating: 4.7},
				{StoreName: "Samsung Shop", Price: 129999, OriginalPrice: 134999, EffectivePrice: 119999, Offers: []string{"₹10000 Exchange Bonus"}, Currency: "INR", Link: "https://www.samsung.com", InStock: true, Rating: 4.9},
				{StoreName: "Flipkart", Price: 131999, OriginalPrice: 134999, EffectivePrice: 131999, Offers: []string{}, Currency: "INR", Link: "https://www.flipkart.com", InStock: true, Rating: 4.6},
			},
			PriceHistory: []models.PricePoint{
				{Date: "Launch", Price: 134999}, {Date: "Feb", Price: 129999}, {Date: "Today", Price: 121999},
			},
			Specs:                 map[string]string{"Display": "6.8-inch QHD+ Dynamic AMOLED 2X", "Processor": "Snapdragon 8 Gen 3", "Camera": "200MP Quad Cam", "Battery": "5000mAh"},
			ReturnPolicy:          "7 Days Replacement",
			Accessories:           []models.Accessory{{Name: "45W Travel Adapter", Type: "Charger", EstimatedPrice: 3499}, {Name: "Galaxy Watch 6", Type: "Wearable", EstimatedPrice: 24999}},
			UnboxingLink:          "https://www.youtube.com/results?search_query=samsung+s24+ultra+unboxing",
			IsGSTInvoiceAvailable: true,
			OfflineAvailability:   []string{"Samsung Smart Cafe", "Croma", "Vijay Sales"},
		}},
		{key: "Sony WH-1000XM5", record: &models.ProductRecord{
			ID:            "preload_xm5",
			Name:          "Sony WH-1000XM5 Wireless Noise Cancelling Headphones",
			Description:   "The best noise cancelling headphones from Sony. Industry-leading noise cancellation, exceptional sound quality, and crystal-clear calls.",
			ImageURL:      "https://images.unsplash.com/photo-1618366712010-f4ae9c647dcb?auto=format&fit=crop&w=800&q=80",
			OverallRating: 4.6,
			ReviewCount:   4500,
			Features:      []string{"Industry-leading ANC", "30H Battery", "Multipoint Connection", "Speak-to-Chat"},
			Pros:          []string{"Top-tier Noise Cancellation", "Very comfortable/lightweight", "Great microphone quality"},
			Cons:          []string{"Does not fold up (bulky case)", "ANC cannot be turned off fully", "Pricey"},

			SustainabilityScore:  9,
			SustainabilityReason: "Packaging is plastic-free and uses recycled materials.",
			PricePrediction:      &models.PricePrediction{Trend: "DOWN", Advice: "BUY_NOW", Confidence: 95},
			Offers: []models.StoreOffer{
				{StoreName: "Amazon", Price: 24990, OriginalPrice: 34990, EffectivePrice: 22990, Offers: []string{"₹2000 ICICI Bank Off"}, Currency: "INR", Link: "https://www.amazon.in", InStock: true, Rating: 4.7},
				{StoreName: "HeadphoneZone", Price: 24990, OriginalPrice: 34990, EffectivePrice: 24990, Offers: []string{}, Currency: "INR", Link: "https://www.headphonezone.in", InStock: true, Rating: 5.0},
				{StoreName: "Flipkart", Price: 25990, OriginalPrice: 34990, EffectivePrice: 25990, Offers: []string{}, Currency: "INR", Link: "https://www.flipkart.com", InStock: true, Rating: 4.5},
			},
			PriceHistory: []models.PricePoint{
				{Date: "Oct", Price: 29990}, {Date: "Dec", Price: 26990}, {Date: "Today", Price: 22990},
			},
			Specs:                 map[string]string{"Driver": "30mm", "Battery": "30 Hours (NC On)", "Weight": "250g", "Charging": "3 min charge = 3 hrs"},
			ReturnPolicy:          "No Returns (Hygiene)",
			UnboxingLink:          "https://www.youtube.com/results?search_query=sony+xm5+unboxing",
			IsGSTInvoiceAvailable: true,
			OfflineAvailability:   []string{"Sony Center", "Croma"},
		}},
		{key: "MacBook Air M2", record: &models.ProductRecord{
			ID:            "preload_macbookm2",
			Name:          "Apple MacBook Air M2 (13.6-inch, 8GB RAM, 256GB SSD, Midnight)",
			Description:   "Supercharged by M2. Strikingly thin design. Go all day with up to 18 hours of battery life. The big, beautiful Liquid Retina display makes everything look brilliant.",
			ImageURL:      "https://images.unsplash.com/photo-1611186871348-b1ce696e52c9?auto=format&fit=crop&w=800&q=80",
			OverallRating: 4.8,
			ReviewCount:   3200,
			Features:      []string{"M2 Chip", "13.6\" Liquid Retina", "1080p Webcam", "MagSafe Charging"},
			Pros:          []string{"Insane battery life (15-18 hours)", "Silent (No fan)", "Premium build quality", "Great performance for daily tasks"},
			Cons:          []string{"Base model SSD is slower", "Not suitable for heavy 3D rendering", "Only supports 1 external display"},

			SustainabilityScore:  8,
			SustainabilityReason: "Enclosure made with 100% recycled aluminum.",
			PricePrediction:      &models.PricePrediction{Trend: "STABLE", Advice: "BUY_NOW", Confidence: 80},
			Offers: []models.StoreOffer{
				{StoreName: "Amazon", Price: 89900, OriginalPrice: 99900, EffectivePrice: 84900, Offers: []string{"₹5000 SBI Card Off"}, Currency: "INR", Link: "https://www.amazon.in", InStock: true, Rating: 4.8},
				{StoreName: "Croma", Price: 89900, OriginalPrice: 99900, EffectivePrice: 89900, Offers: []string{}, Currency: "INR", Link: "https://www.croma.com", InStock: true, Rating: 4.7},
				{StoreName: "Reliance Digital", Price: 92900, OriginalPrice: 99900, EffectivePrice: 92900, Offers: []string{}, Currency: "INR", Link: "https://www.reliancedigital.in", InStock: true, Rating: 4.5},
			},
			PriceHistory: []models.PricePoint{
				{Date: "Launch", Price: 119900}, {Date: "Jan", Price: 99900}, {Date: "Today", Price: 84900},
			},
			Specs:                 map[string]string{"Processor": "Apple M2", "RAM": "8GB Unified", "Storage": "256GB SSD", "Display": "13.6-inch Liquid Retina"},
			ReturnPolicy:          "No Return (Service Center Only)",
			Accessories:           []models.Accessory{{Name: "USB-C Hub", Type: "Adapter", EstimatedPrice: 2500}, {Name: "Laptop Sleeve", Type: "Case", EstimatedPrice: 1200}},
			UnboxingLink:          "https://www.youtube.com/results?search_query=macbook+air+m2+unboxing",
			IsGSTInvoiceAvailable: true,
			OfflineAvailability:   []string{"Imagine", "iWorld", "Croma"},
		}},
		{key: "PS5 Slim", record: &models.ProductRecord{
			ID:            "preload_ps5slim",
			Name:          "Sony PlayStation 5 Console (Slim Disc Edition)",
			Description:   "Play Like Never Before. The PS5 Digital Edition unleashes new gaming possibilities that you never anticipated. Lightning Fast loading with an ultra-high speed SSD.",
			ImageURL:      "https://images.unsplash.com/photo-1606144042614-b2417e99c4e3?auto=format&fit=crop&w=800&q=80",
			OverallRating: 4.9,
			ReviewCount:   15000,
			Features:      []string{"4K 120Hz", "Haptic Feedback", "Adaptive Triggers", "1TB SSD"},
			Pros:          []string{"Incredible exclusives (Spiderman, GoW)", "DualSense controller is a game changer", "Very fast load times"},
			Cons:          []string{"Games are expensive", "Still quite large despite 'Slim' name"},

			SustainabilityScore:  6,
			SustainabilityReason: "Packaging is recyclable, but console uses mixed plastics.",
			PricePrediction:      &models.PricePrediction{Trend: "DOWN", Advice: "BUY_NOW", Confidence: 90},
			Offers: []models.StoreOffer{
				{StoreName: "Flipkart", Price: 44990, OriginalPrice: 54990, EffectivePrice: 42990, Offers: []string{"₹2000 Bank Offer"}, Currency: "INR", Link: "https://www.flipkart.com", InStock: true, Rating: 4.9},
				{StoreName: "ShopAtSC", Price: 44990, OriginalPrice: 54990, EffectivePrice: 44990, Offers: []string{}, Currency: "INR", Link: "https://shopatsc.com", InStock: true, Rating: 5.0},
				{StoreName: "Amazon", Price: 45990, OriginalPrice: 54990, EffectivePrice: 45990, Offers: []string{}, Currency: "INR", Link: "https://www.amazon.in", InStock: true, Rating: 4.8},
			},
			PriceHistory: []models.PricePoint{
				{Date: "Launch", Price: 54990}, {Date: "Sale", Price: 49990}, {Date: "Today", Price: 42990},
			},
			Specs:                 map[string]string{"Storage": "1TB SSD", "Resolution": "4K TV Gaming", "Frame Rate": "Up to 120fps", "HDR": "Supported"},
			ReturnPolicy:          "No Returns",
			Accessories:           []models.Accessory{{Name: "DualSense Controller", Type: "Controller", EstimatedPrice: 5500}, {Name: "Pulse 3D Headset", Type: "Audio", EstimatedPrice: 7500}},
			UnboxingLink:          "https://www.youtube.com/results?search_query=ps5+slim+unboxing",
			IsGSTInvoiceAvailable: true,
			OfflineAvailability:   []string{"Sony Center", "Games The Shop"},
		}},
		{key: "Nothing Phone (2)", record: &models.ProductRecord{
			ID:            "preload_nothing2",
			Name:          "Nothing Phone (2) (Dark Grey, 12GB RAM, 256GB Storage)",
			Description:   "Come to the bright side. Meet the new Glyph Interface. Love at first light. 50 MP dual camera with Sony IMX890 sensor.",
			ImageURL:      "https://images.unsplash.com/photo-1689246830740-1a773d52367f?auto=format&fit=crop&w=800&q=80",
			OverallRating: 4.4,
			ReviewCount:   6500,
			Features:      []string{"Glyph Interface", "Snapdragon 8+ Gen 1", "Clean Nothing OS", "LTPO OLED"},
			Pros:          []string{"Unique Design with Glyph lights", "Cleanest Android software experience", "Smooth performance"},
			Cons:          []string{"Cameras are good but not flagship level", "Accessories sold separately"},

			SustainabilityScore:  10,
			SustainabilityReason: "Certified carbon neutral. 100% recycled aluminum frame.",
			PricePrediction:      &models.PricePrediction{Trend: "DOWN", Advice: "BUY_NOW", Confidence: 88},
			Offers: []models.StoreOffer{
				{StoreName: "Flipkart", Price: 36999, OriginalPrice: 44999, EffectivePrice: 33999, Offers: []string{"₹3000 Exchange Bonus"}, Currency: "INR", Link: "https://www.flipkart.com", InStock: true, Rating: 4.5},
				{StoreName: "Croma", Price: 36999, OriginalPrice: 44999, EffectivePrice: 36999, Offers: []string{}, Currency: "INR", Link: "https://www.croma.com", InStock: true, Rating: 4.3},
			},
			PriceHistory: []models.PricePoint{
				{Date: "Launch", Price: 44999}, {Date: "Oct", Price: 39999}, {Date: "Today", Price: 33999},
			},
			Specs:                 map[string]string{"Processor": "Snapdragon 8+ Gen 1", "Display": "6.7” LTPO OLED", "Battery": "4700 mAh", "Charging": "45W Wired"},
			ReturnPolicy:          "7 Days Replacement",
			Accessories:           []models.Accessory{{Name: "Nothing Ear (2)", Type: "Audio", EstimatedPrice: 9999}, {Name: "45W Power Adapter", Type: "Charger", EstimatedPrice: 2499}},
			UnboxingLink:          "https://www.youtube.com/results?search_query=nothing+phone+2+unboxing",
			IsGSTInvoiceAvailable: true,
			OfflineAvailability:   []string{"Vijay Sales", "Croma"},
		}},
	}
}
