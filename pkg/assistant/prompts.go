package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"shopsmart/pkg/models"
)

const IdentifyImagePrompt = "Analyze this image. Identify the exact product name, brand, model number, and specific variant or color. Return a precise search query string optimized for finding this exact item on Indian e-commerce sites."

// SearchPrompt asks for one JSON object shaped like models.ProductRecord.
func SearchPrompt(query string) string {
	return fmt.Sprintf(`You are an intelligent shopping assistant for the Indian market.

USER QUERY: %q

Perform a deep market analysis.

TASKS:
1. Identify Product: fuzzy match the query to the exact Indian market model.
2. Prices: find listed prices on Amazon.in, Flipkart, Croma, etc.
3. Effective Price: calculate prices after bank offers (HDFC/SBI/Axis) and SuperCoins.
4. Reviews: analyze reviews to generate PROS and CONS.
5. Sustainability: estimate an eco-score (1-10).
6. Prediction: predict if the price will drop (BUY_NOW/WAIT).
7. Extras: identify compatible accessories, coupons, GST invoice availability, and offline store availability.

OUTPUT FORMAT: SINGLE VALID JSON.
%s`, query, productTemplate)
}

const productTemplate = `{
  "refinedQuery": "Corrected Product Name",
  "id": "generate_unique_id",
  "name": "Full Product Title",
  "description": "Short compelling description.",
  "imageUrl": "Product Image URL",
  "overallRating": 4.5,
  "reviewCount": 1200,
  "features": ["Key Feature 1", "Key Feature 2"],
  "pros": ["Great Battery", "Vibrant Display"],
  "cons": ["Slow Charging", "Bloatware"],
  "sustainabilityScore": 7,
  "sustainabilityReason": "Recycled aluminum body.",
  "pricePrediction": { "trend": "DOWN", "advice": "WAIT", "confidence": 80 },
  "offers": [
    {
      "storeName": "Flipkart",
      "price": 15000,
      "originalPrice": 19999,
      "effectivePrice": 13500,
      "offers": ["10% HDFC Bank Off", "Use SuperCoins"],
      "currency": "INR",
      "link": null,
      "inStock": true,
      "rating": 4.5,
      "offerExpiry": "2023-10-27T10:00:00Z"
    }
  ],
  "priceHistory": [
    { "date": "Month-1", "price": 16000 },
    { "date": "Current", "price": 15000 }
  ],
  "alternatives": [
    { "name": "Competitor Model", "price": 13999, "reason": "Better Value" }
  ],
  "coupons": [ { "code": "NEWUSER", "description": "₹500 off for new users" } ],
  "specs": { "Processor": "Snapdragon...", "Warranty": "1 Year" },
  "returnPolicy": "7 Days Replacement",
  "accessories": [
    { "name": "Back Cover Case", "type": "Case", "estimatedPrice": 499 }
  ],
  "unboxingLink": "https://www.youtube.com/results?search_query=unboxing+QUERY",
  "isGstInvoiceAvailable": true,
  "offlineAvailability": ["Croma", "Reliance Digital"]
}`

// ChatContext is the system message grounding the assistant on one product.
func ChatContext(p *models.ProductRecord, bestPrice float64) string {
	specs, err := json.Marshal(p.Specs)
	if err != nil || p.Specs == nil {
		specs = []byte("{}")
	}
	pros, cons := "Not analyzed yet", "Not analyzed yet"
	if len(p.Pros) > 0 {
		pros = strings.Join(p.Pros, ", ")
	}
	if len(p.Cons) > 0 {
		cons = strings.Join(p.Cons, ", ")
	}

	return fmt.Sprintf(`You are a helpful shopping assistant expert on Indian e-commerce.
The user is asking about this specific product:

Product: %s
Description: %s
Current Best Price: ₹%.0f
Overall Rating: %.1f/5 (%d reviews)

Key Specs: %s

Identified Pros: %s
Identified Cons: %s

Goal: Answer the user's specific question based on these details.
If the question is about gaming performance, check the processor in specs.
If the question is about battery, check battery specs and pros/cons.
Keep answers concise, friendly, and helpful. Use Indian context (Lakhs, Rupees) where appropriate.`,
		p.Name, p.Description, bestPrice, p.OverallRating, p.ReviewCount, specs, pros, cons)
}
