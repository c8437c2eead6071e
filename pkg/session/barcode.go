package session

import "strings"

// DefaultBarcodeProduct is what the scanner simulation finds for codes it
// does not know.
const DefaultBarcodeProduct = "OnePlus 12R"

var barcodes = map[string]string{
	"0194253401155": "iPhone 15 Pro",
	"8806095299600": "Samsung Galaxy S24 Ultra",
	"4548736132610": "Sony WH-1000XM5",
	"0194253082385": "MacBook Air M2",
	"6921815625421": "OnePlus 12R",
}

// LookupBarcode maps a scanned code to a search query.
func LookupBarcode(code string) string {
	if q, ok := barcodes[strings.TrimSpace(code)]; ok {
		return q
	}
	return DefaultBarcodeProduct
}
