// Package affiliate rewrites outbound store links into monetized links.
package affiliate

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	placeholderDomain = "example.com"
	minURLLength      = 15
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

type retailer struct {
	match  string
	search func(encodedName string) string
}

// retailers is scanned in order; the first match wins.
var retailers = []retailer{
	{"amazon", func(n string) string { return "https://www.amazon.in/s?k=" + n }},
	{"flipkart", func(n string) string { return "https://www.flipkart.com/search?q=" + n }},
	{"croma", func(n string) string { return "https://www.croma.com/search/?text=" + n }},
	{"reliance", func(n string) string { return "https://www.reliancedigital.in/search?q=" + n }},
	{"jiomart", func(n string) string { return "https://www.jiomart.com/search/" + n }},
	{"ajio", func(n string) string { return "https://www.ajio.com/search/?text=" + n }},
	{"myntra", func(n string) string { return "https://www.myntra.com/" + n }},
}

// Rewriter holds the monetization identifiers. Empty fields disable the
// corresponding branch.
type Rewriter struct {
	AmazonTag        string
	FlipkartID       string
	AggregatorPrefix string
}

func New(amazonTag, flipkartID, aggregatorPrefix string) *Rewriter {
	return &Rewriter{
		AmazonTag:        amazonTag,
		FlipkartID:       flipkartID,
		AggregatorPrefix: aggregatorPrefix,
	}
}

// Rewrite always returns a usable link: invalid input links are replaced with
// a store search for productName before monetization is applied.
func (r *Rewriter) Rewrite(link, storeName, productName string) string {
	store := normalizeStore(storeName)

	target := link
	if !IsValidLink(link) {
		target = searchLink(store, storeName, productName)
	}

	switch {
	case strings.Contains(store, "amazon") && r.AmazonTag != "":
		return appendParam(target, "tag", r.AmazonTag)
	case strings.Contains(store, "flipkart") && r.FlipkartID != "":
		return appendParam(target, "affid", r.FlipkartID)
	case r.AggregatorPrefix != "":
		return r.AggregatorPrefix + url.QueryEscape(target)
	}
	return target
}

// IsValidLink reports whether link looks like a real product page.
func IsValidLink(link string) bool {
	return link != "" &&
		strings.HasPrefix(link, "http") &&
		!strings.Contains(link, placeholderDomain) &&
		len(link) > minURLLength
}

func normalizeStore(storeName string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(storeName), "")
}

func searchLink(store, storeName, productName string) string {
	name := encodeComponent(productName)
	for _, r := range retailers {
		if strings.Contains(store, r.match) {
			return r.search(name)
		}
	}
	return "https://www.google.com/search?q=" + name + "+" + storeName + "+buy+online+india"
}

// appendParam adds key=value unless the link already carries that exact pair.
func appendParam(link, key, value string) string {
	if u, err := url.Parse(link); err == nil {
		for _, v := range u.Query()[key] {
			if v == value {
				return link
			}
		}
	}
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	return link + sep + key + "=" + value
}

// encodeComponent mirrors encodeURIComponent: spaces become %20, not +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
