package resolver

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// ExpiryPolicy decides whether an offer without a real expiry gets a
// synthetic one for display urgency.
type ExpiryPolicy interface {
	Expiry(storeName string, now time.Time) (time.Time, bool)
}

// NoExpiry never synthesizes an expiry.
type NoExpiry struct{}

func (NoExpiry) Expiry(string, time.Time) (time.Time, bool) { return time.Time{}, false }

// RandomExpiry gives Flipkart and Amazon offers a 50% chance of an expiry
// between 2 and 29 whole hours from now.
type RandomExpiry struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomExpiry(src rand.Source) *RandomExpiry {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomExpiry{rng: rand.New(src)}
}

func (r *RandomExpiry) Expiry(storeName string, now time.Time) (time.Time, bool) {
	store := strings.ToLower(storeName)
	if !strings.Contains(store, "flipkart") && !strings.Contains(store, "amazon") {
		return time.Time{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Float64() <= 0.5 {
		return time.Time{}, false
	}
	hours := 2 + r.rng.IntN(28)
	return now.Add(time.Duration(hours) * time.Hour), true
}
