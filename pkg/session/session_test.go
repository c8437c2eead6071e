package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shopsmart/pkg/models"
	"shopsmart/pkg/resolver"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type outcome struct {
	product *models.ProductRecord
	err     error
}

// fakeResolver blocks each Resolve until the test releases its query. It
// ignores ctx so stale completions really do arrive.
type fakeResolver struct {
	mu        sync.Mutex
	preloaded map[string]*models.ProductRecord
	pending   map[string]chan outcome
	identify  outcome
	queries   []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		preloaded: map[string]*models.ProductRecord{},
		pending:   map[string]chan outcome{},
	}
}

func (f *fakeResolver) ch(query string) chan outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.pending[query]
	if !ok {
		c = make(chan outcome, 1)
		f.pending[query] = c
	}
	return c
}

func (f *fakeResolver) release(query string, p *models.ProductRecord, err error) {
	f.ch(query) <- outcome{product: p, err: err}
}

func (f *fakeResolver) Preloaded(query string) (*models.ProductRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.preloaded[query]
	if ok {
		return p.Clone(), true
	}
	return nil, false
}

func (f *fakeResolver) Resolve(_ context.Context, query string) (*models.ProductRecord, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	o := <-f.ch(query)
	return o.product, o.err
}

func (f *fakeResolver) IdentifyImage(_ context.Context, image []byte, _ string) (string, error) {
	if len(image) == 0 {
		return "", &resolver.ResolutionError{Kind: resolver.ImageIdentificationFailure}
	}
	if f.identify.err != nil {
		return "", f.identify.err
	}
	return f.identify.product.Name, nil
}

type fakeState struct {
	mu      sync.Mutex
	history []string
	deals   int
}

func (s *fakeState) AddHistory(q string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, q)
	return nil
}

func (s *fakeState) RecordDeal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals++
	return nil
}

func (s *fakeState) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...), s.deals
}

func newController(r Resolver, s State, opts ...Option) *Controller {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithStatusDelays(),
	}
	return New(r, s, append(base, opts...)...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func product(id string) *models.ProductRecord {
	return &models.ProductRecord{
		ID:     id,
		Name:   id,
		Offers: []models.StoreOffer{{StoreName: "Amazon", Price: 100, EffectivePrice: 90}},
	}
}

func TestStartPreloadedIsSynchronous(t *testing.T) {
	r := newFakeResolver()
	r.preloaded["iphone"] = product("preload_iphone15pro")
	s := &fakeState{}
	c := newController(r, s)

	id, err := c.Start("  iphone ")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	v := c.Snapshot()
	if v.SessionID != id || v.Searching || v.Result == nil || v.Result.ID != "preload_iphone15pro" {
		t.Fatalf("Snapshot = %+v", v)
	}
	history, deals := s.snapshot()
	if len(history) != 1 || history[0] != "iphone" {
		t.Errorf("history = %v", history)
	}
	if deals != 0 {
		t.Errorf("deals = %d, preloaded hits are not counted", deals)
	}
	if len(r.queries) != 0 {
		t.Errorf("resolver called for preloaded query: %v", r.queries)
	}
}

func TestSameTickIDsAreMonotonic(t *testing.T) {
	c := newController(newFakeResolver(), &fakeState{})
	defer c.Cancel()

	var last int64
	for i := 0; i < 3; i++ {
		id, _ := c.begin("")
		if i == 0 && id != testNow.UnixMilli() {
			t.Errorf("first id = %d, want %d", id, testNow.UnixMilli())
		}
		if id <= last {
			t.Errorf("id %d not greater than %d", id, last)
		}
		last = id
	}
}

func TestOverlappingSessionsLastStartedWins(t *testing.T) {
	tests := []struct {
		name       string
		newerFirst bool
	}{
		{name: "older completes first"},
		{name: "newer completes first", newerFirst: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeResolver()
			s := &fakeState{}
			c := newController(r, s)

			s1, _ := c.Start("pixel 8")
			s2, _ := c.Start("galaxy s23")
			if s2 <= s1 {
				t.Fatalf("ids not increasing: %d then %d", s1, s2)
			}

			if tt.newerFirst {
				r.release("galaxy s23", product("s23"), nil)
				waitFor(t, func() bool { return c.Snapshot().Result != nil })
				r.release("pixel 8", product("pixel"), nil)
			} else {
				r.release("pixel 8", product("pixel"), nil)
				r.release("galaxy s23", product("s23"), nil)
			}
			c.Wait()

			v := c.Snapshot()
			if v.SessionID != s2 || v.Result == nil || v.Result.ID != "s23" {
				t.Errorf("Snapshot = %+v, want result of session %d", v, s2)
			}
			if _, deals := s.snapshot(); deals != 1 {
				t.Errorf("deals = %d, want 1", deals)
			}
		})
	}
}

func TestStaleErrorIsSuppressed(t *testing.T) {
	r := newFakeResolver()
	c := newController(r, &fakeState{})

	c.Start("pixel 8")
	c.Start("galaxy s23")
	r.release("pixel 8", nil, &resolver.ResolutionError{Kind: resolver.TransportFailure})
	r.release("galaxy s23", product("s23"), nil)
	c.Wait()

	v := c.Snapshot()
	if v.Error != "" || v.Err != nil {
		t.Errorf("stale error leaked: %+v", v)
	}
}

func TestCancelSuppressesOutcome(t *testing.T) {
	tests := []struct {
		name string
		p    *models.ProductRecord
		err  error
	}{
		{name: "result", p: product("late")},
		{name: "error", err: &resolver.ResolutionError{Kind: resolver.MalformedResponse}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeResolver()
			s := &fakeState{}
			c := newController(r, s)

			c.Start("pixel 8")
			if !c.Cancel() {
				t.Fatal("Cancel reported no active session")
			}
			if c.Cancel() {
				t.Error("second Cancel should report nothing to cancel")
			}

			r.release("pixel 8", tt.p, tt.err)
			c.Wait()

			v := c.Snapshot()
			if v.SessionID != 0 || v.Searching || v.Step != 0 || v.Result != nil || v.Error != "" {
				t.Errorf("Snapshot = %+v", v)
			}
			if _, deals := s.snapshot(); deals != 0 {
				t.Errorf("deals = %d, want 0", deals)
			}
		})
	}
}

func TestFailureIsShown(t *testing.T) {
	r := newFakeResolver()
	c := newController(r, &fakeState{})

	c.Start("pixel 8")
	r.release("pixel 8", nil, &resolver.ResolutionError{Kind: resolver.TransportFailure, Err: errors.New("dial tcp")})
	c.Wait()

	v := c.Snapshot()
	if v.Searching || v.Result != nil {
		t.Errorf("Snapshot = %+v", v)
	}
	if v.Error != "Unable to retrieve live prices. Please check your connection." {
		t.Errorf("Error = %q", v.Error)
	}
	if !errors.Is(v.Err, resolver.ErrTransportFailure) {
		t.Errorf("Err = %v, want transport failure", v.Err)
	}
}

func TestStatusSteps(t *testing.T) {
	r := newFakeResolver()
	c := newController(r, &fakeState{}, WithStatusDelays(time.Millisecond, 2*time.Millisecond, 3*time.Millisecond))

	c.Start("pixel 8")
	waitFor(t, func() bool { return c.Snapshot().Step == 3 })

	r.release("pixel 8", product("pixel"), nil)
	c.Wait()

	if v := c.Snapshot(); v.Step != 0 || v.Searching {
		t.Errorf("Snapshot = %+v", v)
	}
}

func TestStartImage(t *testing.T) {
	r := newFakeResolver()
	r.preloaded["Sony WH-1000XM5"] = product("preload_sonyxm5")
	r.identify = outcome{product: &models.ProductRecord{Name: "Sony WH-1000XM5"}}
	s := &fakeState{}
	c := newController(r, s)

	id, err := c.StartImage([]byte{0xff, 0xd8}, "image/jpeg")
	if err != nil {
		t.Fatalf("StartImage: %v", err)
	}
	c.Wait()

	v := c.Snapshot()
	if v.SessionID != id || v.Query != "Sony WH-1000XM5" || v.Result == nil || v.Result.ID != "preload_sonyxm5" {
		t.Errorf("Snapshot = %+v", v)
	}
	if history, _ := s.snapshot(); len(history) != 1 || history[0] != "Sony WH-1000XM5" {
		t.Errorf("history = %v", history)
	}
}

func TestStartImageFailure(t *testing.T) {
	c := newController(newFakeResolver(), &fakeState{})

	c.StartImage(nil, "image/png")
	c.Wait()

	v := c.Snapshot()
	if v.Error != "Could not identify image. Please try again." || v.Searching {
		t.Errorf("Snapshot = %+v", v)
	}
}

func TestStartValidation(t *testing.T) {
	c := newController(newFakeResolver(), &fakeState{})

	if _, err := c.Start("   "); !errors.Is(err, resolver.ErrEmptyQuery) {
		t.Errorf("Start(blank) error = %v", err)
	}
	if _, err := c.StartVoice(""); !errors.Is(err, ErrVoiceUnsupported) {
		t.Errorf("StartVoice(\"\") error = %v", err)
	}
	if v := c.Snapshot(); v.SessionID != 0 || v.Searching {
		t.Errorf("rejected input started a session: %+v", v)
	}
}

func TestStartBarcode(t *testing.T) {
	r := newFakeResolver()
	r.preloaded["OnePlus 12R"] = product("oneplus")
	r.preloaded["iPhone 15 Pro"] = product("iphone")
	c := newController(r, &fakeState{})

	c.StartBarcode("not-a-code")
	if v := c.Snapshot(); v.Query != DefaultBarcodeProduct || v.Result.ID != "oneplus" {
		t.Errorf("unknown code Snapshot = %+v", v)
	}

	c.StartBarcode("0194253401155")
	if v := c.Snapshot(); v.Query != "iPhone 15 Pro" || v.Result.ID != "iphone" {
		t.Errorf("known code Snapshot = %+v", v)
	}
}

type fakeVerifier struct {
	mu    sync.Mutex
	price float64
	err   error
	seen  []string
}

func (f *fakeVerifier) Verify(_ context.Context, p *models.ProductRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, p.ID)
	if f.err != nil {
		return 0, f.err
	}
	for i := range p.Offers {
		p.Offers[i].Price = f.price
	}
	return len(p.Offers), nil
}

func TestVerifierRefreshesResolvedResult(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantPrice float64
	}{
		{name: "refreshed", wantPrice: 80},
		{name: "verification fails", err: context.DeadlineExceeded, wantPrice: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeResolver()
			r.preloaded["iphone"] = product("preload_iphone15pro")
			v := &fakeVerifier{price: 80, err: tt.err}
			c := newController(r, &fakeState{}, WithVerifier(v))

			c.Start("iphone")
			c.Start("pixel 8")
			r.release("pixel 8", product("pixel"), nil)
			c.Wait()

			got := c.Snapshot()
			if got.Result == nil || got.Result.ID != "pixel" {
				t.Fatalf("Snapshot = %+v", got)
			}
			if price := got.Result.Offers[0].Price; price != tt.wantPrice {
				t.Errorf("price = %v, want %v", price, tt.wantPrice)
			}
			if len(v.seen) != 1 || v.seen[0] != "pixel" {
				t.Errorf("verified %v, want only the resolved result", v.seen)
			}
		})
	}
}
