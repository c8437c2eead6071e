// Package session runs searches on behalf of a single user. Only the most
// recently started session may change the visible view; results and errors
// from superseded or cancelled sessions are dropped.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shopsmart/pkg/models"
	"shopsmart/pkg/resolver"
)

var ErrVoiceUnsupported = errors.New("voice search not supported")

// DefaultStatusDelays are the offsets from session start at which the
// progress step advances to 1, 2 and 3.
var DefaultStatusDelays = []time.Duration{
	1000 * time.Millisecond,
	2500 * time.Millisecond,
	4500 * time.Millisecond,
}

type Resolver interface {
	Preloaded(query string) (*models.ProductRecord, bool)
	Resolve(ctx context.Context, query string) (*models.ProductRecord, error)
	IdentifyImage(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Verifier refreshes the offers of a resolved record in place and reports
// how many changed.
type Verifier interface {
	Verify(ctx context.Context, p *models.ProductRecord) (int, error)
}

// State receives the side effects of a search.
type State interface {
	AddHistory(query string) error
	RecordDeal() error
}

// View is what the user currently sees. SessionID is zero when no session
// is authoritative.
type View struct {
	SessionID int64                 `json:"sessionId"`
	Searching bool                  `json:"searching"`
	Step      int                   `json:"step"`
	Query     string                `json:"query"`
	Result    *models.ProductRecord `json:"result"`
	Error     string                `json:"error,omitempty"`

	Err error `json:"-"`
}

type Controller struct {
	resolver Resolver
	state    State
	now      func() time.Time
	delays   []time.Duration
	logger   *slog.Logger
	verifier Verifier

	mu      sync.Mutex
	lastID  int64
	current int64
	cancel  context.CancelFunc
	view    View

	wg sync.WaitGroup
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithStatusDelays replaces DefaultStatusDelays. Offsets must be ascending.
func WithStatusDelays(d ...time.Duration) Option {
	return func(c *Controller) { c.delays = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithVerifier checks AI-resolved results against the live store pages
// before they reach the view. Preloaded matches are not verified.
func WithVerifier(v Verifier) Option {
	return func(c *Controller) { c.verifier = v }
}

func New(r Resolver, s State, opts ...Option) *Controller {
	c := &Controller{
		resolver: r,
		state:    s,
		now:      time.Now,
		delays:   DefaultStatusDelays,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a text search and returns its session id. A preloaded match
// is applied before Start returns; anything else resolves in the background.
func (c *Controller) Start(query string) (int64, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return 0, resolver.ErrEmptyQuery
	}

	id, ctx := c.begin(q)
	if c.applyPreloaded(id, q) {
		return id, nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.search(ctx, id, q)
	}()
	return id, nil
}

// StartImage identifies the product in image and then searches for it under
// the same session id.
func (c *Controller) StartImage(image []byte, mimeType string) (int64, error) {
	id, ctx := c.begin("")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		q, err := c.resolver.IdentifyImage(ctx, image, mimeType)
		if err != nil {
			c.complete(id, nil, err)
			return
		}

		c.mu.Lock()
		if c.current != id {
			c.mu.Unlock()
			c.logger.Debug("dropping identification for stale session", "session", id, "query", q)
			return
		}
		c.view.Query = q
		c.mu.Unlock()

		if c.applyPreloaded(id, q) {
			return
		}
		c.search(ctx, id, q)
	}()
	return id, nil
}

// StartVoice searches for a recognized transcript. An empty transcript means
// recognition is unavailable.
func (c *Controller) StartVoice(transcript string) (int64, error) {
	if strings.TrimSpace(transcript) == "" {
		return 0, ErrVoiceUnsupported
	}
	return c.Start(transcript)
}

// StartBarcode simulates a scan. Unknown codes scan as DefaultBarcodeProduct.
func (c *Controller) StartBarcode(code string) (int64, error) {
	return c.Start(LookupBarcode(code))
}

// Cancel invalidates the current session. It reports whether one was active.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == 0 {
		return false
	}
	c.logger.Info("search cancelled", "session", c.current)
	c.cancel()
	c.current = 0
	c.cancel = nil
	c.view.SessionID = 0
	c.view.Searching = false
	c.view.Step = 0
	return true
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	if v.Result != nil {
		v.Result = v.Result.Clone()
	}
	return v
}

// Wait blocks until every background step has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels the current session and waits for background work.
func (c *Controller) Close() {
	c.Cancel()
	c.Wait()
}

func (c *Controller) begin(query string) (int64, context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.now().UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id

	if c.cancel != nil {
		c.logger.Debug("superseding session", "session", c.current, "by", id)
		c.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.current = id
	c.cancel = cancel
	c.view = View{SessionID: id, Searching: true, Query: query}
	return id, ctx
}

func (c *Controller) applyPreloaded(id int64, query string) bool {
	p, ok := c.resolver.Preloaded(query)
	if !ok {
		return false
	}

	c.mu.Lock()
	if c.current == id {
		c.view.Result = p
		c.settle()
	}
	c.mu.Unlock()

	c.addHistory(query)
	return true
}

func (c *Controller) search(ctx context.Context, id int64, query string) {
	c.addHistory(query)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.tick(ctx, id)
	}()

	p, err := c.resolver.Resolve(ctx, query)
	if err == nil && c.verifier != nil {
		n, verr := c.verifier.Verify(ctx, p)
		if verr != nil {
			c.logger.Warn("verification interrupted", "session", id, "product", p.ID, "error", verr)
		} else if n > 0 {
			c.logger.Info("offers refreshed", "session", id, "product", p.ID, "refreshed", n)
		}
	}
	c.complete(id, p, err)
}

func (c *Controller) tick(ctx context.Context, id int64) {
	var elapsed time.Duration
	for i, at := range c.delays {
		t := time.NewTimer(at - elapsed)
		elapsed = at

		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		c.mu.Lock()
		if c.current == id && c.view.Searching {
			c.view.Step = i + 1
		}
		c.mu.Unlock()
	}
}

func (c *Controller) complete(id int64, p *models.ProductRecord, err error) {
	c.mu.Lock()
	if c.current != id {
		c.mu.Unlock()
		c.logger.Debug("dropping outcome of stale session", "session", id, "error", err)
		return
	}

	if err != nil {
		c.view.Err = err
		c.view.Error = resolver.UserMessage(err)
		c.settle()
		c.mu.Unlock()
		return
	}

	c.view.Result = p
	c.settle()
	c.mu.Unlock()

	if err := c.state.RecordDeal(); err != nil {
		c.logger.Warn("failed to record deal", "session", id, "error", err)
	}
}

// settle ends the loading phase of the current session. The id stays
// current so the view keeps its result. Caller holds c.mu.
func (c *Controller) settle() {
	c.view.Searching = false
	c.view.Step = 0
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Controller) addHistory(query string) {
	if err := c.state.AddHistory(query); err != nil {
		c.logger.Warn("failed to record history", "query", query, "error", err)
	}
}
