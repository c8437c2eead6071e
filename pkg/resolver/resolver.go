// Package resolver turns a user query into a sanitized product record, from
// the preloaded dataset when possible and from the AI service otherwise.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopsmart/pkg/affiliate"
	"shopsmart/pkg/assistant"
	"shopsmart/pkg/logger"
	"shopsmart/pkg/models"
	"shopsmart/pkg/preload"
)

const chatFallback = "I'm having a bit of trouble connecting to the product brain right now. Please try again in a moment."

// ResponseCache stores AI-resolved records by normalized query.
type ResponseCache interface {
	Get(query string) (*models.ProductRecord, bool)
	Set(query string, product *models.ProductRecord)
}

type Resolver struct {
	ai     assistant.Completer
	links  *affiliate.Rewriter
	cache  ResponseCache
	expiry ExpiryPolicy
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type Option func(*Resolver)

func WithCache(c ResponseCache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithExpiryPolicy replaces the random offer expiry synthesizer.
func WithExpiryPolicy(p ExpiryPolicy) Option {
	return func(r *Resolver) { r.expiry = p }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(r *Resolver) { r.newID = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func New(ai assistant.Completer, links *affiliate.Rewriter, opts ...Option) *Resolver {
	r := &Resolver{
		ai:     ai,
		links:  links,
		expiry: NewRandomExpiry(nil),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.links == nil {
		r.links = &affiliate.Rewriter{}
	}
	if r.newID == nil {
		r.newID = func() string { return newProductID(r.now()) }
	}
	return r
}

// Preloaded checks only the static dataset.
func (r *Resolver) Preloaded(query string) (*models.ProductRecord, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, false
	}
	return preload.Lookup(q)
}

// Resolve makes at most one AI request. Failures are *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, query string) (*models.ProductRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	if p, ok := preload.Lookup(q); ok {
		logger.Dedup("Serving %q from preloaded cache", q)
		return p, nil
	}

	key := strings.ToLower(q)
	if r.cache != nil {
		if p, ok := r.cache.Get(key); ok {
			logger.Dedup("Cache hit for %q", key)
			return p, nil
		}
	}

	out, err := r.ai.Complete(ctx, assistant.SearchPrompt(q), nil)
	if err != nil {
		r.logger.Error("search request failed", "query", q, "error", err)
		return nil, &ResolutionError{Kind: TransportFailure, Err: err}
	}

	data, err := ExtractJSON(out)
	if err != nil {
		r.logger.Warn("unparsable AI response", "query", q, "error", err)
		return nil, &ResolutionError{Kind: MalformedResponse, Err: err}
	}

	p, err := r.sanitize(data)
	if err != nil {
		r.logger.Warn("invalid product data", "query", q, "error", err)
		return nil, &ResolutionError{Kind: MalformedResponse, Err: err}
	}

	if r.cache != nil {
		r.cache.Set(key, p)
	}
	return p, nil
}

// IdentifyImage asks the vision model for a search query describing image.
func (r *Resolver) IdentifyImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", &ResolutionError{Kind: ImageIdentificationFailure, Err: errors.New("empty image")}
	}
	out, err := r.ai.Complete(ctx, assistant.IdentifyImagePrompt, &assistant.Image{Data: image, MIMEType: mimeType})
	if err != nil {
		r.logger.Error("image identification failed", "error", err)
		return "", &ResolutionError{Kind: ImageIdentificationFailure, Err: err}
	}
	query := strings.TrimSpace(out)
	if query == "" {
		return "", &ResolutionError{Kind: ImageIdentificationFailure, Err: errors.New("empty identification")}
	}
	return query, nil
}

// Chat answers a question about product. Service failures produce a fixed
// apology instead of an error.
func (r *Resolver) Chat(ctx context.Context, product *models.ProductRecord, history []models.ChatMessage, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	if product == nil {
		return "", fmt.Errorf("chat: %w", models.ErrProductNotFound)
	}

	var best float64
	if s, err := models.Summarize(product); err == nil {
		best = s.BestPrice
	}

	answer, err := r.ai.Chat(ctx, assistant.ChatContext(product, best), history, question)
	if err != nil {
		r.logger.Error("chat failed", "product", product.ID, "error", err)
		return chatFallback, nil
	}
	return answer, nil
}

func newProductID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("prod_%d_%s", now.UnixMilli(), suffix)
}
