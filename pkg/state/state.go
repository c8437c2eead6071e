// Package state holds the user's search history, favorites and stats, read
// once from a Persister and rewritten wholesale on every change.
package state

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"shopsmart/pkg/models"
)

const (
	HistoryKey   = "shopsmart_history"
	FavoritesKey = "shopsmart_favorites"
	StatsKey     = "shopsmart_user_stats"

	MaxHistory = 8
)

// Same shape as JavaScript's Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

type Persister interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

type App struct {
	mu        sync.RWMutex
	store     Persister
	history   []models.HistoryItem
	favorites []models.ProductRecord
	stats     models.UserStats
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*App)

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// Load reads all three records from store. Missing or malformed records fall
// back to their defaults; only store errors are returned.
func Load(store Persister, opts ...Option) (*App, error) {
	a := &App{
		store:     store,
		history:   []models.HistoryItem{},
		favorites: []models.ProductRecord{},
		stats:     models.DefaultUserStats(),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := loadRecord(a, HistoryKey, &a.history); err != nil {
		return nil, err
	}
	if err := loadRecord(a, FavoritesKey, &a.favorites); err != nil {
		return nil, err
	}
	if err := loadRecord(a, StatsKey, &a.stats); err != nil {
		return nil, err
	}
	if a.history == nil {
		a.history = []models.HistoryItem{}
	}
	if a.favorites == nil {
		a.favorites = []models.ProductRecord{}
	}
	return a, nil
}

// loadRecord decodes the record at key over a copy of dst, so a malformed
// record leaves the default in place.
func loadRecord[T any](a *App, key string, dst *T) error {
	data, err := a.store.Load(key)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	v := *dst
	if err := json.Unmarshal(data, &v); err != nil {
		a.discard(key, err)
		return nil
	}
	*dst = v
	return nil
}

func (a *App) discard(key string, err error) {
	a.logger.Debug("discarding stored record", "key", key, "error", err)
}

func (a *App) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := a.store.Save(key, data); err != nil {
		a.logger.Error("failed to persist state", "key", key, "error", err)
		return err
	}
	return nil
}

// AddHistory puts query at the front, dropping any older entry with the same
// text and anything past MaxHistory.
func (a *App) AddHistory(query string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := make([]models.HistoryItem, 0, MaxHistory)
	next = append(next, models.HistoryItem{
		Query: query,
		Date:  a.now().UTC().Format(isoMillis),
	})
	for _, h := range a.history {
		if len(next) == MaxHistory {
			break
		}
		if h.Query != query {
			next = append(next, h)
		}
	}
	a.history = next
	return a.save(HistoryKey, a.history)
}

func (a *App) History() []models.HistoryItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.HistoryItem(nil), a.history...)
}

// ToggleFavorite removes product if a favorite with its id exists and
// prepends it otherwise. It reports whether product is now a favorite.
func (a *App) ToggleFavorite(product *models.ProductRecord) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := make([]models.ProductRecord, 0, len(a.favorites)+1)
	found := false
	for _, f := range a.favorites {
		if f.ID == product.ID {
			found = true
			continue
		}
		next = append(next, f)
	}
	if !found {
		next = append([]models.ProductRecord{*product.Clone()}, next...)
	}
	a.favorites = next
	return !found, a.save(FavoritesKey, a.favorites)
}

func (a *App) IsFavorite(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, f := range a.favorites {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (a *App) Favorites() []models.ProductRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.ProductRecord, len(a.favorites))
	for i := range a.favorites {
		out[i] = *a.favorites[i].Clone()
	}
	return out
}

func (a *App) Stats() models.UserStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// RecordDeal counts one more successfully resolved search.
func (a *App) RecordDeal() error {
	return a.updateStats(func(s *models.UserStats) { s.DealsFound++ })
}

func (a *App) UpgradePremium() error {
	return a.updateStats(func(s *models.UserStats) { s.IsPremium = true })
}

func (a *App) AddReferral() error {
	return a.updateStats(func(s *models.UserStats) { s.Referrals++ })
}

func (a *App) updateStats(fn func(*models.UserStats)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.stats)
	return a.save(StatsKey, a.stats)
}
