package cache

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"shopsmart/pkg/models"
)

// Cache keeps AI-resolved product records in sqlite so repeated queries do
// not hit the AI service until the entry is older than ttl.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS resolved_products (
			query TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			resolved_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) Get(query string) (*models.ProductRecord, bool) {
	var data string
	var resolvedAt int64

	err := c.db.QueryRow(
		`SELECT data, resolved_at FROM resolved_products WHERE query = ?`,
		query,
	).Scan(&data, &resolvedAt)

	if err != nil {
		return nil, false
	}

	if c.now().Sub(time.UnixMilli(resolvedAt)) > c.ttl {
		return nil, false
	}

	var product models.ProductRecord
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		slog.Warn("cache: failed to unmarshal product", "query", query, "error", err)
		return nil, false
	}
	dropLapsedExpiries(&product, c.now())

	return &product, true
}

// dropLapsedExpiries clears offer expiries that passed while the record sat
// in the cache.
func dropLapsedExpiries(p *models.ProductRecord, now time.Time) {
	for i := range p.Offers {
		exp, err := time.Parse(time.RFC3339, p.Offers[i].OfferExpiry)
		if err == nil && !exp.After(now) {
			p.Offers[i].OfferExpiry = ""
		}
	}
}

func (c *Cache) Set(query string, product *models.ProductRecord) {
	data, err := json.Marshal(product)
	if err != nil {
		slog.Warn("cache: failed to marshal product", "query", query, "error", err)
		return
	}

	_, err = c.db.Exec(
		`INSERT INTO resolved_products (query, data, resolved_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(query)
		 DO UPDATE SET data = excluded.data, resolved_at = excluded.resolved_at`,
		query, string(data), c.now().UnixMilli(),
	)
	if err != nil {
		slog.Warn("cache: failed to store product", "query", query, "error", err)
	}
}

// Purge deletes entries older than the TTL and returns how many were removed.
func (c *Cache) Purge() (int64, error) {
	res, err := c.db.Exec(`DELETE FROM resolved_products WHERE resolved_at < ?`, c.now().Add(-c.ttl).UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Cache) Close() error {
	return c.db.Close()
}
