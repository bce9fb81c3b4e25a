// Package settings is the shop's key-value configuration store (VAT rate,
// shop identity, notification kill-switches). Values live in Postgres and
// are served through a short-lived redis cache so hot keys like vat_rate do
// not hit the database on every document issue.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the key has no stored value.
var ErrNotFound = errors.New("settings: not found")

// Setting is one configuration record.
type Setting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Store reads and writes settings.
type Store struct {
	pool   *pgxpool.Pool
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore constructs a store. cache may be nil; reads then always go to
// Postgres.
func NewStore(pool *pgxpool.Pool, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{pool: pool, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(key string) string {
	return "settings:" + key
}

// Get returns the value for key, or def when the key is absent. Cache
// failures degrade to a database read, never to an error.
func (s *Store) Get(ctx context.Context, key, def string) string {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, cacheKey(key)).Result(); err == nil {
			return val
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("settings cache read", slog.String("key", key), slog.Any("error", err))
		}
	}

	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("settings read", slog.String("key", key), slog.Any("error", err))
		}
		return def
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(key), value, s.ttl).Err(); err != nil {
			s.logger.Warn("settings cache write", slog.String("key", key), slog.Any("error", err))
		}
	}
	return value
}

// GetDecimal parses the value as a decimal, falling back to def on missing
// or malformed values.
func (s *Store) GetDecimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal {
	raw := s.Get(ctx, key, "")
	if raw == "" {
		return def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		s.logger.Warn("settings decimal parse", slog.String("key", key), slog.String("value", raw))
		return def
	}
	return d
}

// GetInt parses the value as an integer with a default.
func (s *Store) GetInt(ctx context.Context, key string, def int) int {
	raw := s.Get(ctx, key, "")
	if raw == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return def
	}
	return n
}

// Enabled treats the value "1" as on; anything else (including absence) is off.
func (s *Store) Enabled(ctx context.Context, key string) bool {
	return s.Get(ctx, key, "0") == "1"
}

// Set upserts a value and invalidates the cache entry.
func (s *Store) Set(ctx context.Context, key, value, description string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description`,
		key, value, description)
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey(key)).Err(); err != nil {
			s.logger.Warn("settings cache invalidate", slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}

// List returns every setting, for the back-office screen.
func (s *Store) List(ctx context.Context) ([]Setting, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value, description FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.Description); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
