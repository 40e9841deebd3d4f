// Package cache implements the Redis-backed redirect cache sitting in front
// of the urls table on the hot resolution path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss is returned when no usable entry exists for a key.
	// Corrupted entries are evicted and reported as misses.
	ErrCacheMiss = errors.New("cache miss")
	// ErrEntryExpired is returned by Set when the entry's remaining
	// lifetime is already gone at population time.
	ErrEntryExpired = errors.New("cache entry expired")
)

// Client is the narrow command surface the cache and the rate limiter need
// from Redis. Keeping it an interface allows substituting a fake in tests.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

const redirectKeyPrefix = "url:code:"

// Entry is the cached view of a URL record. ExpiresAt is stored as an
// absolute timestamp, never a remaining duration, so the expiry check stays
// correct however long the entry sits in the cache.
type Entry struct {
	LongURL   string     `json:"long_url"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its logical expiration.
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// RedirectCache stores short-code to long-URL entries with a bounded TTL.
type RedirectCache struct {
	client Client
	maxTTL time.Duration
}

func NewRedirectCache(client Client, maxTTL time.Duration) *RedirectCache {
	return &RedirectCache{
		client: client,
		maxTTL: maxTTL,
	}
}

// Get retrieves the entry for a short code. A structurally invalid payload
// is evicted and reported as ErrCacheMiss rather than a decode failure.
func (c *RedirectCache) Get(ctx context.Context, shortCode string) (*Entry, error) {
	const op = "cache.RedirectCache.Get"

	key := redirectKeyPrefix + shortCode

	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, fmt.Errorf("%s: %w", op, ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get cache entry: %w", op, err)
	}

	entry := new(Entry)
	if err := json.Unmarshal([]byte(raw), entry); err != nil {
		_ = c.client.Del(ctx, key)
		return nil, fmt.Errorf("%s: %w", op, ErrCacheMiss)
	}

	return entry, nil
}

// Set stores an entry under the short code. The physical TTL never exceeds
// the entry's remaining time-to-expiry, so an entry cannot outlive its
// record's logical expiration. Returns ErrEntryExpired when no lifetime
// remains.
func (c *RedirectCache) Set(ctx context.Context, shortCode string, entry Entry) error {
	const op = "cache.RedirectCache.Set"

	ttl := c.maxTTL
	if entry.ExpiresAt != nil {
		remaining := time.Until(*entry.ExpiresAt)
		if remaining <= 0 {
			return fmt.Errorf("%s: %w", op, ErrEntryExpired)
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal cache entry: %w", op, err)
	}

	if err := c.client.Set(ctx, redirectKeyPrefix+shortCode, string(data), ttl); err != nil {
		return fmt.Errorf("%s: failed to set cache entry: %w", op, err)
	}

	return nil
}

// Delete evicts the entry for a short code, if any.
func (c *RedirectCache) Delete(ctx context.Context, shortCode string) error {
	const op = "cache.RedirectCache.Delete"

	if err := c.client.Del(ctx, redirectKeyPrefix+shortCode); err != nil {
		return fmt.Errorf("%s: failed to delete cache entry: %w", op, err)
	}

	return nil
}
