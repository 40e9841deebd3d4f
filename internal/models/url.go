package models

import "time"

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record,
	// assigned by the database at creation.
	ID int64
	// ShortCode is the base62 encoding of ID. It is empty between the two
	// creation phases; such records are never visible to lookups.
	ShortCode string
	// LongURL is the original, full-length URL that the short code points to.
	LongURL string
	// ShortURL is the absolute short URL built from the configured base URL.
	ShortURL string
	// ClickCount tracks the number of times the shortened URL has been resolved.
	ClickCount int64
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// ExpiresAt is the optional expiration timestamp. Nil means the URL
	// never expires.
	ExpiresAt *time.Time
}

// Expired reports whether the URL is past its expiration at the given time.
func (u *URL) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && !u.ExpiresAt.After(now)
}
