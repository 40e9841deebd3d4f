// Package service contains the URL shortening business logic: creation,
// redirect resolution through the cache, and the details lookup.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/vadimbarashkov/shortly/internal/cache"
	"github.com/vadimbarashkov/shortly/internal/models"
	"github.com/vadimbarashkov/shortly/pkg/base62"
)

var (
	// ErrInvalidURL is returned when the submitted URL is not a well-formed
	// absolute URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidExpiry is returned when expiresInDays is not a finite
	// positive number.
	ErrInvalidExpiry = errors.New("invalid expiry")
	// ErrURLExpired is returned when a record or cache entry is past its
	// expiration. Expiration is monotonic: once expired, always expired.
	ErrURLExpired = errors.New("url expired")
)

// URLRepository defines the interface for working with URL records at the
// business logic layer.
type URLRepository interface {
	// Create inserts a record without a short code and returns it with the
	// assigned id.
	Create(ctx context.Context, longURL string, expiresAt *time.Time) (*models.URL, error)

	// SetShortCode stores the short code derived from the record id.
	SetShortCode(ctx context.Context, id int64, shortCode string) (*models.URL, error)

	// GetByShortCode retrieves a record by its short code.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// IncrementClickCount atomically bumps the record's click counter.
	IncrementClickCount(ctx context.Context, id int64) error
}

// RedirectCache defines the cache operations used on the redirect path.
type RedirectCache interface {
	Get(ctx context.Context, shortCode string) (*cache.Entry, error)
	Set(ctx context.Context, shortCode string, entry cache.Entry) error
	Delete(ctx context.Context, shortCode string) error
}

// URLService orchestrates URL creation and resolution over the repository
// and the redirect cache.
type URLService struct {
	repo    URLRepository
	cache   RedirectCache
	logger  *slog.Logger
	baseURL string
	now     func() time.Time
}

func NewURLService(repo URLRepository, redirectCache RedirectCache, logger *slog.Logger, baseURL string) *URLService {
	return &URLService{
		repo:    repo,
		cache:   redirectCache,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// ShortenURL validates the raw URL, persists a record and derives its short
// code from the assigned id.
//
// Creation is two-phase because the code depends on the id the database
// assigns: insert first, then set the encoded code. A crash in between
// leaves a record without a code; such records are invisible to lookups.
func (s *URLService) ShortenURL(ctx context.Context, rawURL string, expiresInDays *float64) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"

	longURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var expiresAt *time.Time
	if expiresInDays != nil {
		days := *expiresInDays
		if math.IsNaN(days) || math.IsInf(days, 0) || days <= 0 {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidExpiry)
		}

		// A day count large enough to overflow time.Duration would wrap
		// into the past; a subnormal one rounds down to no lifetime at all.
		d := days * float64(24*time.Hour)
		if d >= math.MaxInt64 {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidExpiry)
		}

		now := s.now()
		t := now.Add(time.Duration(d))
		if !t.After(now) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidExpiry)
		}
		expiresAt = &t
	}

	created, err := s.repo.Create(ctx, longURL, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	shortened, err := s.repo.SetShortCode(ctx, created.ID, base62.Encode(uint64(created.ID)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to set short code: %w", op, err)
	}

	shortened.ShortURL = s.shortURL(shortened.ShortCode)

	return shortened, nil
}

// Resolve returns the long URL for a short code, serving from the cache
// when possible.
//
// A cache hit past its stored expiration is trusted as evidence of
// expiration without re-reading the store, since expiration never reverses.
// Click counting only happens on store reads and runs detached from the
// response.
func (s *URLService) Resolve(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.Resolve"

	entry, err := s.cache.Get(ctx, shortCode)
	if err == nil {
		if entry.Expired(s.now()) {
			if err := s.cache.Delete(ctx, shortCode); err != nil {
				s.logger.Warn("failed to evict expired cache entry",
					slog.String("op", op),
					slog.String("short_code", shortCode),
					slog.Any("err", err),
				)
			}

			return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
		}

		return &models.URL{
			ShortCode: shortCode,
			LongURL:   entry.LongURL,
			ShortURL:  s.shortURL(shortCode),
			ExpiresAt: entry.ExpiresAt,
		}, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("%s: failed to check cache: %w", op, err)
	}

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if url.Expired(s.now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
	}

	err = s.cache.Set(ctx, shortCode, cache.Entry{
		LongURL:   url.LongURL,
		ExpiresAt: url.ExpiresAt,
	})
	if err != nil {
		// The record expired between the check above and now.
		if errors.Is(err, cache.ErrEntryExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
		}

		return nil, fmt.Errorf("%s: failed to populate cache: %w", op, err)
	}

	s.recordClick(ctx, url.ID)

	url.ShortURL = s.shortURL(url.ShortCode)

	return url, nil
}

// Details returns the record view for a short code, applying the same
// expiration rule as Resolve but never touching the cache or the click
// counter.
func (s *URLService) Details(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.Details"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url details: %w", op, err)
	}

	if url.Expired(s.now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
	}

	url.ShortURL = s.shortURL(url.ShortCode)

	return url, nil
}

// recordClick dispatches the click-count increment without blocking the
// caller. Failures are logged and never retried: click counts are
// best-effort telemetry.
func (s *URLService) recordClick(ctx context.Context, id int64) {
	const op = "service.URLService.recordClick"

	ctx = context.WithoutCancel(ctx)

	go func() {
		if err := s.repo.IncrementClickCount(ctx, id); err != nil {
			s.logger.Error("failed to increment click count",
				slog.String("op", op),
				slog.Int64("id", id),
				slog.Any("err", err),
			)
		}
	}()
}

func (s *URLService) shortURL(shortCode string) string {
	return s.baseURL + "/" + shortCode
}

func normalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", ErrInvalidURL
	}

	return u.String(), nil
}
