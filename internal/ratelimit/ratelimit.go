// Package ratelimit implements a fixed-window request limiter backed by
// Redis counters.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/vadimbarashkov/shortly/internal/cache"
)

// Config describes one rate-limited route.
type Config struct {
	// Route names the counter namespace, e.g. "shorten" or "redirect".
	Route string
	// Window is the fixed-window length. Counters expire at its boundary.
	Window time.Duration
	// Max is the number of requests allowed per identity per window.
	Max int64
}

// Result is the outcome of a limiter check. RetryAfter is only meaningful
// when Allowed is false.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts requests per identity in fixed windows. It fails open:
// when the counter store is unreachable, requests are permitted so that
// backend trouble never takes down the service itself.
type Limiter struct {
	client cache.Client
	logger *slog.Logger
	cfg    Config
}

func New(client cache.Client, logger *slog.Logger, cfg Config) *Limiter {
	return &Limiter{
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// Allow records a request for the identity and reports whether it fits in
// the current window.
func (l *Limiter) Allow(ctx context.Context, identity string) Result {
	const op = "ratelimit.Limiter.Allow"

	key := "ratelimit:" + l.cfg.Route + ":" + identity

	count, err := l.client.Incr(ctx, key)
	if err != nil {
		l.logger.Warn("rate limiter failed open",
			slog.String("op", op),
			slog.String("route", l.cfg.Route),
			slog.Any("err", err),
		)
		return Result{Allowed: true}
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.cfg.Window); err != nil {
			l.logger.Warn("rate limiter failed to set window expiry",
				slog.String("op", op),
				slog.String("route", l.cfg.Route),
				slog.Any("err", err),
			)
			return Result{Allowed: true}
		}
	}

	if count > l.cfg.Max {
		retryAfter := l.cfg.Window
		if ttl, err := l.client.TTL(ctx, key); err == nil && ttl > 0 {
			retryAfter = ttl
		}

		return Result{Allowed: false, RetryAfter: retryAfter}
	}

	return Result{Allowed: true}
}
