package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortly/pkg/response"
)

// IdentityFunc extracts the rate-limit identity from a request,
// e.g. the authenticated subject or the client IP.
type IdentityFunc func(r *http.Request) string

// Middleware rejects requests exceeding the limiter's window with a 429 and
// a Retry-After hint.
func Middleware(limiter *Limiter, identity IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Allow(r.Context(), identity(r))
			if !res.Allowed {
				retryAfter := int64(math.Ceil(res.RetryAfter.Seconds()))

				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.RateLimitedResponse(retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
