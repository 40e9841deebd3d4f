// Package http wires the chi router: routes, middleware, rate limiting and
// the translation of service outcomes into status codes.
package http

import (
	"context"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortly/internal/auth"
	"github.com/vadimbarashkov/shortly/internal/config"
	"github.com/vadimbarashkov/shortly/internal/models"
	"github.com/vadimbarashkov/shortly/internal/ratelimit"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// ShortenURL creates a shortened version of the provided raw URL,
	// optionally expiring after the given number of days.
	ShortenURL(ctx context.Context, rawURL string, expiresInDays *float64) (*models.URL, error)

	// Resolve returns the URL to redirect to for a short code.
	Resolve(ctx context.Context, shortCode string) (*models.URL, error)

	// Details returns the record view for a short code without affecting
	// the cache or the click count.
	Details(ctx context.Context, shortCode string) (*models.URL, error)
}

// TokenManager issues and verifies bearer tokens.
type TokenManager interface {
	Issue(userID int64, role string) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// Limiters holds the per-route rate limiters.
type Limiters struct {
	Shorten  *ratelimit.Limiter
	Redirect *ratelimit.Limiter
}

// getValidate initializes a validator that reports field names from JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and
// middleware configured.
func NewRouter(logger *httplog.Logger, urlSvc URLService, tokens TokenManager, limits Limiters, env string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	validate := getValidate()
	identity := rateLimitIdentity(tokens)

	r.Get("/ping", handlePing)

	if env != config.EnvProd {
		r.Post("/auth/dev-token", handleDevToken(tokens, validate))
	}

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limits.Shorten, identity))
		r.Post("/shorten", handleShortenURL(urlSvc, validate))
	})

	r.Get("/details/{shortCode}", handleDetails(urlSvc))

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limits.Redirect, identity))
		r.Get("/{shortCode}", handleRedirect(urlSvc))
	})

	return r
}

// rateLimitIdentity keys counters by the authenticated subject when a valid
// bearer token is presented, falling back to the client IP.
func rateLimitIdentity(tokens TokenManager) ratelimit.IdentityFunc {
	return func(r *http.Request) string {
		authHeader := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			if claims, err := tokens.Verify(token); err == nil {
				return "user:" + claims.Subject
			}
		}

		return "ip:" + clientIP(r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP middleware may have replaced RemoteAddr with a bare IP.
		return r.RemoteAddr
	}

	return host
}
