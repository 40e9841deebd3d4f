package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"
	"github.com/vadimbarashkov/shortly/internal/service"
	"github.com/vadimbarashkov/shortly/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// shortenRequest is the payload for creating a shortened URL.
type shortenRequest struct {
	URL           string   `json:"url" validate:"required,url"`
	ExpiresInDays *float64 `json:"expiresInDays" validate:"omitempty,gt=0"`
}

// urlResponse is the record view returned by creation and details lookups.
type urlResponse struct {
	ID         int64      `json:"id"`
	ShortCode  string     `json:"shortCode"`
	LongURL    string     `json:"longUrl"`
	ShortURL   string     `json:"shortUrl"`
	ClickCount int64      `json:"clickCount"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

func toURLResponse(url *models.URL) urlResponse {
	return urlResponse{
		ID:         url.ID,
		ShortCode:  url.ShortCode,
		LongURL:    url.LongURL,
		ShortURL:   url.ShortURL,
		ClickCount: url.ClickCount,
		CreatedAt:  url.CreatedAt,
		ExpiresAt:  url.ExpiresAt,
	}
}

// handleShortenURL handles POST requests to shorten a URL.
func handleShortenURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.URL, req.ExpiresInDays)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidURLResponse)
			case errors.Is(err, service.ErrInvalidExpiry):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidExpiryResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, toURLResponse(url))
	}
}

// handleRedirect handles GET requests for a short code, replying with a
// permanent redirect to the long URL.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.Resolve(r.Context(), shortCode)
		if err != nil {
			renderLookupError(w, r, op, err)
			return
		}

		http.Redirect(w, r, url.LongURL, http.StatusMovedPermanently)
	}
}

// handleDetails handles GET requests for the record view of a short code.
func handleDetails(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDetails"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.Details(r.Context(), shortCode)
		if err != nil {
			renderLookupError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, toURLResponse(url))
	}
}

// renderLookupError maps lookup failures shared by the redirect and details
// paths to their status codes.
func renderLookupError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, database.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.URLNotFoundResponse)
	case errors.Is(err, service.ErrURLExpired):
		render.Status(r, http.StatusGone)
		render.JSON(w, r, response.URLExpiredResponse)
	default:
		httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}

// devTokenRequest is the payload for issuing a development bearer token.
type devTokenRequest struct {
	UserID int64  `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=user admin"`
}

type devTokenResponse struct {
	Token string `json:"token"`
}

// handleDevToken issues a signed token for local testing. The route is not
// registered in prod.
func handleDevToken(tokens TokenManager, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleDevToken"

	return func(w http.ResponseWriter, r *http.Request) {
		var req devTokenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		token, err := tokens.Issue(req.UserID, req.Role)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, devTokenResponse{Token: token})
	}
}
