// Package response defines the JSON error payloads returned by the API.
package response

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int64  `json:"retryAfterSeconds,omitempty"`
}

var EmptyRequestBodyResponse = ErrorResponse{
	Error: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = ErrorResponse{
	Error: "Invalid request body.",
}

var InvalidURLResponse = ErrorResponse{
	Error: "Invalid URL format.",
}

var InvalidExpiryResponse = ErrorResponse{
	Error: "expiresInDays must be a positive number.",
}

var URLNotFoundResponse = ErrorResponse{
	Error: "Short URL not found.",
}

var URLExpiredResponse = ErrorResponse{
	Error: "Short URL has expired.",
}

var ServerErrorResponse = ErrorResponse{
	Error: "An internal server error occurred. Please try again later.",
}

// RateLimitedResponse builds the 429 payload with a retry hint in seconds.
func RateLimitedResponse(retryAfterSeconds int64) ErrorResponse {
	return ErrorResponse{
		Error:             "Too many requests, please try again later.",
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// ValidationErrorResponse converts validator errors into a readable message
// naming the offending fields.
func ValidationErrorResponse(err error) ErrorResponse {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return BadRequestResponse
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields = append(fields, fieldErr.Field())
	}

	return ErrorResponse{
		Error: fmt.Sprintf("Invalid value for: %s.", strings.Join(fields, ", ")),
	}
}
