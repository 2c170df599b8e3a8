package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortify/internal/entity"
)

const statusError = "error"

// urlRequest represents the structure for a request to shorten a URL.
type urlRequest struct {
	TargetURL string `json:"target_url" validate:"required,url"`
}

// urlResponse represents the structure for a response containing shortened URL information.
// ShortCode carries the full redirect link composed from the configured base URL.
type urlResponse struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"short_code"`
	TargetURL string    `json:"target_url"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"created_at"`
}

// toURLResponse converts an entity.URL to a urlResponse.
func toURLResponse(baseURL string, url *entity.URL) urlResponse {
	return urlResponse{
		ID:        url.ID,
		ShortCode: baseURL + "/" + url.ShortCode,
		TargetURL: url.TargetURL,
		Clicks:    url.Clicks,
		CreatedAt: url.CreatedAt,
	}
}

// urlListResponse represents the structure for a response containing a listing of URLs.
type urlListResponse struct {
	URLs []urlResponse `json:"urls"`
}

func toURLListResponse(baseURL string, urls []*entity.URL) urlListResponse {
	resp := urlListResponse{
		URLs: make([]urlResponse, 0, len(urls)),
	}
	for _, url := range urls {
		resp.URLs = append(resp.URLs, toURLResponse(baseURL, url))
	}

	return resp
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
