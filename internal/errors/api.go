package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the structured error payload returned by the HTTP read API.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewAPIError creates an APIError with the given parameters.
func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// Predefined responses for common cases.
var (
	ErrInvalidRequest = NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrInternalServer = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// APINotFound builds a 404 response for the named resource.
func APINotFound(resource string) *APIError {
	return &APIError{
		StatusCode: http.StatusNotFound,
		ErrorCode:  "NOT_FOUND",
		Message:    resource + " not found",
		Details:    resource,
	}
}

// ToAPIError maps an application error onto the corresponding HTTP response.
func ToAPIError(err error) *APIError {
	if api, ok := err.(*APIError); ok {
		return api
	}
	if app, ok := err.(*AppError); ok {
		switch app.Type {
		case ErrTypeNotFound:
			return &APIError{StatusCode: http.StatusNotFound, ErrorCode: string(app.Type), Message: app.Message}
		case ErrTypeValidation:
			return &APIError{StatusCode: http.StatusBadRequest, ErrorCode: string(app.Type), Message: app.Message}
		default:
			return &APIError{StatusCode: http.StatusInternalServerError, ErrorCode: string(app.Type), Message: app.Message}
		}
	}
	return ErrInternalServer
}
