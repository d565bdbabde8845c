package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the structured error payload of every failed request.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

var (
	errEngineBusy = newAPIError(http.StatusConflict, "ENGINE_BUSY",
		"Another preview or processing job is running")
)

func errInvalidRequest(err error) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  "INVALID_REQUEST",
		Message:    "Invalid request format",
		Details:    err.Error(),
	}
}

func errNotFound(message string) *APIError {
	return newAPIError(http.StatusNotFound, "NOT_FOUND", message)
}

func errInternal(err error) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  "INTERNAL_SERVER_ERROR",
		Message:    "Request failed",
		Details:    err.Error(),
	}
}
