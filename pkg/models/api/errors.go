package api

import (
	"net/http"

	"github.com/go-chi/render"
)

const (
	ErrorCodeBadRequest     = "BAD_REQUEST"
	ErrorCodeMalformedInput = "MALFORMED_INPUT"
	ErrorCodeMissingColumn  = "MISSING_COLUMN"
	ErrorCodeEmptyResult    = "EMPTY_RESULT"
	ErrorCodeNotFound       = "NOT_FOUND"
	ErrorCodeTooLarge       = "PAYLOAD_TOO_LARGE"
	ErrorCodeInternal       = "INTERNAL_ERROR"
)

// APIError is the JSON body of every failed API call.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func NewError(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}
