package utils

import (
	"encoding/json"
	"net/http"
)

// HTTPError defines a custom error structure that includes an HTTP status code and message
type HTTPError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

// Implement the Error() method to satisfy the error interface
func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError instance with a custom status code and message
func NewHTTPError(code int, message string) error {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// Forbidden creates a 403 Forbidden error
func Forbidden(message string) error {
	return NewHTTPError(http.StatusForbidden, message)
}

// InternalServerError creates a 500 Internal Server Error
func InternalServerError(message string) error {
	return NewHTTPError(http.StatusInternalServerError, message)
}

// WriteError is a helper function to send the error response as JSON
func WriteError(w http.ResponseWriter, err error) {
	// Check if the error is an instance of HTTPError
	httpErr, ok := err.(*HTTPError)
	if !ok {
		// If not, default to an internal server error
		httpErr = &HTTPError{
			Code:    http.StatusInternalServerError,
			Message: "Internal Server Error",
		}
	}

	// Write the HTTP error response
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.Code)
	_ = json.NewEncoder(w).Encode(httpErr)
}
