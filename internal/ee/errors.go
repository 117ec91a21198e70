package ee

import (
	"fmt"
	"time"
)

// ErrorResponse is the error object inside the API's error envelope:
// {"error": {"message": ..., "code": ...}}.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// Error implements the error interface
func (e *ErrorResponse) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("earthengine API error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("earthengine API error: %s", e.Message)
}

// APIError wraps an ErrorResponse with transport-level context.
type APIError struct {
	StatusCode int
	Response   *ErrorResponse
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Response != nil {
		return e.Response.Error()
	}
	return fmt.Sprintf("earthengine API error %d", e.StatusCode)
}
