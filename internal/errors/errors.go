package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError represents an input validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// UserError is an error caused by user input or local configuration.
// Suggestion, when set, names a concrete fix.
type UserError struct {
	Message    string
	Suggestion string
	Err        error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a UserError with a message and optional suggestion.
func NewUserError(message, suggestion string) *UserError {
	return &UserError{Message: message, Suggestion: suggestion}
}

// WrapUserError wraps an underlying error with a user-facing message and suggestion.
func WrapUserError(err error, message, suggestion string) *UserError {
	return &UserError{Message: message, Suggestion: suggestion, Err: err}
}

// RateLimitError represents a 429 response that survived all retries.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
}

// AuthError represents a credential or authorization failure.
type AuthError struct {
	Reason     string
	Suggestion string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication error: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AuthRequiredError wraps an error with the standard missing-credential message.
func AuthRequiredError(err error) error {
	return &AuthError{
		Reason:     "authentication required",
		Suggestion: "Run 'earthengine authenticate' to obtain credentials",
		Err:        err,
	}
}

// CredentialsExpiredError wraps a failed token refresh.
func CredentialsExpiredError(err error) error {
	return &AuthError{
		Reason:     "stored credentials were rejected",
		Suggestion: "Run 'earthengine authenticate' to obtain fresh credentials",
		Err:        err,
	}
}

// CircuitBreakerError indicates the client circuit is open.
type CircuitBreakerError struct{}

func (e *CircuitBreakerError) Error() string {
	return "service temporarily unavailable (circuit breaker open)"
}

// Type checkers
func IsRateLimitError(err error) bool {
	var e *RateLimitError
	return errors.As(err, &e)
}

func IsAuthError(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

func IsCircuitBreakerError(err error) bool {
	var e *CircuitBreakerError
	return errors.As(err, &e)
}

func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}

// UserSuggestion returns a suggestion string if err carries one.
func UserSuggestion(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Suggestion
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Suggestion
	}
	return ""
}

// ContextualError wraps an error with HTTP request context for debugging.
type ContextualError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

// WrapContext wraps an error with HTTP request context.
// StatusCode can be 0 if the request never completed.
// Returns nil if err is nil.
func WrapContext(method, url string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &ContextualError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

func (e *ContextualError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s (%d): %s", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
}

func (e *ContextualError) Unwrap() error {
	return e.Err
}

// IsContextualError checks if an error is a ContextualError.
func IsContextualError(err error) bool {
	var ce *ContextualError
	return errors.As(err, &ce)
}

// NotFoundError creates a user-friendly error for a missing resource.
// entityType names the kind of thing ("asset", "task"), identifier is
// the ID that was looked up.
func NotFoundError(entityType, identifier string) error {
	suggestion := fmt.Sprintf("Check the %s ID is correct\n  • Run 'earthengine ls' on the parent folder to list assets\n  • Verify your account has access to this %s", entityType, entityType)
	return NewUserError(
		fmt.Sprintf("%s %q not found", entityType, identifier),
		suggestion,
	)
}

// APINotFoundError wraps an API error with suggestions when the response
// looks like a missing-resource failure. Other errors pass through.
func APINotFoundError(err error, entityType, identifier string) error {
	if err == nil {
		return nil
	}
	if containsNotFoundIndicators(err.Error()) {
		return WrapUserError(err, fmt.Sprintf("failed to get %s", entityType),
			fmt.Sprintf("The %s %q was not found.\n\nSuggestions:\n  • Check the ID is correct\n  • Run 'earthengine ls' on the parent folder\n  • Verify your account has access to this %s",
				entityType, identifier, entityType))
	}
	return err
}

func containsNotFoundIndicators(errStr string) bool {
	indicators := []string{
		"not found",
		"does not exist",
		"404",
		"no such",
	}
	errLower := strings.ToLower(errStr)
	for _, indicator := range indicators {
		if strings.Contains(errLower, indicator) {
			return true
		}
	}
	return false
}
