package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verdantlabs/earthengine-cli/internal/ee"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
	"github.com/verdantlabs/earthengine-cli/internal/output"
)

func validateErrorFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "auto", "text", "json", "yaml":
		return nil
	default:
		return ctxerrors.NewUserError(
			fmt.Sprintf("invalid --error-format %q", format),
			"Use one of: auto, text, json, yaml",
		)
	}
}

// effectiveErrorFormat resolves --error-format. "auto" (the default)
// follows the data format on --output, so JSON pipelines get JSON errors
// on stderr.
func effectiveErrorFormat(ctx context.Context) string {
	format := strings.ToLower(strings.TrimSpace(ErrorFormatFromContext(ctx)))
	if format != "" && format != "auto" {
		return format
	}
	switch output.FormatFromContext(ctx) {
	case output.FormatJSON, output.FormatNDJSON:
		return "json"
	case output.FormatYAML:
		return "yaml"
	default:
		return "text"
	}
}

func printCommandError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	w := stderrFromContext(ctx)
	switch effectiveErrorFormat(ctx) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(buildErrorEnvelope(err))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		_ = enc.Encode(buildErrorEnvelope(err))
		_ = enc.Close()
	default:
		_, _ = fmt.Fprintln(w, err)
		if suggestion := ctxerrors.UserSuggestion(err); suggestion != "" {
			_, _ = fmt.Fprintf(w, "Hint: %s\n", suggestion)
		}
	}
}

// buildErrorEnvelope shapes an error for structured stderr output:
// {"error": {"message": ..., "category": ..., "type": ..., ...}}.
func buildErrorEnvelope(err error) map[string]interface{} {
	errMap := map[string]interface{}{
		"message":  err.Error(),
		"category": errorCategory(err),
	}
	if suggestion := ctxerrors.UserSuggestion(err); suggestion != "" {
		errMap["suggestion"] = suggestion
	}
	attachErrorDetails(errMap, err)
	return map[string]interface{}{"error": errMap}
}

// errorCategory splits errors the caller can fix (bad input, missing
// credentials) from server and transport failures.
func errorCategory(err error) string {
	if ctxerrors.IsUserError(err) || ctxerrors.IsValidationError(err) || ctxerrors.IsAuthError(err) {
		return "user"
	}
	return "system"
}

// attachErrorDetails adds type-specific fields for the error shapes the
// client produces.
func attachErrorDetails(errMap map[string]interface{}, err error) {
	var contextual *ctxerrors.ContextualError
	if errors.As(err, &contextual) {
		errMap["method"] = contextual.Method
		errMap["url"] = contextual.URL
		if contextual.StatusCode > 0 {
			errMap["status"] = contextual.StatusCode
		}
	}

	var apiErr *ee.APIError
	if errors.As(err, &apiErr) {
		errMap["type"] = "earthengine_api"
		if apiErr.StatusCode > 0 {
			errMap["status"] = apiErr.StatusCode
		}
		if apiErr.Response != nil {
			errMap["code"] = apiErr.Response.Code
			errMap["message"] = apiErr.Response.Message
			if apiErr.Response.Status != "" {
				errMap["api_status"] = apiErr.Response.Status
			}
		}
		if apiErr.RetryAfter > 0 {
			errMap["retry_after_seconds"] = int(apiErr.RetryAfter.Seconds())
		}
	}

	var rlErr *ctxerrors.RateLimitError
	if errors.As(err, &rlErr) {
		errMap["type"] = "rate_limit"
		errMap["retry_after_seconds"] = int(rlErr.RetryAfter.Seconds())
	}

	var authErr *ctxerrors.AuthError
	if errors.As(err, &authErr) {
		errMap["type"] = "auth"
	}

	var validationErr *ctxerrors.ValidationError
	if errors.As(err, &validationErr) {
		errMap["type"] = "validation"
		errMap["field"] = validationErr.Field
	}

	if ctxerrors.IsCircuitBreakerError(err) {
		errMap["type"] = "circuit_breaker"
	}
}
