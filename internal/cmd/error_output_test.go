package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	clierrors "github.com/verdantlabs/earthengine-cli/internal/errors"
	"github.com/verdantlabs/earthengine-cli/internal/ee"
	"github.com/verdantlabs/earthengine-cli/internal/iocontext"
	"github.com/verdantlabs/earthengine-cli/internal/output"
)

func TestValidateErrorFormat(t *testing.T) {
	for _, valid := range []string{"", "auto", "text", "json", "yaml", "JSON", " text "} {
		if err := validateErrorFormat(valid); err != nil {
			t.Errorf("validateErrorFormat(%q) = %v, want nil", valid, err)
		}
	}
	if err := validateErrorFormat("xml"); err == nil {
		t.Error("validateErrorFormat(\"xml\") = nil, want error")
	}
}

func TestEffectiveErrorFormat(t *testing.T) {
	tests := []struct {
		name        string
		errorFormat string
		outFormat   output.Format
		want        string
	}{
		{"explicit json wins", "json", output.FormatText, "json"},
		{"explicit yaml wins", "yaml", output.FormatJSON, "yaml"},
		{"auto follows json output", "auto", output.FormatJSON, "json"},
		{"auto follows ndjson output", "", output.FormatNDJSON, "json"},
		{"auto follows yaml output", "", output.FormatYAML, "yaml"},
		{"auto defaults to text", "", output.FormatText, "text"},
		{"auto with table output", "auto", output.FormatTable, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := output.WithFormat(context.Background(), tt.outFormat)
			ctx = WithErrorFormat(ctx, tt.errorFormat)
			if got := effectiveErrorFormat(ctx); got != tt.want {
				t.Errorf("effectiveErrorFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintCommandError_Text(t *testing.T) {
	var stderr bytes.Buffer
	ctx := iocontext.WithIO(context.Background(), &bytes.Buffer{}, &stderr)

	printCommandError(ctx, clierrors.NewUserError("bad asset id", "Check the asset path"))

	got := stderr.String()
	if !strings.Contains(got, "bad asset id") {
		t.Errorf("stderr = %q, want error message", got)
	}
	if !strings.Contains(got, "Hint: Check the asset path") {
		t.Errorf("stderr = %q, want suggestion hint", got)
	}
}

func TestPrintCommandError_JSONEnvelope(t *testing.T) {
	var stderr bytes.Buffer
	ctx := iocontext.WithIO(context.Background(), &bytes.Buffer{}, &stderr)
	ctx = WithErrorFormat(ctx, "json")

	apiErr := &ee.APIError{
		StatusCode: 429,
		Response:   &ee.ErrorResponse{Code: 429, Message: "rate limited", Status: "RESOURCE_EXHAUSTED"},
		RetryAfter: 7 * time.Second,
	}
	printCommandError(ctx, apiErr)

	var payload struct {
		Error map[string]interface{} `json:"error"`
	}
	if err := json.Unmarshal(stderr.Bytes(), &payload); err != nil {
		t.Fatalf("stderr is not JSON: %v\nraw: %s", err, stderr.String())
	}

	if payload.Error["type"] != "earthengine_api" {
		t.Errorf("type = %v, want earthengine_api", payload.Error["type"])
	}
	if payload.Error["status"] != float64(429) {
		t.Errorf("status = %v, want 429", payload.Error["status"])
	}
	if payload.Error["api_status"] != "RESOURCE_EXHAUSTED" {
		t.Errorf("api_status = %v, want RESOURCE_EXHAUSTED", payload.Error["api_status"])
	}
	if payload.Error["retry_after_seconds"] != float64(7) {
		t.Errorf("retry_after_seconds = %v, want 7", payload.Error["retry_after_seconds"])
	}
}

func TestPrintCommandError_NilIsQuiet(t *testing.T) {
	var stderr bytes.Buffer
	ctx := iocontext.WithIO(context.Background(), &bytes.Buffer{}, &stderr)

	printCommandError(ctx, nil)
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty for nil error", stderr.String())
	}
}

func TestBuildErrorEnvelope_Categories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
		errType  string
	}{
		{"plain error is system", errors.New("boom"), "system", ""},
		{"user error", clierrors.NewUserError("nope", ""), "user", ""},
		{"auth error", clierrors.AuthRequiredError(errors.New("no creds")), "user", "auth"},
		{
			"validation error",
			&clierrors.ValidationError{Field: "task_id", Message: "empty"},
			"user", "validation",
		},
		{
			"rate limit error",
			&clierrors.RateLimitError{RetryAfter: 3 * time.Second},
			"system", "rate_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope := buildErrorEnvelope(tt.err)
			errMap := envelope["error"].(map[string]interface{})

			if errMap["category"] != tt.category {
				t.Errorf("category = %v, want %v", errMap["category"], tt.category)
			}
			if tt.errType != "" && errMap["type"] != tt.errType {
				t.Errorf("type = %v, want %v", errMap["type"], tt.errType)
			}
			if errMap["message"] == "" {
				t.Error("envelope is missing a message")
			}
		})
	}
}
