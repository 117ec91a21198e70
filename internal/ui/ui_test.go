package ui

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func TestNew_ColorModes(t *testing.T) {
	tests := []struct {
		name    string
		mode    ColorMode
		noColor string
	}{
		{name: "auto with NO_COLOR", mode: ColorAuto, noColor: "1"},
		{name: "always with NO_COLOR", mode: ColorAlways, noColor: "1"},
		{name: "never", mode: ColorNever, noColor: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.noColor != "" {
				t.Setenv("NO_COLOR", tt.noColor)
			}

			u := New(tt.mode)
			if u == nil {
				t.Fatal("New returned nil")
			}
			if tt.noColor != "" && u.color != ColorNever {
				t.Errorf("color mode = %v, want ColorNever with NO_COLOR set", u.color)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	u := New(ColorNever)
	ctx := WithUI(context.Background(), u)

	if got := FromContext(ctx); got != u {
		t.Error("FromContext did not return the attached UI")
	}
}

func TestFromContext_Default(t *testing.T) {
	u := FromContext(context.Background())
	if u == nil {
		t.Fatal("FromContext returned nil for bare context")
	}
	if u.color != ColorAuto && os.Getenv("NO_COLOR") == "" {
		t.Errorf("default color mode = %v, want ColorAuto", u.color)
	}
}

func TestStatusLines(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*UI, string, ...any)
		msg  string
		want string
	}{
		{name: "Success", fn: (*UI).Success, msg: "credentials stored", want: "✓ credentials stored"},
		{name: "Warning", fn: (*UI).Warning, msg: "credentials are stale", want: "⚠ credentials are stale"},
		{name: "Error", fn: (*UI).Error, msg: "task failed", want: "✗ task failed"},
		{name: "Info", fn: (*UI).Info, msg: "polling task", want: "ℹ polling task"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			u := NewWithWriter(&buf, ColorNever)

			tt.fn(u, "%s", tt.msg)

			out := strings.TrimSpace(buf.String())
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want to contain %q", out, tt.want)
			}
		})
	}
}

func TestPlain(t *testing.T) {
	var buf bytes.Buffer
	u := NewWithWriter(&buf, ColorNever)

	u.Plain("tile url: %s", "https://example.com/map/abc/0/0/0")

	if got := buf.String(); got != "tile url: https://example.com/map/abc/0/0/0\n" {
		t.Errorf("Plain output = %q", got)
	}
}
