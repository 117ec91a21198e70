package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseTypedParams(t *testing.T) {
	t.Run("string params", func(t *testing.T) {
		params, err := parseTypedParams([]string{"id=users/test/dem", "count=3"})
		if err != nil {
			t.Fatalf("parseTypedParams() error = %v", err)
		}
		if params.Get("id") != "users/test/dem" {
			t.Errorf("id = %q, want users/test/dem", params.Get("id"))
		}
		if params.Get("count") != "3" {
			t.Errorf("count = %q, want 3", params.Get("count"))
		}
	})

	t.Run("json param", func(t *testing.T) {
		params, err := parseTypedParams([]string{`request:={"num": 5}`})
		if err != nil {
			t.Fatalf("parseTypedParams() error = %v", err)
		}
		if params.Get("request") != `{"num": 5}` {
			t.Errorf("request = %q, want JSON passed through", params.Get("request"))
		}
	})

	t.Run("invalid json param rejected", func(t *testing.T) {
		if _, err := parseTypedParams([]string{`request:={not json}`}); err == nil {
			t.Error("expected error for invalid JSON value")
		}
	})

	t.Run("missing equals rejected", func(t *testing.T) {
		if _, err := parseTypedParams([]string{"novalue"}); err == nil {
			t.Error("expected error for parameter without =")
		}
	})

	t.Run("file value", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "value.txt")
		if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		params, err := parseTypedParams([]string{"id=@" + path})
		if err != nil {
			t.Fatalf("parseTypedParams() error = %v", err)
		}
		if params.Get("id") != "from-file" {
			t.Errorf("id = %q, want trimmed file content", params.Get("id"))
		}
	})

	t.Run("value containing equals", func(t *testing.T) {
		params, err := parseTypedParams([]string{"expr=a=b"})
		if err != nil {
			t.Fatalf("parseTypedParams() error = %v", err)
		}
		if params.Get("expr") != "a=b" {
			t.Errorf("expr = %q, want a=b", params.Get("expr"))
		}
	})
}

func TestEncodeFormValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"string passes through", "hello", "hello"},
		{"integer-valued float", float64(42), "42"},
		{"fractional float", 2.5, "2.5"},
		{"bool", true, "true"},
		{"nil", nil, ""},
		{"object re-encoded", map[string]interface{}{"a": float64(1)}, `{"a":1}`},
		{"array re-encoded", []interface{}{"x", "y"}, `["x","y"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeFormValue(tt.value)
			if err != nil {
				t.Fatalf("encodeFormValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("encodeFormValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
