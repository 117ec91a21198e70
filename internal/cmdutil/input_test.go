package cmdutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const manifestJSON = `{"id": "users/test/dem", "tilesets": [{"sources": [{"primaryPath": "gs://bucket/dem.tif"}]}]}`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

func TestResolveJSONInput(t *testing.T) {
	manifestFile := writeFixture(t, "manifest.json", manifestJSON)
	paddedFile := writeFixture(t, "padded.json", "  {\"image\": \"users/test/dem\"}  \n")

	tests := []struct {
		name    string
		raw     string
		file    string
		want    string
		wantErr string
	}{
		{
			name: "inline manifest passthrough",
			raw:  manifestJSON,
			want: manifestJSON,
		},
		{
			name: "empty inputs",
		},
		{
			name: "file flag",
			file: manifestFile,
			want: manifestJSON,
		},
		{
			name: "at-file syntax",
			raw:  "@" + manifestFile,
			want: manifestJSON,
		},
		{
			name: "at-file with leading whitespace",
			raw:  "  @" + manifestFile,
			want: manifestJSON,
		},
		{
			name:    "both inline and file",
			raw:     `{"image": "users/test/dem"}`,
			file:    manifestFile,
			wantErr: "use only one of inline JSON or --file",
		},
		{
			name:    "file not found",
			file:    filepath.Join(t.TempDir(), "missing.json"),
			wantErr: "failed to read file",
		},
		{
			name:    "at-file not found",
			raw:     "@" + filepath.Join(t.TempDir(), "missing.json"),
			wantErr: "failed to read file",
		},
		{
			name: "file content trimmed",
			file: paddedFile,
			want: `{"image": "users/test/dem"}`,
		},
		{
			name: "inline input kept verbatim",
			raw:  "  {\"image\": \"users/test/dem\"}  ",
			want: "  {\"image\": \"users/test/dem\"}  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveJSONInput(tt.raw, tt.file)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadJSONInput(t *testing.T) {
	visFile := writeFixture(t, "vis.json", `{"bands": "elevation", "min": 0, "max": 4000}`)

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{
			name:  "inline passthrough",
			value: `{"bands": "elevation"}`,
			want:  `{"bands": "elevation"}`,
		},
		{
			name: "empty value",
		},
		{
			name:  "at-file syntax",
			value: "@" + visFile,
			want:  `{"bands": "elevation", "min": 0, "max": 4000}`,
		},
		{
			name:    "at-file not found",
			value:   "@/nonexistent/vis.json",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadJSONInput(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshalJSONInput(t *testing.T) {
	t.Run("manifest object", func(t *testing.T) {
		var got map[string]interface{}
		if err := UnmarshalJSONInput(manifestJSON, &got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["id"] != "users/test/dem" {
			t.Fatalf("id = %v, want users/test/dem", got["id"])
		}
	})

	t.Run("double-serialized manifest", func(t *testing.T) {
		var got map[string]interface{}
		if err := UnmarshalJSONInput(`"{\"id\": \"users/test/dem\"}"`, &got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["id"] != "users/test/dem" {
			t.Fatalf("id = %v, want users/test/dem", got["id"])
		}
	})

	t.Run("double-serialized band list", func(t *testing.T) {
		var got []interface{}
		if err := UnmarshalJSONInput(`"[\"B4\", \"B3\", \"B2\"]"`, &got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 || got[0] != "B4" {
			t.Fatalf("got %v, want [B4 B3 B2]", got)
		}
	})

	t.Run("plain string does not unwrap", func(t *testing.T) {
		var got map[string]interface{}
		if err := UnmarshalJSONInput(`"users/test/dem"`, &got); err == nil {
			t.Fatal("expected error for non-object JSON")
		}
	})
}

func TestReadInputSource(t *testing.T) {
	queryFile := writeFixture(t, "query.jq", ".tasks[] | .id")
	paddedFile := writeFixture(t, "padded.jq", "\n  .assets[0].id  \n\n")
	emptyFile := writeFixture(t, "empty.jq", "")

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{
			name: "read file",
			path: queryFile,
			want: ".tasks[] | .id",
		},
		{
			name: "whitespace trimmed",
			path: paddedFile,
			want: ".assets[0].id",
		},
		{
			name: "empty file",
			path: emptyFile,
		},
		{
			name:    "empty path",
			wantErr: "input file path is required",
		},
		{
			name:    "file not found",
			path:    filepath.Join(t.TempDir(), "missing.jq"),
			wantErr: "failed to read file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadInputSource(tt.path)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeJSONInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "empty string",
		},
		{
			name: "whitespace-only",
			raw:  "   \t\n  ",
			want: "   \t\n  ",
		},
		{
			name: "manifest object unchanged",
			raw:  manifestJSON,
			want: manifestJSON,
		},
		{
			name: "band array unchanged",
			raw:  `["B4", "B3", "B2"]`,
			want: `["B4", "B3", "B2"]`,
		},
		{
			name: "bare number unchanged",
			raw:  `4000`,
			want: `4000`,
		},
		{
			name: "null unchanged",
			raw:  `null`,
			want: `null`,
		},
		{
			name: "double-serialized object unwraps",
			raw:  `"{\"image\": \"users/test/dem\"}"`,
			want: `{"image": "users/test/dem"}`,
		},
		{
			name: "double-serialized array unwraps",
			raw:  `"[\"B4\"]"`,
			want: `["B4"]`,
		},
		{
			name: "double-serialized number unwraps",
			raw:  `"4000"`,
			want: `4000`,
		},
		{
			name: "triple-serialized unwraps one level",
			raw:  `"\"{\\\"image\\\": \\\"users/test/dem\\\"}\""`,
			want: `"{\"image\": \"users/test/dem\"}"`,
		},
		{
			name: "asset id string stays quoted",
			raw:  `"users/test/dem"`,
			want: `"users/test/dem"`,
		},
		{
			name: "empty JSON string unchanged",
			raw:  `""`,
			want: `""`,
		},
		{
			name: "object with outer whitespace unchanged",
			raw:  `  {"image": "users/test/dem"}  `,
			want: `  {"image": "users/test/dem"}  `,
		},
		{
			name: "double-serialized with leading whitespace",
			raw:  `  "{\"image\": \"users/test/dem\"}"`,
			want: `{"image": "users/test/dem"}`,
		},
		{
			name: "invalid JSON unchanged",
			raw:  `{not json}`,
			want: `{not json}`,
		},
		{
			name: "plain text unchanged",
			raw:  `users/test/dem`,
			want: `users/test/dem`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeJSONInput(tt.raw); got != tt.want {
				t.Fatalf("NormalizeJSONInput(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
