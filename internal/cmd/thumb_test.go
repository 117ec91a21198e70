package cmd

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verdantlabs/earthengine-cli/internal/testutil"
)

func TestThumb_PrintsURL(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.Handle("POST", "/thumb", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.Form.Get("getid"); got != "1" {
			t.Errorf("getid = %q, want 1", got)
		}
		if got := r.Form.Get("image"); got != "users/test/dem" {
			t.Errorf("image = %q, want users/test/dem", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"thumbid": "th123", "token": "tok"}}`))
	})

	setupCLITest(t, server.URL())
	t.Setenv("EARTHENGINE_TILE_URL", "https://tiles.example.com")

	stdout, _, err := runCLI(t, "thumb", `{"image": "users/test/dem", "dimensions": "256x256"}`)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var payload struct {
		ThumbID string `json:"thumbid"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("output is not JSON: %v\nraw: %s", err, stdout.String())
	}
	if payload.ThumbID != "th123" {
		t.Errorf("thumbid = %q, want th123", payload.ThumbID)
	}
	if want := "https://tiles.example.com/api/thumb?thumbid=th123&token=tok"; payload.URL != want {
		t.Errorf("url = %q, want %q", payload.URL, want)
	}
}

func TestThumb_OutFetchesBytes(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.HandleData("POST", "/thumb", map[string]interface{}{"thumbid": "th123", "token": "tok"})
	server.Handle("GET", "/api/thumb", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("thumbid"); got != "th123" {
			t.Errorf("thumbid = %q, want th123", got)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("fake-png-bytes"))
	})

	setupCLITest(t, server.URL())
	t.Setenv("EARTHENGINE_TILE_URL", server.URL())

	outPath := filepath.Join(t.TempDir(), "dem.png")
	stdout, _, err := runCLI(t, "thumb", `{"image": "users/test/dem"}`, "--out", outPath)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("thumbnail file not written: %v", err)
	}
	if string(data) != "fake-png-bytes" {
		t.Errorf("file content = %q, want fetched bytes", data)
	}
	if !strings.Contains(stdout.String(), outPath) {
		t.Errorf("output = %s, want file path reported", stdout.String())
	}
}

func TestTable_PrintsURL(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.Handle("POST", "/table", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.Form.Get("format"); got != "CSV" {
			t.Errorf("format = %q, want CSV", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"docid": "doc9", "token": "tok"}}`))
	})

	setupCLITest(t, server.URL())
	t.Setenv("EARTHENGINE_TILE_URL", "https://tiles.example.com")

	stdout, _, err := runCLI(t, "table", `{"table": "serialized", "format": "CSV"}`)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "https://tiles.example.com/api/table?docid=doc9&token=tok") {
		t.Errorf("output = %s, want table download URL", stdout.String())
	}
}
