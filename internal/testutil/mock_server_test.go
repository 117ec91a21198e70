package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestMockServer_HandleData(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	ms.HandleData("POST", "/api/info", map[string]string{"type": "Image", "id": "users/foo/bar"})

	resp, err := http.Post(ms.URL()+"/api/info", "application/x-www-form-urlencoded", strings.NewReader("id=users%2Ffoo%2Fbar"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if envelope.Data["id"] != "users/foo/bar" {
		t.Errorf("expected id users/foo/bar, got %s", envelope.Data["id"])
	}
}

func TestMockServer_HandleError(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	ms.HandleError("POST", "/api/info", http.StatusNotFound, "Asset not found")

	resp, err := http.Post(ms.URL()+"/api/info", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Asset not found") {
		t.Errorf("expected error message in body: %s", body)
	}
}

func TestMockServer_HandleRateLimit(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	ms.HandleRateLimit("GET", "/api/tasklist", 5)

	resp, err := http.Get(ms.URL() + "/api/tasklist")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}

	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestMockServer_Reset(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	ms.HandleData("GET", "/api/buckets", []string{})
	ms.Reset()

	resp, err := http.Get(ms.URL() + "/api/buckets")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after reset, got %d", resp.StatusCode)
	}
}
