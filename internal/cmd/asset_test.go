package cmd

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/verdantlabs/earthengine-cli/internal/testutil"
)

func TestAssetLs_Roots(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.HandleData("GET", "/buckets", []map[string]interface{}{
		{"type": "Folder", "id": "users/test"},
		{"type": "Folder", "id": "projects/test-project/assets"},
	})

	setupCLITest(t, server.URL())

	stdout, _, err := runCLI(t, "asset", "ls")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var payload struct {
		Assets []struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"assets"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("output is not JSON: %v\nraw: %s", err, stdout.String())
	}
	if len(payload.Assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(payload.Assets))
	}
	if payload.Assets[0].ID != "users/test" {
		t.Errorf("first root = %q, want users/test", payload.Assets[0].ID)
	}
}

func TestAssetLs_Container(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.Handle("POST", "/list", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.Form.Get("id"); got != "users/test/collection" {
			t.Errorf("list id = %q, want users/test/collection", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"type": "Image", "id": "users/test/collection/a"}]}`))
	})

	setupCLITest(t, server.URL())

	stdout, _, err := runCLI(t, "asset", "ls", "users/test/collection")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "users/test/collection/a") {
		t.Errorf("output = %s, want child asset listed", stdout.String())
	}
}

func TestAssetInfo_NotFound(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.HandleError("POST", "/info", 404, "Asset not found.")

	setupCLITest(t, server.URL())

	_, _, err := runCLI(t, "asset", "info", "users/test/missing")
	if err == nil {
		t.Fatal("expected error for missing asset")
	}
	if ExitCode(err) != ExitUser && ExitCode(err) != ExitNotFound {
		t.Errorf("exit code = %d, want user or not-found class", ExitCode(err))
	}
	if !strings.Contains(err.Error(), "not found") && !strings.Contains(err.Error(), "failed to get asset") {
		t.Errorf("error = %v, want not-found wording", err)
	}
}

func TestAssetCreate_Folder(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.Handle("POST", "/create", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		var value map[string]interface{}
		if err := json.Unmarshal([]byte(r.Form.Get("value")), &value); err != nil {
			t.Errorf("value is not JSON: %v", err)
		}
		if value["type"] != "Folder" {
			t.Errorf("create type = %v, want Folder", value["type"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"type": "Folder", "id": "users/test/newfolder"}}`))
	})

	setupCLITest(t, server.URL())

	stdout, _, err := runCLI(t, "asset", "create", "users/test/newfolder")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "users/test/newfolder") {
		t.Errorf("output = %s, want created asset id", stdout.String())
	}
}

func TestAssetCreate_InvalidType(t *testing.T) {
	setupCLITest(t, "http://127.0.0.1:0")

	_, _, err := runCLI(t, "asset", "create", "--type", "image", "users/test/x")
	if err == nil {
		t.Fatal("expected error for invalid asset type")
	}
	if ExitCode(err) != ExitUser {
		t.Errorf("exit code = %d, want %d", ExitCode(err), ExitUser)
	}
}

func TestAssetCreate_DryRun(t *testing.T) {
	// No server handler: a dry run must not touch the API.
	setupCLITest(t, "http://127.0.0.1:0")

	stdout, _, err := runCLI(t, "asset", "create", "--dry-run", "users/test/newfolder")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "DRY RUN") {
		t.Errorf("output = %s, want dry run banner", out)
	}
	if !strings.Contains(out, "users/test/newfolder") {
		t.Errorf("output = %s, want target asset id", out)
	}
}

func TestAssetRm_Single(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	deleted := make(chan string, 1)
	server.Handle("POST", "/delete", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		deleted <- r.Form.Get("id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {}}`))
	})

	setupCLITest(t, server.URL())

	stdout, _, err := runCLI(t, "asset", "rm", "users/test/old")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	select {
	case id := <-deleted:
		if id != "users/test/old" {
			t.Errorf("deleted id = %q, want users/test/old", id)
		}
	default:
		t.Fatal("delete endpoint was never called")
	}

	var summary struct {
		Total     int `json:"total"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &summary); err != nil {
		t.Fatalf("output is not JSON: %v\nraw: %s", err, stdout.String())
	}
	if summary.Total != 1 || summary.Succeeded != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 1/1/0", summary)
	}
}

func TestAssetRm_PartialFailure(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.Handle("POST", "/delete", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("id") == "users/test/bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "Cannot delete."}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": {}}`))
	})

	setupCLITest(t, server.URL())

	_, _, err := runCLI(t, "asset", "rm", "users/test/good", "users/test/bad")
	if err == nil {
		t.Fatal("expected error when one deletion fails")
	}
	if !strings.Contains(err.Error(), "1 of 2 deletions failed") {
		t.Errorf("error = %v, want partial failure summary", err)
	}
}

func TestAssetRm_RecursiveNeedsConfirmation(t *testing.T) {
	// Non-interactive without --yes: recursive deletion must refuse.
	setupCLITest(t, "http://127.0.0.1:0")

	_, _, err := runCLI(t, "asset", "rm", "-r", "users/test/folder")
	if err == nil {
		t.Fatal("expected refusal without --yes")
	}
	if !strings.Contains(err.Error(), "aborted") {
		t.Errorf("error = %v, want abort message", err)
	}
	if ExitCode(err) != ExitUser {
		t.Errorf("exit code = %d, want %d", ExitCode(err), ExitUser)
	}
}

func TestAssetRm_RecursiveWalksChildren(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()

	var mu sync.Mutex
	var order []string

	server.Handle("POST", "/list", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("id") == "users/test/folder" {
			_, _ = w.Write([]byte(`{"data": [{"type": "Image", "id": "users/test/folder/img"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	})
	server.Handle("POST", "/delete", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		mu.Lock()
		order = append(order, r.Form.Get("id"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {}}`))
	})

	setupCLITest(t, server.URL())

	_, _, err := runCLI(t, "asset", "rm", "-r", "--yes", "users/test/folder")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 {
		t.Fatalf("got %d deletions, want 2 (child then folder)", len(order))
	}
	if order[0] != "users/test/folder/img" || order[1] != "users/test/folder" {
		t.Errorf("deletion order = %v, want child before parent", order)
	}
}

func TestAssetACLSet_PublicFetchesAndModifies(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.HandleData("GET", "/getacl", map[string]interface{}{
		"owners":             []string{"user:test@example.com"},
		"writers":            []string{},
		"readers":            []string{"user:other@example.com"},
		"all_users_can_read": false,
	})
	server.Handle("POST", "/setacl", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		var acl map[string]interface{}
		if err := json.Unmarshal([]byte(r.Form.Get("value")), &acl); err != nil {
			t.Errorf("acl is not JSON: %v", err)
		}
		if acl["all_users_can_read"] != true {
			t.Errorf("all_users_can_read = %v, want true", acl["all_users_can_read"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {}}`))
	})

	setupCLITest(t, server.URL())

	stdout, _, err := runCLI(t, "asset", "acl", "set", "--public", "users/test/dem")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "success") {
		t.Errorf("output = %s, want success status", stdout.String())
	}
}
