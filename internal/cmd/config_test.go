package cmd

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestConfigSetGet(t *testing.T) {
	setupCLITest(t, "http://127.0.0.1:0")

	if _, _, err := runCLI(t, "config", "set", "output", "yaml"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	stdout, _, err := runCLI(t, "config", "get", "output")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	var payload struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("output is not JSON: %v\nraw: %s", err, stdout.String())
	}
	if payload.Value != "yaml" {
		t.Errorf("output value = %q, want yaml", payload.Value)
	}
}

func TestConfigSet_InvalidValues(t *testing.T) {
	setupCLITest(t, "http://127.0.0.1:0")

	for _, args := range [][]string{
		{"config", "set", "output", "xml"},
		{"config", "set", "color", "sometimes"},
		{"config", "set", "credential_store", "vault"},
		{"config", "set", "nonsense", "x"},
	} {
		_, _, err := runCLI(t, args...)
		if err == nil {
			t.Errorf("runCLI(%v) succeeded, want validation error", args)
			continue
		}
		if ExitCode(err) != ExitUser {
			t.Errorf("runCLI(%v) exit code = %d, want %d", args, ExitCode(err), ExitUser)
		}
	}
}

func TestConfigSet_DefaultProjectMustExist(t *testing.T) {
	setupCLITest(t, "http://127.0.0.1:0")

	_, _, err := runCLI(t, "config", "set", "default_project", "nope")
	if err == nil {
		t.Fatal("expected error for unknown project profile")
	}
	if ExitCode(err) != ExitUser {
		t.Errorf("exit code = %d, want %d", ExitCode(err), ExitUser)
	}
}

func TestConfigProjectLifecycle(t *testing.T) {
	setupCLITest(t, "http://127.0.0.1:0")

	if _, _, err := runCLI(t, "config", "project", "add", "prod",
		"--cloud-project", "my-gcp-project",
		"--api-url", "https://ee.example.com/api"); err != nil {
		t.Fatalf("project add failed: %v", err)
	}
	if _, _, err := runCLI(t, "config", "project", "use", "prod"); err != nil {
		t.Fatalf("project use failed: %v", err)
	}

	stdout, _, err := runCLI(t, "config", "project", "list")
	if err != nil {
		t.Fatalf("project list failed: %v", err)
	}
	var listed struct {
		Projects []struct {
			Name    string `json:"name"`
			Project string `json:"project"`
			Default bool   `json:"default"`
		} `json:"projects"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &listed); err != nil {
		t.Fatalf("output is not JSON: %v\nraw: %s", err, stdout.String())
	}
	if len(listed.Projects) != 1 {
		t.Fatalf("got %d profiles, want 1", len(listed.Projects))
	}
	if p := listed.Projects[0]; p.Name != "prod" || p.Project != "my-gcp-project" || !p.Default {
		t.Errorf("profile = %+v, want prod/my-gcp-project/default", p)
	}

	if _, _, err := runCLI(t, "config", "project", "rm", "prod"); err != nil {
		t.Fatalf("project rm failed: %v", err)
	}
	_, _, err = runCLI(t, "config", "project", "rm", "prod")
	if err == nil {
		t.Fatal("removing a removed profile succeeded, want not-found error")
	}
}

func TestConfigPath(t *testing.T) {
	setupCLITest(t, "http://127.0.0.1:0")

	stdout, _, err := runCLI(t, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "config.yaml") {
		t.Errorf("path = %q, want config.yaml location", strings.TrimSpace(stdout.String()))
	}
}

func TestConfigList(t *testing.T) {
	setupCLITest(t, "http://127.0.0.1:0")

	if _, _, err := runCLI(t, "config", "set", "color", "never"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	stdout, _, err := runCLI(t, "config", "list")
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("output is not JSON: %v\nraw: %s", err, stdout.String())
	}
	if payload["color"] != "never" {
		t.Errorf("color = %v, want never", payload["color"])
	}
}
