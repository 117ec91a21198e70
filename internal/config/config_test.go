package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPath(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantErr     bool
		wantOutput  string
		wantColor   string
		wantDefault string
		wantStore   string
	}{
		{
			name: "valid config",
			content: `output: json
color: always
credential_store: keyring
default_project: research`,
			wantOutput:  "json",
			wantColor:   "always",
			wantDefault: "research",
			wantStore:   "keyring",
		},
		{
			name:    "empty config",
			content: "",
		},
		{
			name:    "invalid yaml",
			content: "invalid: [yaml",
			wantErr: true,
		},
		{
			name: "partial config",
			content: `output: table
projects:
  research:
    project: ee-research`,
			wantOutput: "table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")

			if tt.content != "" {
				if err := os.WriteFile(configPath, []byte(tt.content), 0o600); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}
			}

			cfg, err := LoadFromPath(configPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFromPath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				return
			}

			if cfg.GetOutput() != tt.wantOutput {
				t.Errorf("GetOutput() = %v, want %v", cfg.GetOutput(), tt.wantOutput)
			}
			if cfg.GetColor() != tt.wantColor {
				t.Errorf("GetColor() = %v, want %v", cfg.GetColor(), tt.wantColor)
			}
			if cfg.DefaultProject != tt.wantDefault {
				t.Errorf("DefaultProject = %v, want %v", cfg.DefaultProject, tt.wantDefault)
			}
			if cfg.CredentialStore != tt.wantStore {
				t.Errorf("CredentialStore = %v, want %v", cfg.CredentialStore, tt.wantStore)
			}
		})
	}
}

func TestLoadFromPath_NonExistent(t *testing.T) {
	cfg, err := LoadFromPath("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("LoadFromPath() should return empty config for nonexistent file, got error: %v", err)
	}
	if cfg == nil {
		t.Error("LoadFromPath() returned nil config")
	}
}

func TestSaveToPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := &Config{
		Output:         "json",
		Color:          "auto",
		DefaultProject: "research",
		Projects: map[string]ProjectConfig{
			"research": {
				Project: "ee-research",
			},
			"staging": {
				Project: "ee-staging",
				APIURL:  "https://staging.example.com/api",
				Output:  "table",
			},
		},
	}

	if err := cfg.SaveToPath(configPath); err != nil {
		t.Fatalf("SaveToPath() error = %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("failed to stat config file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file permissions = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if loaded.Output != cfg.Output {
		t.Errorf("loaded.Output = %v, want %v", loaded.Output, cfg.Output)
	}
	if loaded.DefaultProject != cfg.DefaultProject {
		t.Errorf("loaded.DefaultProject = %v, want %v", loaded.DefaultProject, cfg.DefaultProject)
	}
	if len(loaded.Projects) != len(cfg.Projects) {
		t.Errorf("loaded.Projects len = %v, want %v", len(loaded.Projects), len(cfg.Projects))
	}
	if loaded.Projects["staging"].APIURL != "https://staging.example.com/api" {
		t.Errorf("staging APIURL = %v", loaded.Projects["staging"].APIURL)
	}
}

func TestSaveToPath_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := &Config{Output: "json"}
	if err := cfg.SaveToPath(configPath); err != nil {
		t.Fatalf("SaveToPath() error = %v", err)
	}

	dirInfo, err := os.Stat(filepath.Dir(configPath))
	if err != nil {
		t.Fatalf("failed to stat config directory: %v", err)
	}
	if !dirInfo.IsDir() {
		t.Error("config path is not a directory")
	}
	if dirInfo.Mode().Perm() != 0o700 {
		t.Errorf("config directory permissions = %v, want 0700", dirInfo.Mode().Perm())
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error = %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	expected := filepath.Join(home, ".config", "earthengine", "config.yaml")
	if path != expected {
		t.Errorf("DefaultConfigPath() = %v, want %v", path, expected)
	}
}

func TestSetConfigPathFunc(t *testing.T) {
	orig := SetConfigPathFunc(func() (string, error) {
		return "/tmp/test-config.yaml", nil
	})
	defer SetConfigPathFunc(orig)

	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error = %v", err)
	}
	if path != "/tmp/test-config.yaml" {
		t.Errorf("DefaultConfigPath() = %v, want override", path)
	}
}

func TestGetProject(t *testing.T) {
	cfg := &Config{
		Projects: map[string]ProjectConfig{
			"research": {Name: "research", Project: "ee-research"},
			"staging":  {Name: "staging", Project: "ee-staging", APIURL: "https://staging.example.com/api"},
		},
	}

	tests := []struct {
		name     string
		projName string
		wantErr  bool
	}{
		{name: "existing project", projName: "research", wantErr: false},
		{name: "another existing project", projName: "staging", wantErr: false},
		{name: "non-existent project", projName: "unknown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.GetProject(tt.projName)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetProject() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && p == nil {
				t.Error("GetProject() returned nil project")
			}
			if !tt.wantErr && p.Name != tt.projName {
				t.Errorf("GetProject() returned project named %v, want %v", p.Name, tt.projName)
			}
		})
	}
}

func TestGetProject_NilProjects(t *testing.T) {
	cfg := &Config{}
	if _, err := cfg.GetProject("any"); err == nil {
		t.Error("GetProject() should return error when Projects is nil")
	}
}

func TestGetDefaultProject(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		wantName string
		wantErr  bool
	}{
		{
			name: "explicit default",
			cfg: &Config{
				DefaultProject: "research",
				Projects: map[string]ProjectConfig{
					"research": {Name: "research"},
					"staging":  {Name: "staging"},
				},
			},
			wantName: "research",
		},
		{
			name: "single project implied default",
			cfg: &Config{
				Projects: map[string]ProjectConfig{
					"only": {Name: "only"},
				},
			},
			wantName: "only",
		},
		{
			name: "multiple projects without default",
			cfg: &Config{
				Projects: map[string]ProjectConfig{
					"a": {Name: "a"},
					"b": {Name: "b"},
				},
			},
			wantErr: true,
		},
		{
			name:    "no projects",
			cfg:     &Config{},
			wantErr: true,
		},
		{
			name: "default points at missing project",
			cfg: &Config{
				DefaultProject: "gone",
				Projects: map[string]ProjectConfig{
					"here": {Name: "here"},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.cfg.GetDefaultProject()
			if (err != nil) != tt.wantErr {
				t.Errorf("GetDefaultProject() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && p.Name != tt.wantName {
				t.Errorf("GetDefaultProject() = %v, want %v", p.Name, tt.wantName)
			}
		})
	}
}

func TestSetDefaultProject(t *testing.T) {
	cfg := &Config{
		Projects: map[string]ProjectConfig{
			"research": {Name: "research"},
		},
	}

	if err := cfg.SetDefaultProject("research"); err != nil {
		t.Errorf("SetDefaultProject() error = %v", err)
	}
	if cfg.DefaultProject != "research" {
		t.Errorf("DefaultProject = %v, want research", cfg.DefaultProject)
	}

	if err := cfg.SetDefaultProject("missing"); err == nil {
		t.Error("SetDefaultProject() should fail for unknown project")
	}
}

func TestAddProject(t *testing.T) {
	cfg := &Config{}

	if err := cfg.AddProject("research", ProjectConfig{Project: "ee-research"}); err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}

	if cfg.DefaultProject != "research" {
		t.Errorf("first project should become default, got %q", cfg.DefaultProject)
	}
	if cfg.Projects["research"].Name != "research" {
		t.Error("AddProject() should set the Name field")
	}

	if err := cfg.AddProject("research", ProjectConfig{}); err == nil {
		t.Error("AddProject() should reject duplicate name")
	}
	if err := cfg.AddProject("", ProjectConfig{}); err == nil {
		t.Error("AddProject() should reject empty name")
	}

	if err := cfg.AddProject("staging", ProjectConfig{}); err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}
	if cfg.DefaultProject != "research" {
		t.Error("adding a second project should not change the default")
	}
}

func TestRemoveProject(t *testing.T) {
	cfg := &Config{
		DefaultProject: "research",
		Projects: map[string]ProjectConfig{
			"research": {Name: "research"},
			"staging":  {Name: "staging"},
		},
	}

	if err := cfg.RemoveProject("research"); err != nil {
		t.Fatalf("RemoveProject() error = %v", err)
	}

	if cfg.DefaultProject != "staging" {
		t.Errorf("removing the default should promote the last project, got %q", cfg.DefaultProject)
	}

	if err := cfg.RemoveProject("missing"); err == nil {
		t.Error("RemoveProject() should fail for unknown project")
	}

	if err := cfg.RemoveProject("staging"); err != nil {
		t.Fatalf("RemoveProject() error = %v", err)
	}
	if cfg.DefaultProject != "" {
		t.Errorf("DefaultProject should clear when last project removed, got %q", cfg.DefaultProject)
	}

	empty := &Config{}
	if err := empty.RemoveProject("any"); err == nil {
		t.Error("RemoveProject() should fail when Projects is nil")
	}
}

func TestListProjects(t *testing.T) {
	cfg := &Config{
		Projects: map[string]ProjectConfig{
			"zulu":  {},
			"alpha": {},
			"mike":  {},
		},
	}

	got := cfg.ListProjects()
	want := []string{"alpha", "mike", "zulu"}
	if len(got) != len(want) {
		t.Fatalf("ListProjects() len = %v, want %v", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListProjects()[%d] = %v, want %v (sorted)", i, got[i], want[i])
		}
	}

	empty := &Config{}
	if got := empty.ListProjects(); len(got) != 0 {
		t.Errorf("ListProjects() on empty config = %v, want empty", got)
	}
}
