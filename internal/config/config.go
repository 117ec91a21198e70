package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration stored at ~/.config/earthengine/config.yaml.
// Credentials live in a separate file managed by the auth package.
type Config struct {
	// Default output format (text, json, ndjson, table, yaml)
	Output string `yaml:"output,omitempty"`

	// Default color mode (auto, always, never)
	Color string `yaml:"color,omitempty"`

	// Credential store backend: "file" (default) or "keyring"
	CredentialStore string `yaml:"credential_store,omitempty"`

	// Default project name
	DefaultProject string `yaml:"default_project,omitempty"`

	// Named project profiles
	Projects map[string]ProjectConfig `yaml:"projects,omitempty"`
}

// ProjectConfig is a per-project profile. A project selects the Cloud
// project billed for requests and can override endpoints.
type ProjectConfig struct {
	// Display name, mirrors the map key
	Name string `yaml:"name,omitempty"`

	// Cloud project identifier sent with API calls
	Project string `yaml:"project,omitempty"`

	// Optional API base URL override
	APIURL string `yaml:"api_url,omitempty"`

	// Optional tile base URL override
	TileURL string `yaml:"tile_url,omitempty"`

	// Override output format for this project
	Output string `yaml:"output,omitempty"`
}

// configPathFunc resolves the config path; swapped out in tests.
var configPathFunc = defaultConfigPath

// SetConfigPathFunc sets the config path function for testing.
// Returns the original function so it can be restored.
func SetConfigPathFunc(fn func() (string, error)) func() (string, error) {
	orig := configPathFunc
	configPathFunc = fn
	return orig
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "earthengine", "config.yaml"), nil
}

// DefaultConfigPath returns ~/.config/earthengine/config.yaml.
func DefaultConfigPath() (string, error) {
	return configPathFunc()
}

// Load loads config from the default path. A missing file yields an
// empty config, not an error.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return &Config{}, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return &cfg, nil
}

// Save writes config to the default path.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath writes config to path, creating the directory as needed.
func (c *Config) SaveToPath(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// GetOutput returns the configured default output format.
func (c *Config) GetOutput() string {
	return c.Output
}

// GetColor returns the configured color mode.
func (c *Config) GetColor() string {
	return c.Color
}

// GetProject returns a project profile by name.
func (c *Config) GetProject(name string) (*ProjectConfig, error) {
	if c.Projects == nil {
		return nil, fmt.Errorf("project %q not found", name)
	}

	p, ok := c.Projects[name]
	if !ok {
		return nil, fmt.Errorf("project %q not found", name)
	}

	return &p, nil
}

// GetDefaultProject returns the default project profile. With exactly
// one configured project that one wins even without an explicit default.
func (c *Config) GetDefaultProject() (*ProjectConfig, error) {
	if c.DefaultProject != "" {
		return c.GetProject(c.DefaultProject)
	}

	if len(c.Projects) == 1 {
		for _, p := range c.Projects {
			p := p
			return &p, nil
		}
	}

	return nil, fmt.Errorf("no default project configured")
}

// SetDefaultProject sets the default project by name.
func (c *Config) SetDefaultProject(name string) error {
	if _, err := c.GetProject(name); err != nil {
		return err
	}

	c.DefaultProject = name

	return nil
}

// AddProject adds a project profile. The first project added becomes
// the default.
func (c *Config) AddProject(name string, p ProjectConfig) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}

	if c.Projects == nil {
		c.Projects = make(map[string]ProjectConfig)
	}

	if _, exists := c.Projects[name]; exists {
		return fmt.Errorf("project %q already exists", name)
	}

	p.Name = name

	if len(c.Projects) == 0 {
		c.DefaultProject = name
	}

	c.Projects[name] = p
	return nil
}

// RemoveProject removes a project profile. Removing the default leaves
// the single remaining project (if any) as the new default.
func (c *Config) RemoveProject(name string) error {
	if c.Projects == nil {
		return fmt.Errorf("project %q not found", name)
	}

	if _, exists := c.Projects[name]; !exists {
		return fmt.Errorf("project %q not found", name)
	}

	isDefault := c.DefaultProject == name

	delete(c.Projects, name)

	if isDefault {
		c.DefaultProject = ""

		if len(c.Projects) == 1 {
			for pName := range c.Projects {
				c.DefaultProject = pName
				break
			}
		}
	}

	return nil
}

// ListProjects returns all project names, sorted.
func (c *Config) ListProjects() []string {
	if c.Projects == nil {
		return []string{}
	}

	names := make([]string, 0, len(c.Projects))
	for name := range c.Projects {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
