// Package aliasfile parses and resolves friendly names for Earth Engine
// asset IDs. The alias file is a markdown document with tables mapping
// short aliases to asset paths, kept human-editable on purpose.
package aliasfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

// File is the parsed alias file.
type File struct {
	Assets   map[string]AssetAlias
	Projects map[string]ProjectAlias
}

// AssetAlias maps a short name to an asset ID.
type AssetAlias struct {
	Alias string
	ID    string
	Note  string
}

// ProjectAlias maps a short name to a Cloud project.
type ProjectAlias struct {
	Alias   string
	Project string
	Note    string
}

// aliasPathFunc resolves the alias file path; swapped in tests.
var aliasPathFunc = defaultPath

// SetPathFunc overrides the alias file path resolver for testing.
// Returns the original so callers can restore it.
func SetPathFunc(fn func() string) func() string {
	orig := aliasPathFunc
	aliasPathFunc = fn
	return orig
}

func defaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "earthengine", "aliases.md")
}

// DefaultPath returns the alias file location.
func DefaultPath() string {
	return aliasPathFunc()
}

func newFile() *File {
	return &File{
		Assets:   make(map[string]AssetAlias),
		Projects: make(map[string]ProjectAlias),
	}
}

// Load reads the alias file from the default path. A missing file
// yields an empty alias set, not an error.
func Load() (*File, error) {
	f, err := os.Open(DefaultPath())
	if err != nil {
		if os.IsNotExist(err) {
			return newFile(), nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads alias tables from markdown. Section headers (`## Assets`,
// `## Projects`) select the table shape; rows outside known sections
// are ignored.
func Parse(r io.Reader) (*File, error) {
	file := newFile()

	scanner := bufio.NewScanner(r)
	var currentSection string
	var inTable bool
	var headerParsed bool

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "## ") {
			currentSection = strings.TrimPrefix(line, "## ")
			inTable = false
			headerParsed = false
			continue
		}

		if strings.HasPrefix(line, "|") && strings.Contains(line, "Alias") {
			inTable = true
			headerParsed = false
			continue
		}

		if inTable && strings.Contains(line, "---") {
			headerParsed = true
			continue
		}

		if inTable && headerParsed && strings.HasPrefix(line, "|") {
			cells := parseTableRow(line)
			if len(cells) < 2 {
				continue
			}

			note := ""
			if len(cells) >= 3 {
				note = cells[2]
			}

			switch currentSection {
			case "Assets":
				alias := cells[0]
				file.Assets[alias] = AssetAlias{Alias: alias, ID: cells[1], Note: note}
			case "Projects":
				alias := cells[0]
				file.Projects[alias] = ProjectAlias{Alias: alias, Project: cells[1], Note: note}
			}
		}

		if inTable && strings.TrimSpace(line) == "" {
			inTable = false
		}
	}

	return file, scanner.Err()
}

func parseTableRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// ResolveAsset maps an alias to its asset ID. Values that already look
// like asset paths pass through unchanged, so commands can resolve
// every positional argument without caring which form was given.
func (f *File) ResolveAsset(aliasOrID string) (string, bool) {
	if a, ok := f.Assets[aliasOrID]; ok {
		return a.ID, true
	}
	if looksLikeAssetID(aliasOrID) {
		return aliasOrID, true
	}
	return "", false
}

// ResolveProject maps an alias to its project name, passing through
// values with no alias entry.
func (f *File) ResolveProject(alias string) string {
	if p, ok := f.Projects[alias]; ok {
		return p.Project
	}
	return alias
}

// Set adds or replaces an asset alias.
func (f *File) Set(alias, id, note string) {
	f.Assets[alias] = AssetAlias{Alias: alias, ID: id, Note: note}
}

// Remove deletes an asset alias. Returns false when it did not exist.
func (f *File) Remove(alias string) bool {
	if _, ok := f.Assets[alias]; !ok {
		return false
	}
	delete(f.Assets, alias)
	return true
}

func looksLikeAssetID(s string) bool {
	if strings.HasPrefix(s, "users/") || strings.HasPrefix(s, "projects/") {
		return strings.Count(s, "/") >= 1
	}
	// Public catalog IDs are slash-separated and start uppercase.
	if strings.Contains(s, "/") && s[0] >= 'A' && s[0] <= 'Z' {
		return true
	}
	return false
}

const aliasTemplate = `# Earth Engine Aliases

Friendly names for asset IDs and projects, resolved by the earthengine
CLI before any asset argument is sent.

## Assets

| Alias | Asset ID | Note |
|-------|----------|------|
{{- range .SortedAssets }}
| {{ .Alias }} | {{ .ID }} | {{ .Note }} |
{{- end }}

## Projects

| Alias | Project | Note |
|-------|---------|------|
{{- range .SortedProjects }}
| {{ .Alias }} | {{ .Project }} | {{ .Note }} |
{{- end }}
`

// Write renders the alias file as markdown.
func (f *File) Write(w io.Writer) error {
	tmpl, err := template.New("aliases").Parse(aliasTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	data := struct {
		SortedAssets   []AssetAlias
		SortedProjects []ProjectAlias
	}{
		SortedAssets:   f.sortedAssets(),
		SortedProjects: f.sortedProjects(),
	}

	return tmpl.Execute(w, data)
}

// Save writes the alias file to the default path.
func (f *File) Save() error {
	path := DefaultPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create alias directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create alias file: %w", err)
	}
	defer func() { _ = out.Close() }()

	return f.Write(out)
}

func (f *File) sortedAssets() []AssetAlias {
	out := make([]AssetAlias, 0, len(f.Assets))
	for _, a := range f.Assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

func (f *File) sortedProjects() []ProjectAlias {
	out := make([]ProjectAlias, 0, len(f.Projects))
	for _, p := range f.Projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}
