package aliasfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleFile = `# Earth Engine Aliases

## Assets

| Alias | Asset ID | Note |
|-------|----------|------|
| dem | USGS/SRTMGL1_003 | global elevation |
| parcels | users/foo/parcels | |

## Projects

| Alias | Project | Note |
|-------|---------|------|
| prod | my-ee-project | billing project |
`

func withTempAliasFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliases.md")
	orig := SetPathFunc(func() string { return path })
	t.Cleanup(func() { SetPathFunc(orig) })
	return path
}

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleFile))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(f.Assets) != 2 {
		t.Fatalf("expected 2 asset aliases, got %d", len(f.Assets))
	}
	if f.Assets["dem"].ID != "USGS/SRTMGL1_003" {
		t.Errorf("unexpected dem alias: %+v", f.Assets["dem"])
	}
	if f.Assets["dem"].Note != "global elevation" {
		t.Errorf("unexpected note: %q", f.Assets["dem"].Note)
	}
	if f.Projects["prod"].Project != "my-ee-project" {
		t.Errorf("unexpected project alias: %+v", f.Projects["prod"])
	}
}

func TestResolveAsset(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleFile))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"dem", "USGS/SRTMGL1_003", true},
		{"parcels", "users/foo/parcels", true},
		{"users/bar/direct", "users/bar/direct", true},
		{"projects/p/assets/x", "projects/p/assets/x", true},
		{"LANDSAT/LC08/C02/T1", "LANDSAT/LC08/C02/T1", true},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		got, ok := f.ResolveAsset(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ResolveAsset(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolveProject(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleFile))
	if err != nil {
		t.Fatal(err)
	}
	if got := f.ResolveProject("prod"); got != "my-ee-project" {
		t.Errorf("expected alias resolution, got %q", got)
	}
	if got := f.ResolveProject("literal-project"); got != "literal-project" {
		t.Errorf("expected passthrough, got %q", got)
	}
}

func TestSetRemove(t *testing.T) {
	f := newFile()
	f.Set("ndvi", "users/foo/ndvi", "monthly composite")

	id, ok := f.ResolveAsset("ndvi")
	if !ok || id != "users/foo/ndvi" {
		t.Errorf("expected set alias to resolve, got %q, %v", id, ok)
	}

	if !f.Remove("ndvi") {
		t.Error("expected Remove to report existing alias")
	}
	if f.Remove("ndvi") {
		t.Error("expected Remove to report missing alias")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	f := newFile()
	f.Set("b", "users/foo/b", "")
	f.Set("a", "users/foo/a", "first")
	f.Projects["prod"] = ProjectAlias{Alias: "prod", Project: "my-ee-project"}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Aliases render sorted.
	out := buf.String()
	if strings.Index(out, "| a |") > strings.Index(out, "| b |") {
		t.Error("expected aliases sorted by name")
	}

	parsed, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse of written file failed: %v", err)
	}
	if len(parsed.Assets) != 2 || parsed.Assets["a"].Note != "first" {
		t.Errorf("round trip lost data: %+v", parsed.Assets)
	}
	if parsed.Projects["prod"].Project != "my-ee-project" {
		t.Errorf("round trip lost project: %+v", parsed.Projects)
	}
}

func TestLoadSave(t *testing.T) {
	path := withTempAliasFile(t)

	// Missing file loads empty.
	f, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(f.Assets) != 0 {
		t.Errorf("expected empty alias set, got %+v", f.Assets)
	}

	f.Set("dem", "USGS/SRTMGL1_003", "")
	if err := f.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("alias file not written: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if id, ok := loaded.ResolveAsset("dem"); !ok || id != "USGS/SRTMGL1_003" {
		t.Errorf("expected saved alias to load, got %q, %v", id, ok)
	}
}
