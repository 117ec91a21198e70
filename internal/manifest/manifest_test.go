package manifest

import (
	"strings"
	"testing"
)

const validManifest = `{
  "id": "users/foo/bar",
  "tilesets": [
    {"sources": [
      {"primaryPath": "gs://bucket/foo.tif", "additionalPaths": ["gs://bucket/foo.prj"]},
      {"primaryPath": "gs://bucket/bar.tif"}
    ]}
  ],
  "bands": [{"id": "R"}, {"id": "G"}, {"id": "B"}],
  "properties": {"system:time_start": 1262304000000}
}`

func TestParseAndValidate(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.ID != "users/foo/bar" {
		t.Errorf("unexpected id: %q", m.ID)
	}
	if len(m.Tilesets) != 1 || len(m.Tilesets[0].Sources) != 2 {
		t.Errorf("unexpected tilesets: %+v", m.Tilesets)
	}
	if len(m.Bands) != 3 || m.Bands[0].ID != "R" {
		t.Errorf("unexpected bands: %+v", m.Bands)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{"id": "users/foo/bar", "tileset": []}`))
	if err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		m    Manifest
		want string
	}{
		{
			"missing id",
			Manifest{Tilesets: []Tileset{{Sources: []Source{{PrimaryPath: "gs://b/o.tif"}}}}},
			"id",
		},
		{
			"no tilesets",
			Manifest{ID: "users/foo/bar"},
			"at least one tileset",
		},
		{
			"empty tileset",
			Manifest{ID: "users/foo/bar", Tilesets: []Tileset{{}}},
			"at least one source",
		},
		{
			"non-gcs source",
			Manifest{ID: "users/foo/bar", Tilesets: []Tileset{
				{Sources: []Source{{PrimaryPath: "/local/file.tif"}}},
			}},
			"gs://",
		},
		{
			"non-gcs sidecar",
			Manifest{ID: "users/foo/bar", Tilesets: []Tileset{
				{Sources: []Source{{PrimaryPath: "gs://b/o.tif", AdditionalPaths: []string{"o.prj"}}}},
			}},
			"additionalPaths",
		},
		{
			"empty band id",
			Manifest{ID: "users/foo/bar",
				Tilesets: []Tileset{{Sources: []Source{{PrimaryPath: "gs://b/o.tif"}}}},
				Bands:    []Band{{ID: ""}}},
			"bands[0]",
		},
		{
			"duplicate band",
			Manifest{ID: "users/foo/bar",
				Tilesets: []Tileset{{Sources: []Source{{PrimaryPath: "gs://b/o.tif"}}}},
				Bands:    []Band{{ID: "R"}, {ID: "R"}}},
			"duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	m := Normalize("users/foo/new", []string{"gs://b/a.tif", "gs://b/b.tif"})
	if err := m.Validate(); err != nil {
		t.Fatalf("normalized manifest invalid: %v", err)
	}
	if len(m.Tilesets) != 2 {
		t.Fatalf("expected one tileset per source, got %d", len(m.Tilesets))
	}
	if m.Tilesets[1].Sources[0].PrimaryPath != "gs://b/b.tif" {
		t.Errorf("unexpected source: %+v", m.Tilesets[1])
	}
}

func TestRequest(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatal(err)
	}

	req, err := m.Request()
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if req["id"] != "users/foo/bar" {
		t.Errorf("unexpected request id: %v", req["id"])
	}
	if _, ok := req["tilesets"].([]interface{}); !ok {
		t.Errorf("expected tilesets array, got %T", req["tilesets"])
	}
	if _, ok := req["properties"].(map[string]interface{}); !ok {
		t.Errorf("expected properties map, got %T", req["properties"])
	}
}
