// Package manifest parses and validates image ingestion manifests: the
// JSON document `upload` sends to the ingestion endpoint, describing the
// destination asset, the Cloud Storage tilesets to ingest and optional
// band names and properties.
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verdantlabs/earthengine-cli/internal/validate"
)

// Source is one source file of a tileset: a primary raster plus any
// sidecar files (world files, projections) that accompany it.
type Source struct {
	PrimaryPath     string   `json:"primaryPath"`
	AdditionalPaths []string `json:"additionalPaths,omitempty"`
}

// Tileset groups source files that form one mosaic.
type Tileset struct {
	Sources []Source `json:"sources"`
}

// Band names an output band of the ingested image.
type Band struct {
	ID string `json:"id"`
}

// Manifest is an ingestion request payload.
type Manifest struct {
	ID         string                 `json:"id"`
	Tilesets   []Tileset              `json:"tilesets"`
	Bands      []Band                 `json:"bands,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Parse decodes a manifest from JSON. Unknown fields are rejected so a
// typo like "tileset" fails here instead of being silently dropped by
// the service.
func Parse(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the manifest is complete enough to submit: a valid
// destination asset ID, at least one tileset with gs:// sources, and
// non-empty band IDs when bands are given.
func (m *Manifest) Validate() error {
	if err := validate.AssetID("id", m.ID); err != nil {
		return err
	}

	if len(m.Tilesets) == 0 {
		return fmt.Errorf("tilesets: at least one tileset is required")
	}
	for i, ts := range m.Tilesets {
		if len(ts.Sources) == 0 {
			return fmt.Errorf("tilesets[%d]: at least one source is required", i)
		}
		for j, src := range ts.Sources {
			field := fmt.Sprintf("tilesets[%d].sources[%d].primaryPath", i, j)
			if err := validate.GCSURI(field, src.PrimaryPath); err != nil {
				return err
			}
			for k, extra := range src.AdditionalPaths {
				field := fmt.Sprintf("tilesets[%d].sources[%d].additionalPaths[%d]", i, j, k)
				if err := validate.GCSURI(field, extra); err != nil {
					return err
				}
			}
		}
	}

	seen := make(map[string]bool, len(m.Bands))
	for i, b := range m.Bands {
		if b.ID == "" {
			return fmt.Errorf("bands[%d].id: cannot be empty", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("bands[%d].id: duplicate band %q", i, b.ID)
		}
		seen[b.ID] = true
	}

	return nil
}

// Normalize builds a manifest from a destination ID and a flat list of
// gs:// source URIs, one single-source tileset per URI. This backs the
// `upload <id> gs://... gs://...` shorthand that skips writing a
// manifest file.
func Normalize(assetID string, sources []string) *Manifest {
	m := &Manifest{ID: assetID}
	for _, src := range sources {
		m.Tilesets = append(m.Tilesets, Tileset{
			Sources: []Source{{PrimaryPath: src}},
		})
	}
	return m
}

// Request returns the manifest as the generic map the ingestion
// endpoint expects.
func (m *Manifest) Request() (map[string]interface{}, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
