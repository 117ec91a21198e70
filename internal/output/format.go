package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	clierrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

// Format represents the output format type.
type Format string

const (
	// FormatText is human-readable key-value format (default).
	FormatText Format = "text"
	// FormatJSON is pretty-printed JSON format.
	FormatJSON Format = "json"
	// FormatNDJSON is newline-delimited JSON format.
	FormatNDJSON Format = "ndjson"
	// FormatTable is tabular format for lists.
	FormatTable Format = "table"
	// FormatYAML is YAML format.
	FormatYAML Format = "yaml"
)

// ParseFormat converts a string to a Format type.
// Empty string defaults to FormatText.
// Returns error if the format is invalid.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatNDJSON, "jsonl":
		return FormatNDJSON, nil
	case FormatTable:
		return FormatTable, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", errors.New("invalid --output format (expected text|json|ndjson|jsonl|table|yaml)")
	}
}

// Printer handles output formatting across different formats.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter creates a new Printer that writes to w in the given format.
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{
		w:      w,
		format: format,
	}
}

// Print outputs data in the configured format. The data runs through the
// shared pipeline first: _meta injection for list envelopes, --sort-by and
// --limit, --results-only, then --fields/--jsonpath projections.
func (p *Printer) Print(ctx context.Context, data interface{}) error {
	if data == nil {
		return nil
	}

	// _meta only belongs in structured formats; tables and text drop it
	if p.format == FormatJSON || p.format == FormatNDJSON || p.format == FormatYAML {
		data = injectMeta(data)
	}

	data = ApplySortLimit(ctx, data)
	data = ApplyResultsOnly(ctx, data)
	updated, err := applyOutputTransforms(ctx, data, p.format)
	if err != nil {
		return err
	}
	data = updated
	if FailEmptyFromContext(ctx) && isEmptyResult(data) {
		return clierrors.NewUserError("no results", "Remove --fail-empty to allow empty output")
	}

	switch p.format {
	case FormatJSON:
		return p.printJSON(ctx, data)
	case FormatNDJSON:
		return p.printNDJSON(ctx, data)
	case FormatYAML:
		return p.printYAML(data)
	case FormatTable:
		return p.printTable(data)
	case FormatText:
		return p.printText(ctx, data)
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
}

func (p *Printer) printYAML(data interface{}) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(data)
}

// unwrap follows pointers and interfaces down to the concrete value.
// Nil pointers and nil interfaces are returned as-is so callers can
// decide how to render them.
func unwrap(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// fieldJSONName returns the json tag name for a struct field, or the field name.
func fieldJSONName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" && tag != "-" {
		if idx := strings.Index(tag, ","); idx > 0 {
			return tag[:idx]
		}
		return tag
	}
	return f.Name
}

// sortedMapKeys returns a map's keys ordered by their string form, so
// rendered output is deterministic regardless of map iteration order.
func sortedMapKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%v", keys[i]) < fmt.Sprintf("%v", keys[j])
	})
	return keys
}

// scalarString renders a simple value for envelope metadata display.
func (p *Printer) scalarString(v reflect.Value) string {
	v = unwrap(v)
	if (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("%v", v)
}

// compactCell renders a value for a single table cell, keeping it short.
// Small structs flatten to their populated fields, and asset-shaped maps
// collapse to their IDs so ACL and band listings stay one line.
func (p *Printer) compactCell(v reflect.Value) string {
	if !v.IsValid() {
		return "<nil>"
	}
	v = unwrap(v)
	if (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil() {
		return "<nil>"
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		var parts []string
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			cell := p.compactCell(v.Field(i))
			if cell != "" && cell != "<nil>" {
				parts = append(parts, cell)
			}
		}
		if len(parts) == 1 {
			return parts[0]
		}
		return strings.Join(parts, ", ")
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		if id := v.MapIndex(reflect.ValueOf("id")); id.IsValid() {
			return p.compactCell(id)
		}
		return p.renderMapInline(v)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		if ids := p.joinAssetIDs(v); ids != "" {
			return ids
		}
		return p.renderSliceInline(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// joinAssetIDs comma-joins the "id" fields of a slice of asset-shaped maps,
// e.g. [{id: "users/foo"}, {id: "users/bar"}] -> "users/foo, users/bar".
// Returns empty string when any element lacks an id.
func (p *Printer) joinAssetIDs(v reflect.Value) string {
	if v.Len() == 0 {
		return ""
	}
	var parts []string
	for i := 0; i < v.Len(); i++ {
		item := unwrap(v.Index(i))
		if item.Kind() != reflect.Map {
			return ""
		}
		id := item.MapIndex(reflect.ValueOf("id"))
		if !id.IsValid() {
			return ""
		}
		parts = append(parts, fmt.Sprintf("%v", unwrap(id)))
	}
	return strings.Join(parts, ", ")
}

// renderValue recursively renders a value into a human-readable string.
// It exists so text output never falls through to Go's default %v, which
// prints pointer addresses and raw struct notation.
func (p *Printer) renderValue(v reflect.Value) string {
	if !v.IsValid() {
		return "<nil>"
	}
	v = unwrap(v)
	if (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil() {
		return "<nil>"
	}

	switch v.Kind() {
	case reflect.Struct:
		return p.renderStructInline(v)
	case reflect.Map:
		return p.renderMapInline(v)
	case reflect.Slice, reflect.Array:
		return p.renderSliceInline(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// renderStructInline renders a struct as {key value, key value}.
func (p *Printer) renderStructInline(v reflect.Value) string {
	t := v.Type()
	var parts []string
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", fieldJSONName(field), p.renderValue(v.Field(i))))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// renderMapInline renders a map as map[key:value key:value] with sorted keys.
func (p *Printer) renderMapInline(v reflect.Value) string {
	var parts []string
	for _, key := range sortedMapKeys(v) {
		parts = append(parts, fmt.Sprintf("%v:%v", key, p.renderValue(v.MapIndex(key))))
	}
	return "map[" + strings.Join(parts, " ") + "]"
}

// renderSliceInline renders a slice as [item1, item2, ...].
func (p *Printer) renderSliceInline(v reflect.Value) string {
	var parts []string
	for i := 0; i < v.Len(); i++ {
		parts = append(parts, p.renderValue(v.Index(i)))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
