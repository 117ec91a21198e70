package output

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
)

// printText renders data as human-readable text. A --query jq filter is
// applied first when present. List envelopes (a struct or map carrying a
// results slice) and bare slices of structs/maps render as aligned tables;
// single structs render as key-value pairs with indented nesting;
// primitives print directly.
func (p *Printer) printText(ctx context.Context, data interface{}) error {
	if query := QueryFromContext(ctx); query != "" {
		results, err := runQueryRaw(query, data)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		if len(results) == 1 {
			data = results[0]
		} else {
			data = results
		}
	}

	v := reflect.ValueOf(data)
	if !v.IsValid() {
		return nil
	}
	v = unwrap(v)
	if (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil
	}

	switch v.Kind() {
	case reflect.Map:
		if results, meta, ok := p.mapResultsEnvelope(v); ok {
			return p.renderResultsText(results, meta)
		}
		return p.renderKeyValues(v)
	case reflect.Struct:
		if results, meta, ok := p.structResultsEnvelope(v); ok {
			return p.renderResultsText(results, meta)
		}
		return p.renderStructFields(v, "")
	case reflect.Slice, reflect.Array:
		return p.renderSliceText(v)
	default:
		_, err := fmt.Fprintf(p.w, "%v\n", data)
		return err
	}
}

// metaPair is one envelope field shown above the results table.
type metaPair struct {
	name  string
	value string
}

// mapResultsEnvelope reports whether a map is a list envelope: a "results"
// key holding a slice. The remaining keys become metadata pairs.
func (p *Printer) mapResultsEnvelope(v reflect.Value) (reflect.Value, []metaPair, bool) {
	var results reflect.Value
	var meta []metaPair

	iter := v.MapRange()
	for iter.Next() {
		name := fmt.Sprintf("%v", iter.Key())
		val := iter.Value()
		for val.Kind() == reflect.Interface {
			val = val.Elem()
		}

		if name == "results" && (val.Kind() == reflect.Slice || val.Kind() == reflect.Array) {
			results = val
		} else {
			meta = append(meta, metaPair{name: name, value: p.scalarString(val)})
		}
	}

	if !results.IsValid() {
		return reflect.Value{}, nil, false
	}

	sort.Slice(meta, func(i, j int) bool { return meta[i].name < meta[j].name })
	return results, meta, true
}

// structResultsEnvelope is the struct counterpart of mapResultsEnvelope,
// matching on a field whose json name is "results".
func (p *Printer) structResultsEnvelope(v reflect.Value) (reflect.Value, []metaPair, bool) {
	t := v.Type()
	resultsIdx := -1
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || fieldJSONName(f) != "results" {
			continue
		}
		fv := v.Field(i)
		for fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				return reflect.Value{}, nil, false
			}
			fv = fv.Elem()
		}
		if fv.Kind() == reflect.Slice || fv.Kind() == reflect.Array {
			resultsIdx = i
		}
		break
	}
	if resultsIdx < 0 {
		return reflect.Value{}, nil, false
	}

	var meta []metaPair
	for i := 0; i < t.NumField(); i++ {
		if i == resultsIdx {
			continue
		}
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		meta = append(meta, metaPair{name: fieldJSONName(f), value: p.scalarString(v.Field(i))})
	}

	results := v.Field(resultsIdx)
	for results.Kind() == reflect.Ptr {
		if results.IsNil() {
			return reflect.Value{}, nil, false
		}
		results = results.Elem()
	}
	return results, meta, true
}

// renderResultsText prints envelope metadata, then the results table.
func (p *Printer) renderResultsText(results reflect.Value, meta []metaPair) error {
	if results.Len() == 0 {
		for _, kv := range meta {
			if _, err := fmt.Fprintf(p.w, "%s: %s\n", kv.name, kv.value); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(p.w, "results: (none)\n")
		return err
	}

	return p.renderSliceText(results)
}

// renderKeyValues prints a map as key-value lines sorted by key.
func (p *Printer) renderKeyValues(v reflect.Value) error {
	for _, key := range sortedMapKeys(v) {
		if _, err := fmt.Fprintf(p.w, "%v: %v\n", key, p.renderValue(v.MapIndex(key))); err != nil {
			return err
		}
	}
	return nil
}

// renderStructFields prints a struct as key-value lines, recursing into
// nested structs and maps with two-space indentation.
func (p *Printer) renderStructFields(v reflect.Value, indent string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := fieldJSONName(field)
		value := unwrap(v.Field(i))

		if !value.IsValid() ||
			((value.Kind() == reflect.Ptr || value.Kind() == reflect.Interface) && value.IsNil()) {
			if _, err := fmt.Fprintf(p.w, "%s%s: <nil>\n", indent, name); err != nil {
				return err
			}
			continue
		}

		switch value.Kind() {
		case reflect.Struct:
			if _, err := fmt.Fprintf(p.w, "%s%s:\n", indent, name); err != nil {
				return err
			}
			if err := p.renderStructFields(value, indent+"  "); err != nil {
				return err
			}
		case reflect.Map:
			if value.Len() == 0 {
				if _, err := fmt.Fprintf(p.w, "%s%s: {}\n", indent, name); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(p.w, "%s%s:\n", indent, name); err != nil {
				return err
			}
			if err := p.renderNestedMap(value, indent+"  "); err != nil {
				return err
			}
		case reflect.Slice, reflect.Array:
			if err := p.renderFieldSlice(name, value, indent); err != nil {
				return err
			}
		default:
			if _, err := fmt.Fprintf(p.w, "%s%s: %v\n", indent, name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderFieldSlice prints a slice-valued struct field. Scalar slices stay
// on one line; element slices become indented "- item" lines.
func (p *Printer) renderFieldSlice(name string, value reflect.Value, indent string) error {
	if value.Len() == 0 {
		_, err := fmt.Fprintf(p.w, "%s%s: []\n", indent, name)
		return err
	}
	if p.scalarElements(value) {
		_, err := fmt.Fprintf(p.w, "%s%s: %s\n", indent, name, p.renderValue(value))
		return err
	}
	if _, err := fmt.Fprintf(p.w, "%s%s:\n", indent, name); err != nil {
		return err
	}
	for j := 0; j < value.Len(); j++ {
		item := unwrap(value.Index(j))
		if _, err := fmt.Fprintf(p.w, "%s  - %s\n", indent, p.compactCell(item)); err != nil {
			return err
		}
	}
	return nil
}

// renderNestedMap prints a map with indentation, recursing into nested
// maps and structs.
func (p *Printer) renderNestedMap(v reflect.Value, indent string) error {
	for _, key := range sortedMapKeys(v) {
		val := unwrap(v.MapIndex(key))
		switch val.Kind() {
		case reflect.Map:
			if _, err := fmt.Fprintf(p.w, "%s%v:\n", indent, key); err != nil {
				return err
			}
			if err := p.renderNestedMap(val, indent+"  "); err != nil {
				return err
			}
		case reflect.Struct:
			if _, err := fmt.Fprintf(p.w, "%s%v:\n", indent, key); err != nil {
				return err
			}
			if err := p.renderStructFields(val, indent+"  "); err != nil {
				return err
			}
		default:
			if _, err := fmt.Fprintf(p.w, "%s%v: %s\n", indent, key, p.renderValue(val)); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderSliceText prints a slice as a table when elements are structs or
// maps, or one element per line otherwise.
func (p *Printer) renderSliceText(v reflect.Value) error {
	if v.Len() == 0 {
		return nil
	}

	switch unwrap(v.Index(0)).Kind() {
	case reflect.Struct:
		return p.renderStructRows(v)
	case reflect.Map:
		return p.renderMapRows(v)
	}

	for i := 0; i < v.Len(); i++ {
		if _, err := fmt.Fprintf(p.w, "%v\n", p.renderValue(v.Index(i))); err != nil {
			return err
		}
	}
	return nil
}

// textColumn is one column of text table output.
type textColumn struct {
	index int
	name  string
}

// noisyKeys are verbose payload fields left out of compact table views.
// Serialized expression blobs and request IDs drown out the useful
// columns.
var noisyKeys = map[string]bool{
	"serialized_request": true,
	"request_id":         true,
}

// textColumns picks which struct fields become text table columns: scalar
// fields, pointers to scalars, and small structs that compactCell can
// flatten. Noisy metadata stays out.
func (p *Printer) textColumns(t reflect.Type) []textColumn {
	var cols []textColumn
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := fieldJSONName(f)
		if name == "-" || noisyKeys[name] {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.String, reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64,
			reflect.Struct, reflect.Interface:
			cols = append(cols, textColumn{index: i, name: name})
		}
	}
	return cols
}

// renderStructRows renders a slice of structs as an aligned table with
// only text-friendly columns.
func (p *Printer) renderStructRows(v reflect.Value) error {
	if v.Len() == 0 {
		return nil
	}

	cols := p.textColumns(unwrap(v.Index(0)).Type())
	if len(cols) == 0 {
		return nil
	}

	tw := newColumnWriter(p.w)

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = strings.ToUpper(col.name)
	}
	writeCells(tw, header)

	for i := 0; i < v.Len(); i++ {
		item := unwrap(v.Index(i))
		if !item.IsValid() || item.Kind() == reflect.Ptr || item.Kind() == reflect.Interface {
			continue
		}

		cells := make([]string, len(cols))
		for j, col := range cols {
			cells[j] = p.compactCell(item.Field(col.index))
		}
		writeCells(tw, cells)
	}

	return tw.Flush()
}

// renderMapRows renders a slice of maps as an aligned table. A key makes
// the cut when its values are scalar across all elements; id and name are
// always kept since compactCell collapses nested asset maps to their IDs.
func (p *Printer) renderMapRows(v reflect.Value) error {
	if v.Len() == 0 {
		return nil
	}

	type keyShape struct {
		seen      bool
		hasNested bool
	}
	shapes := make(map[string]*keyShape)

	for i := 0; i < v.Len(); i++ {
		m := unwrap(v.Index(i))
		if m.Kind() != reflect.Map {
			continue
		}
		iter := m.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key())
			if noisyKeys[key] {
				continue
			}
			shape, ok := shapes[key]
			if !ok {
				shape = &keyShape{}
				shapes[key] = shape
			}
			shape.seen = true
			val := unwrap(iter.Value())
			if val.IsValid() {
				switch val.Kind() {
				case reflect.Map, reflect.Slice, reflect.Array:
					if val.Len() > 0 {
						shape.hasNested = true
					}
				case reflect.Struct:
					shape.hasNested = true
				}
			}
		}
	}

	alwaysInclude := map[string]bool{"id": true, "name": true}
	var keys []string
	for k, shape := range shapes {
		if shape.seen && (!shape.hasNested || alwaysInclude[k]) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		// Everything nested: show identifying keys at minimum
		for _, fb := range []string{"id", "name", "state", "type", "url"} {
			if shape, ok := shapes[fb]; ok && shape.seen {
				keys = append(keys, fb)
			}
		}
	}

	if len(keys) == 0 {
		return nil
	}

	tw := newColumnWriter(p.w)

	header := make([]string, len(keys))
	for i, key := range keys {
		header[i] = strings.ToUpper(key)
	}
	writeCells(tw, header)

	for i := 0; i < v.Len(); i++ {
		m := unwrap(v.Index(i))
		if m.Kind() != reflect.Map {
			continue
		}

		cells := make([]string, len(keys))
		for j, key := range keys {
			val := m.MapIndex(reflect.ValueOf(key))
			if val.IsValid() {
				cells[j] = p.compactCell(val)
			} else {
				cells[j] = "-"
			}
		}
		writeCells(tw, cells)
	}

	return tw.Flush()
}

// scalarElements reports whether every element of a slice is a simple
// value (string, number, bool) after unwrapping.
func (p *Printer) scalarElements(v reflect.Value) bool {
	for i := 0; i < v.Len(); i++ {
		switch unwrap(v.Index(i)).Kind() {
		case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
			return false
		}
	}
	return true
}

// newColumnWriter returns the tabwriter every table renderer shares:
// two-space padding, no minimum width.
func newColumnWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// writeCells writes one tab-separated table row.
func writeCells(tw *tabwriter.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			_, _ = fmt.Fprint(tw, "\t")
		}
		_, _ = fmt.Fprint(tw, cell)
	}
	_, _ = fmt.Fprintln(tw)
}
