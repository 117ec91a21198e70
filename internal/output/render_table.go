package output

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// printTable renders data in tabular format. Accepts a pre-built Table,
// or a slice of maps or structs; anything else is an error since a table
// needs rows.
func (p *Printer) printTable(data interface{}) error {
	switch v := data.(type) {
	case Table:
		return p.writeTable(v)
	case *Table:
		if v == nil {
			return nil
		}
		return p.writeTable(*v)
	}

	v := reflect.ValueOf(data)
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return errors.New("table format requires a slice or array")
	}
	if v.Len() == 0 {
		return nil
	}

	first := v.Index(0)
	for first.Kind() == reflect.Ptr {
		if first.IsNil() {
			return errors.New("table format cannot handle nil elements")
		}
		first = first.Elem()
	}

	switch first.Kind() {
	case reflect.Map:
		return p.tableFromMaps(v)
	case reflect.Struct:
		return p.tableFromStructs(v)
	default:
		return errors.New("table format requires slice of maps or structs")
	}
}

// writeTable renders a pre-built Table.
func (p *Printer) writeTable(t Table) error {
	if len(t.Headers) == 0 && len(t.Rows) == 0 {
		return nil
	}

	tw := newColumnWriter(p.w)
	if len(t.Headers) > 0 {
		writeCells(tw, t.Headers)
	}
	for _, row := range t.Rows {
		writeCells(tw, row)
	}
	return tw.Flush()
}

// tableFromMaps renders a slice of maps with the union of all keys as
// columns. Missing keys render as a dash.
func (p *Printer) tableFromMaps(v reflect.Value) error {
	if v.Len() == 0 {
		return nil
	}

	seen := make(map[string]bool)
	for i := 0; i < v.Len(); i++ {
		m := unwrap(v.Index(i))
		if m.Kind() != reflect.Map {
			continue
		}
		iter := m.MapRange()
		for iter.Next() {
			seen[fmt.Sprintf("%v", iter.Key())] = true
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := newColumnWriter(p.w)
	defer func() { _ = tw.Flush() }()

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

	return nil
}

// tableFromStructs renders a slice of structs with every exported field
// as a column, named by its json tag.
func (p *Printer) tableFromStructs(v reflect.Value) error {
	if v.Len() == 0 {
		return nil
	}

	first := v.Index(0)
	for first.Kind() == reflect.Ptr {
		if first.IsNil() {
			return errors.New("table format cannot handle nil elements")
		}
		first = first.Elem()
	}

	t := first.Type()
	var cols []textColumn
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		cols = append(cols, textColumn{index: i, name: fieldJSONName(field)})
	}
	if len(cols) == 0 {
		return errors.New("no exported fields in struct")
	}

	tw := newColumnWriter(p.w)
	defer func() { _ = tw.Flush() }()

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

	return nil
}
