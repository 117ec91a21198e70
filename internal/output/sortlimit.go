package output

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// ApplySortLimit applies --sort-by/--desc and --limit to list output.
// It understands bare slices ([]TaskStatus, []map) and list envelopes
// (a struct with a Results field). Sort paths are dotted and resolve
// through maps and structs, so --sort-by properties.dem.creation_timestamp_ms
// reaches into nested asset properties.
func ApplySortLimit(ctx context.Context, data interface{}) interface{} {
	if data == nil {
		return data
	}

	limit := LimitFromContext(ctx)
	field, desc := SortFromContext(ctx)
	field, _ = NormalizeSortPath(field)
	if limit == 0 && field == "" {
		return data
	}

	spec := sortSpec{desc: desc, limit: limit}
	if field != "" {
		spec.path = strings.Split(field, ".")
	}

	v := reflect.ValueOf(data)
	if !v.IsValid() {
		return data
	}
	viaPointer := false
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return data
		}
		viaPointer = true
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if out := spec.apply(v); out.IsValid() {
			return out.Interface()
		}
	case reflect.Struct:
		if out, ok := spec.applyToEnvelope(v); ok {
			if viaPointer {
				// The envelope was updated through the pointer.
				return data
			}
			return out
		}
	}

	return data
}

type sortSpec struct {
	path  []string
	desc  bool
	limit int
}

// applyToEnvelope sorts and limits the Results field of a list envelope
// struct. Returns false when the value has no Results slice.
func (s sortSpec) applyToEnvelope(v reflect.Value) (interface{}, bool) {
	results := v.FieldByName("Results")
	if !results.IsValid() || (results.Kind() != reflect.Slice && results.Kind() != reflect.Array) {
		return nil, false
	}

	sorted := s.apply(results)
	if !sorted.IsValid() {
		return nil, false
	}

	if results.CanSet() {
		results.Set(sorted)
		return v.Interface(), true
	}

	// Value copies are not settable; rebuild the envelope around the
	// sorted slice.
	clone := reflect.New(v.Type()).Elem()
	clone.Set(v)
	cloneResults := clone.FieldByName("Results")
	if !cloneResults.CanSet() {
		return nil, false
	}
	cloneResults.Set(sorted)
	return clone.Interface(), true
}

// apply returns a sorted, limited copy of a slice. The input is never
// mutated; callers may still hold the client's slice.
func (s sortSpec) apply(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return reflect.Value{}
	}

	n := v.Len()
	if n == 0 {
		return v
	}

	sliceType := v.Type()
	if v.Kind() == reflect.Array {
		sliceType = reflect.SliceOf(v.Type().Elem())
	}
	out := reflect.MakeSlice(sliceType, n, n)
	reflect.Copy(out, v)

	if len(s.path) > 0 {
		sort.SliceStable(out.Interface(), func(i, j int) bool {
			a, aok := sortKeyAt(out.Index(i), s.path)
			b, bok := sortKeyAt(out.Index(j), s.path)
			// Elements without the sort key go last.
			if !aok {
				return false
			}
			if !bok {
				return true
			}
			if s.desc {
				return compareKeys(a, b) > 0
			}
			return compareKeys(a, b) < 0
		})
	}

	if s.limit > 0 && s.limit < out.Len() {
		return out.Slice(0, s.limit)
	}
	return out
}

// sortKeyAt walks a dotted sort path through maps and structs. Names
// match case-insensitively with _ and - ignored, so creationtimestampms,
// creation_timestamp_ms and CreationTimestampMs all hit the same column.
func sortKeyAt(v reflect.Value, path []string) (interface{}, bool) {
	for i := 0; i < len(path); i++ {
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}

		switch v.Kind() {
		case reflect.Map:
			next, ok := lookupMapKey(v, path[i])
			if !ok {
				return nil, false
			}
			v = next
		case reflect.Struct:
			next, ok := lookupField(v, path[i])
			if !ok {
				return nil, false
			}
			v = next
		default:
			// A scalar consumes the final segment: sorting a bare
			// string or number slice keys on the element itself.
			if i == len(path)-1 {
				return v.Interface(), true
			}
			return nil, false
		}
	}

	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func lookupMapKey(m reflect.Value, name string) (reflect.Value, bool) {
	if m.Type().Key().Kind() != reflect.String {
		return reflect.Value{}, false
	}
	want := foldName(name)
	for _, k := range m.MapKeys() {
		if foldName(k.String()) == want {
			return m.MapIndex(k), true
		}
	}
	return reflect.Value{}, false
}

func lookupField(v reflect.Value, name string) (reflect.Value, bool) {
	want := foldName(name)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if foldName(f.Name) == want || foldName(fieldJSONName(f)) == want {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func foldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}

// compareKeys orders two sort keys. Numbers compare numerically across
// integer and float types, RFC3339 strings compare as timestamps, and
// everything else falls back to string ordering.
func compareKeys(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return cmpFloat(af, bf)
		}
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return compareStringKeys(as, bs)
		}
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case bb:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareStringKeys(a, b string) int {
	at, aerr := time.Parse(time.RFC3339, a)
	bt, berr := time.Parse(time.RFC3339, b)
	if aerr == nil && berr == nil {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
