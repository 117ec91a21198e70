package output

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	clierrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

// fieldSpec is one --fields entry: an output key and the path that
// produces its value, e.g. "state=tasks.0.state".
type fieldSpec struct {
	name string
	path []pathSegment
}

// pathSegment is one step of a field path: a map key or an array index.
type pathSegment struct {
	key   *string
	index *int
}

// ValidateFields validates --fields/--pick syntax.
func ValidateFields(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	_, err := parseFieldList(raw)
	return err
}

func applyOutputTransforms(ctx context.Context, data interface{}, format Format) (interface{}, error) {
	fieldsRaw := strings.TrimSpace(FieldsFromContext(ctx))
	jsonPathRaw := strings.TrimSpace(JSONPathFromContext(ctx))
	if fieldsRaw == "" && jsonPathRaw == "" {
		return data, nil
	}

	if format == FormatTable {
		return nil, clierrors.NewUserError(
			"--fields/--jsonpath are not supported with table output",
			"Use --output json|ndjson|jsonl|yaml|text instead",
		)
	}

	if fieldsRaw != "" {
		projected, err := projectFields(data, fieldsRaw)
		if err != nil {
			return nil, err
		}
		data = projected
	}

	if jsonPathRaw != "" {
		extracted, err := evalJSONPath(data, jsonPathRaw)
		if err != nil {
			return nil, err
		}
		data = extracted
	}

	return data, nil
}

// projectFields reshapes data into objects holding only the requested
// fields. Slices project element-wise.
func projectFields(data interface{}, raw string) (interface{}, error) {
	specs, err := parseFieldList(raw)
	if err != nil {
		return nil, clierrors.WrapUserError(err, "invalid --fields value", "Example: --fields id,state,progress=tasks[0].progress")
	}

	plain, err := toPlainJSON(data)
	if err != nil {
		return nil, err
	}

	switch v := plain.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			out = append(out, projectItem(item, specs))
		}
		return out, nil
	default:
		return projectItem(v, specs), nil
	}
}

func projectItem(item interface{}, specs []fieldSpec) map[string]interface{} {
	out := make(map[string]interface{}, len(specs))
	for _, spec := range specs {
		if val, ok := valueAtPath(item, spec.path); ok {
			out[spec.name] = val
		} else {
			out[spec.name] = nil
		}
	}
	return out
}

func parseFieldList(raw string) ([]fieldSpec, error) {
	parts := strings.Split(raw, ",")
	specs := make([]fieldSpec, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name := part
		path := part
		if eq := strings.Index(part, "="); eq >= 0 {
			name = strings.TrimSpace(part[:eq])
			path = strings.TrimSpace(part[eq+1:])
		}
		if name == "" || path == "" {
			return nil, fmt.Errorf("invalid field spec %q", part)
		}

		segments, err := parsePath(path)
		if err != nil {
			return nil, fmt.Errorf("invalid field path %q: %w", path, err)
		}

		specs = append(specs, fieldSpec{name: name, path: segments})
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("no fields provided")
	}
	return specs, nil
}

// parsePath splits a field path into segments. Both bracket and dot
// notation work for indices (bands[0] and bands.0), and bracket keys may
// be quoted for names that contain dots or colons, such as
// properties['system:time_start'].
func parsePath(path string) ([]pathSegment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty path")
	}

	segments := []pathSegment{}
	for i := 0; i < len(path); {
		switch path[i] {
		case '.':
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("missing closing ]")
			}
			end += i
			content := strings.TrimSpace(path[i+1 : end])
			if content == "" {
				return nil, fmt.Errorf("empty bracket")
			}
			if content[0] == '"' || content[0] == '\'' {
				// Quoted bracket keys stay literal; aliases never apply here
				key, err := unquoteKey(content)
				if err != nil {
					return nil, err
				}
				segments = append(segments, pathSegment{key: &key})
			} else {
				idx, err := strconv.Atoi(content)
				if err != nil {
					return nil, fmt.Errorf("invalid index %q", content)
				}
				segments = append(segments, pathSegment{index: &idx})
			}
			i = end + 1
		default:
			start := i
			for i < len(path) && path[i] != '.' && path[i] != '[' {
				i++
			}
			key := strings.TrimSpace(path[start:i])
			if key == "" {
				return nil, fmt.Errorf("empty segment")
			}
			if idx, err := strconv.Atoi(key); err == nil {
				segments = append(segments, pathSegment{index: &idx})
			} else {
				key = canonicalizeAliasToken(key)
				segments = append(segments, pathSegment{key: &key})
			}
		}
	}

	return segments, nil
}

// unquoteKey strips the surrounding quotes from a bracket key and
// resolves backslash escapes.
func unquoteKey(content string) (string, error) {
	if len(content) < 2 {
		return "", fmt.Errorf("invalid quoted segment")
	}
	quote := content[0]
	if content[len(content)-1] != quote {
		return "", fmt.Errorf("unterminated quoted segment")
	}
	body := content[1 : len(content)-1]
	var b strings.Builder
	b.Grow(len(body))
	escaped := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if escaped {
			escaped = false
			b.WriteByte(ch)
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		b.WriteByte(ch)
	}
	if escaped {
		return "", fmt.Errorf("unterminated escape")
	}
	return b.String(), nil
}

// valueAtPath walks a decoded JSON value along the given segments.
func valueAtPath(data interface{}, path []pathSegment) (interface{}, bool) {
	cur := data
	for _, seg := range path {
		switch {
		case seg.key != nil:
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false
			}
			val, ok := m[*seg.key]
			if !ok {
				return nil, false
			}
			cur = val
		case seg.index != nil:
			arr, ok := cur.([]interface{})
			if !ok {
				return nil, false
			}
			idx := *seg.index
			if idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// toPlainJSON converts typed values (TaskStatus slices, asset structs)
// into the map/slice form that field paths, jq, and JSONPath operate on.
func toPlainJSON(data interface{}) (interface{}, error) {
	switch data.(type) {
	case map[string]interface{}, []interface{}:
		return data, nil
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode data: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	return out, nil
}

func evalJSONPath(data interface{}, raw string) (interface{}, error) {
	canonical := canonicalJSONPath(raw)
	if canonical == "" {
		return nil, clierrors.NewUserError("invalid --jsonpath value", "Example: --jsonpath '$.results[0].id'")
	}
	plain, err := toPlainJSON(data)
	if err != nil {
		return nil, err
	}
	value, err := jsonpath.Get(canonical, plain)
	if err != nil {
		return nil, clierrors.WrapUserError(err, "invalid --jsonpath value", "Example: --jsonpath '$.results[0].id'")
	}
	return value, nil
}

// canonicalJSONPath prepends the implied root so ".results[0]" and
// "results[0]" both work, then expands dot-path aliases.
func canonicalJSONPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(trimmed, "$"), strings.HasPrefix(trimmed, "@"):
		// already rooted
	case strings.HasPrefix(trimmed, "."), strings.HasPrefix(trimmed, "["):
		trimmed = "$" + trimmed
	default:
		trimmed = "$." + trimmed
	}

	rewritten, _ := expandDotPathAliases(trimmed)
	return rewritten
}

// isEmptyResult reports whether data would render as no output: nil, an
// empty slice, an empty map, or a list envelope whose results, tasks, or
// assets slice is empty.
func isEmptyResult(data interface{}) bool {
	if data == nil {
		return true
	}

	switch v := data.(type) {
	case Table:
		return len(v.Rows) == 0
	case map[string]interface{}:
		if len(v) == 0 {
			return true
		}
		for _, key := range listEnvelopeKeys {
			if list, ok := v[key].([]interface{}); ok {
				return len(list) == 0
			}
		}
		return false
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Map:
		if rv.Len() == 0 {
			return true
		}
		for _, key := range listEnvelopeKeys {
			list := rv.MapIndex(reflect.ValueOf(key))
			if !list.IsValid() {
				continue
			}
			for list.Kind() == reflect.Interface || list.Kind() == reflect.Ptr {
				list = list.Elem()
			}
			if list.Kind() == reflect.Slice || list.Kind() == reflect.Array {
				return list.Len() == 0
			}
		}
	case reflect.Struct:
		for _, name := range []string{"Results", "Tasks", "Assets"} {
			list := rv.FieldByName(name)
			if list.IsValid() && (list.Kind() == reflect.Slice || list.Kind() == reflect.Array) {
				return list.Len() == 0
			}
		}
	}

	return false
}
