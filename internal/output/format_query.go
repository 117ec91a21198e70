package output

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/itchyny/gojq"
)

func (p *Printer) jsonEncoder(pretty bool) *json.Encoder {
	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc
}

// printJSON writes data as JSON, pretty-printed unless --compact-json
// is set. A --query filter, when present, runs first.
func (p *Printer) printJSON(ctx context.Context, data interface{}) error {
	pretty := !CompactJSONFromContext(ctx)
	if query := QueryFromContext(ctx); query != "" {
		return p.encodeQueryResults(query, data, pretty)
	}
	return p.jsonEncoder(pretty).Encode(data)
}

// printNDJSON writes data as newline-delimited JSON, one line per slice
// element. A --query filter, when present, emits one line per result.
func (p *Printer) printNDJSON(ctx context.Context, data interface{}) error {
	if query := QueryFromContext(ctx); query != "" {
		return p.encodeQueryResults(query, data, false)
	}

	enc := p.jsonEncoder(false)

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			if err := enc.Encode(v.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}

	return enc.Encode(data)
}

// encodeQueryResults runs a jq filter over data and writes each result
// as JSON.
func (p *Printer) encodeQueryResults(query string, data interface{}, pretty bool) error {
	results, err := runQueryRaw(query, data)
	if err != nil {
		return err
	}

	enc := p.jsonEncoder(pretty)
	for _, v := range results {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// runQueryRaw normalizes data to map/slice form, runs a gojq filter and
// collects the results. The text formatter uses this too, rendering the
// filtered values instead of raw JSON.
func runQueryRaw(query string, data interface{}) ([]interface{}, error) {
	// NormalizeQuery is idempotent; the root pre-run already applied it,
	// but re-applying keeps this layer usable on its own.
	query, _ = NormalizeQuery(query)

	normalized, err := toPlainJSON(data)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, invalidQueryError(err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, invalidQueryError(err)
	}

	var results []interface{}
	iter := code.Run(normalized)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if queryErr, isErr := v.(error); isErr {
			return nil, fmt.Errorf("query error: %s", describeQueryError(queryErr))
		}
		results = append(results, v)
	}

	return results, nil
}

func invalidQueryError(err error) error {
	if err == nil {
		return fmt.Errorf("invalid --query")
	}

	if strings.Contains(strings.ToLower(err.Error()), "unexpected eof") {
		return fmt.Errorf("invalid --query: %w\nHint: query looks incomplete; quote it fully or use --query-file", err)
	}
	return fmt.Errorf("invalid --query: %w", err)
}

// describeQueryError renders a gojq runtime error. Some gojq errors
// panic in their Error method on typed values, so recover and fall back
// to a trimmed panic payload.
func describeQueryError(err error) (msg string) {
	if err == nil {
		return "unknown error"
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			msg = recoveredQueryMessage(err, recovered)
		}
	}()

	msg = strings.TrimSpace(err.Error())
	if msg == "" {
		return fmt.Sprintf("%T", err)
	}
	return msg
}

func recoveredQueryMessage(err error, recovered interface{}) string {
	var raw string
	switch v := recovered.(type) {
	case string:
		raw = v
	case error:
		raw = v.Error()
	default:
		return fmt.Sprintf("%T", err)
	}

	raw = strings.TrimSpace(raw)
	// gojq panic payloads often append the offending value in
	// parentheses; keep only the stable prefix.
	if idx := strings.Index(raw, " ("); idx > 0 {
		raw = raw[:idx]
	}
	if raw == "" {
		return fmt.Sprintf("%T", err)
	}
	return raw
}
