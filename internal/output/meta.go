package output

import (
	"reflect"
	"time"
)

// injectMeta adds a _meta object to list envelopes (a map wrapping a
// results, tasks or assets slice) so scripted callers get a fetched
// count and timestamp without counting themselves. Non-list data passes
// through unchanged.
func injectMeta(data interface{}) interface{} {
	m, ok := data.(map[string]interface{})
	if !ok {
		return data
	}

	for _, key := range listEnvelopeKeys {
		items, ok := m[key]
		if !ok {
			continue
		}
		rv := reflect.ValueOf(items)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			continue
		}

		m["_meta"] = map[string]interface{}{
			"fetched_count": rv.Len(),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
		}
		return m
	}

	return data
}
