package output

import "context"

// Context keys for the global output options. Commands never see these
// directly; the root command's pre-run stores the parsed flags and the
// Printer reads them back when rendering.
type (
	formatKey      struct{}
	queryKey       struct{}
	yesKey         struct{}
	limitKey       struct{}
	sortFieldKey   struct{}
	sortDescKey    struct{}
	quietKey       struct{}
	fieldsKey      struct{}
	jsonPathKey    struct{}
	failEmptyKey   struct{}
	resultsOnlyKey struct{}
	lightKey       struct{}
	compactJSONKey struct{}
)

func boolFrom(ctx context.Context, key interface{}) bool {
	v, _ := ctx.Value(key).(bool)
	return v
}

func stringFrom(ctx context.Context, key interface{}) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithFormat attaches the output format so it travels down the command
// chain without threading a parameter through every call.
func WithFormat(ctx context.Context, format Format) context.Context {
	return context.WithValue(ctx, formatKey{}, format)
}

// FormatFromContext returns the attached output format, defaulting to
// FormatText.
func FormatFromContext(ctx context.Context) Format {
	if v, ok := ctx.Value(formatKey{}).(Format); ok {
		return v
	}
	return FormatText
}

// WithQuery attaches a jq filter expression (--query/--jq).
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

// QueryFromContext returns the jq filter expression, if any.
func QueryFromContext(ctx context.Context) string {
	return stringFrom(ctx, queryKey{})
}

// WithYes records --yes, skipping confirmation prompts on destructive
// commands like asset rm and task cancel.
func WithYes(ctx context.Context, yes bool) context.Context {
	return context.WithValue(ctx, yesKey{}, yes)
}

// YesFromContext reports whether --yes was given.
func YesFromContext(ctx context.Context) bool {
	return boolFrom(ctx, yesKey{})
}

// WithLimit records --limit for list output.
func WithLimit(ctx context.Context, limit int) context.Context {
	return context.WithValue(ctx, limitKey{}, limit)
}

// LimitFromContext returns the --limit value; 0 means unlimited.
func LimitFromContext(ctx context.Context) int {
	if l, ok := ctx.Value(limitKey{}).(int); ok {
		return l
	}
	return 0
}

// WithSort records --sort-by and --desc for list output. The field is a
// dotted path such as creation_timestamp_ms or properties.dem.ct.
func WithSort(ctx context.Context, field string, desc bool) context.Context {
	ctx = context.WithValue(ctx, sortFieldKey{}, field)
	return context.WithValue(ctx, sortDescKey{}, desc)
}

// SortFromContext returns the sort field and direction.
func SortFromContext(ctx context.Context) (field string, desc bool) {
	return stringFrom(ctx, sortFieldKey{}), boolFrom(ctx, sortDescKey{})
}

// WithQuiet records --quiet, suppressing warnings and progress chatter.
func WithQuiet(ctx context.Context, quiet bool) context.Context {
	return context.WithValue(ctx, quietKey{}, quiet)
}

// QuietFromContext reports whether --quiet is in effect.
func QuietFromContext(ctx context.Context) bool {
	return boolFrom(ctx, quietKey{})
}

// WithFields stores the raw --fields/--pick projection spec.
func WithFields(ctx context.Context, fields string) context.Context {
	return context.WithValue(ctx, fieldsKey{}, fields)
}

// FieldsFromContext returns the raw --fields/--pick projection spec.
func FieldsFromContext(ctx context.Context) string {
	return stringFrom(ctx, fieldsKey{})
}

// WithJSONPath stores a --jsonpath extraction expression.
func WithJSONPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, jsonPathKey{}, path)
}

// JSONPathFromContext returns the --jsonpath expression, if any.
func JSONPathFromContext(ctx context.Context) string {
	return stringFrom(ctx, jsonPathKey{})
}

// WithFailEmpty records --fail-empty.
func WithFailEmpty(ctx context.Context, fail bool) context.Context {
	return context.WithValue(ctx, failEmptyKey{}, fail)
}

// FailEmptyFromContext reports whether empty results should fail the
// command.
func FailEmptyFromContext(ctx context.Context) bool {
	return boolFrom(ctx, failEmptyKey{})
}

// WithResultsOnly records --results-only, unwrapping list envelopes to
// their item slice.
func WithResultsOnly(ctx context.Context, resultsOnly bool) context.Context {
	return context.WithValue(ctx, resultsOnlyKey{}, resultsOnly)
}

// ResultsOnlyFromContext reports whether --results-only is in effect.
func ResultsOnlyFromContext(ctx context.Context) bool {
	return boolFrom(ctx, resultsOnlyKey{})
}

// WithLight records command-level light mode (trimmed payloads).
func WithLight(ctx context.Context, light bool) context.Context {
	return context.WithValue(ctx, lightKey{}, light)
}

// LightFromContext reports whether light mode is enabled.
func LightFromContext(ctx context.Context) bool {
	return boolFrom(ctx, lightKey{})
}

// WithCompactJSON records --compact-json (single-line JSON output).
func WithCompactJSON(ctx context.Context, compact bool) context.Context {
	return context.WithValue(ctx, compactJSONKey{}, compact)
}

// CompactJSONFromContext reports whether JSON output should be compact.
func CompactJSONFromContext(ctx context.Context) bool {
	return boolFrom(ctx, compactJSONKey{})
}
