// Package output renders command results for the earthengine CLI.
//
// Supported formats:
//   - text: human-readable key-value pairs (default)
//   - json: pretty-printed JSON
//   - ndjson: newline-delimited JSON, one task or asset per line
//   - table: aligned columns for lists
//   - yaml: YAML
//
// # Pipeline
//
// Print runs every value through a shared pipeline before rendering:
// _meta injection for list envelopes, --sort-by/--limit, --results-only
// extraction, then --fields and --jsonpath projections. A --query jq
// filter applies inside the per-format printers.
//
// # Context wiring
//
// The root command's PersistentPreRunE parses the global flags once and
// stores them on the context, so subcommands never thread format values
// through their signatures:
//
//	format, err := output.ParseFormat(formatFlag)
//	if err != nil {
//	    return err
//	}
//	ctx := output.WithFormat(cmd.Context(), format)
//	cmd.SetContext(ctx)
//
// Commands then build a printer from the context:
//
//	format := output.FormatFromContext(cmd.Context())
//	printer := output.NewPrinter(os.Stdout, format)
//	return printer.Print(cmd.Context(), tasks)
//
// A printer can also be built directly when the format is already known:
//
//	printer := output.NewPrinter(os.Stdout, output.FormatJSON)
//	return printer.Print(ctx, assetInfo)
//
// # Value handling
//
// The renderers accept structs (column and key names come from json
// tags), maps, slices, and primitives. Table format needs a slice of
// structs or maps; for maps the columns are the union of all keys.
package output
