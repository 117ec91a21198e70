package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/cmdutil"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
	"github.com/verdantlabs/earthengine-cli/internal/output"
)

func newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Raw API access and diagnostics",
	}

	cmd.AddCommand(newAPIRequestCmd())
	cmd.AddCommand(newAPIStatusCmd())
	return cmd
}

func newAPIRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request <method> <path> [key=value...]",
		Short: "Make a raw Earth Engine API request",
		Long: `Make a raw API request (useful for new endpoints and debugging).

Parameters use a typed key=value syntax:
  key=value     string parameter
  key:=value    raw JSON parameter (numbers, booleans, objects, arrays)
  key=@file     read the value from a file
  key=-         read the value from stdin

Examples:
  earthengine api request GET /tasklist
  earthengine api request POST /value json_request:='{"json": "..."}'
  earthengine api request POST /setproperties id=users/name/dem properties=@props.json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			method := strings.ToUpper(strings.TrimSpace(args[0]))
			path := strings.TrimSpace(args[1])

			if method != "GET" && method != "POST" {
				return ctxerrors.NewUserError(
					fmt.Sprintf("unsupported method %q", args[0]),
					"The Earth Engine API speaks GET and POST")
			}

			params, err := parseTypedParams(args[2:])
			if err != nil {
				return err
			}

			if DryRunFromContext(ctx) && method == "POST" {
				p := NewDryRunPrinter(stdoutFromContext(ctx))
				p.Header("send", method, path)
				for key := range params {
					p.Field(key, params.Get(key))
				}
				p.Footer()
				return nil
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			raw, err := client.DoRawRequest(ctx, method, path, params)
			if err != nil {
				return err
			}

			var payload interface{}
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &payload); err != nil {
					_, _ = fmt.Fprintln(stdoutFromContext(ctx), string(raw))
					return nil
				}
			}
			return printerForContext(ctx).Print(ctx, payload)
		},
	}

	return cmd
}

// parseTypedParams parses key=value arguments into form parameters.
// `:=` marks raw JSON values, `@file` and `-` load the value from a
// file or stdin.
func parseTypedParams(args []string) (url.Values, error) {
	params := url.Values{}
	for _, arg := range args {
		var key, value string
		var isJSON bool

		if idx := strings.Index(arg, ":="); idx > 0 {
			key, value = arg[:idx], arg[idx+2:]
			isJSON = true
		} else if idx := strings.Index(arg, "="); idx > 0 {
			key, value = arg[:idx], arg[idx+1:]
		} else {
			return nil, ctxerrors.NewUserError(
				fmt.Sprintf("invalid parameter %q", arg),
				"Use key=value for strings or key:=value for JSON")
		}

		if strings.HasPrefix(value, "@") || value == "-" {
			loaded, err := cmdutil.ReadInputSource(strings.TrimPrefix(value, "@"))
			if err != nil {
				return nil, err
			}
			value = strings.TrimSpace(loaded)
		}

		if isJSON {
			if !json.Valid([]byte(value)) {
				return nil, ctxerrors.NewUserError(
					fmt.Sprintf("parameter %q is not valid JSON", key),
					"Quote the value so the shell passes it through intact")
			}
		}

		params.Set(key, value)
	}
	return params, nil
}

// encodeFormValue renders a decoded JSON value as a form parameter:
// scalars as plain text, structures re-encoded as JSON.
func encodeFormValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		// JSON numbers decode as float64; keep integers undecorated.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), nil
		}
		return fmt.Sprintf("%g", v), nil
	case bool:
		return fmt.Sprintf("%v", v), nil
	case nil:
		return "", nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

func newAPIStatusCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show API rate limit status",
		Long: `Show the rate limit status from the most recent API call.

Use --refresh to make a lightweight API call first and report fresh
numbers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			if refresh {
				if _, err := client.AssetRoots(ctx); err != nil {
					return fmt.Errorf("failed to fetch API status: %w", err)
				}
			}

			info := client.GetRateLimitInfo()
			format := output.FormatFromContext(ctx)
			if info == nil {
				if format == output.FormatJSON || format == output.FormatYAML {
					return printerForContext(ctx).Print(ctx, map[string]interface{}{
						"available": false,
						"message":   "No rate limit information available. Make an API call first, or use --refresh.",
					})
				}
				out := stdoutFromContext(ctx)
				_, _ = fmt.Fprintln(out, "No rate limit information available.")
				_, _ = fmt.Fprintln(out, "Make an API call first, or use --refresh to fetch fresh data.")
				return nil
			}

			data := map[string]interface{}{
				"available":  true,
				"remaining":  info.Remaining,
				"limit":      info.Limit,
				"request_id": info.RequestID,
			}

			if !info.ResetAt.IsZero() {
				data["reset_at"] = info.ResetAt.Format(time.RFC3339)
				if remaining := time.Until(info.ResetAt); remaining > 0 {
					data["resets_in_seconds"] = int(remaining.Seconds())
				}
			}

			if format == output.FormatJSON || format == output.FormatYAML {
				return printerForContext(ctx).Print(ctx, data)
			}

			out := stdoutFromContext(ctx)
			_, _ = fmt.Fprintln(out, "Rate Limit Status")
			_, _ = fmt.Fprintln(out, "─────────────────")
			_, _ = fmt.Fprintf(out, "Remaining:  %d / %d requests\n", info.Remaining, info.Limit)

			if !info.ResetAt.IsZero() {
				if remaining := time.Until(info.ResetAt); remaining > 0 {
					_, _ = fmt.Fprintf(out, "Resets in:  %s\n", remaining.Round(time.Second))
				} else {
					_, _ = fmt.Fprintln(out, "Reset:      Already reset")
				}
			}

			if info.RequestID != "" {
				_, _ = fmt.Fprintf(out, "Request ID: %s\n", info.RequestID)
			}

			if info.Limit > 0 {
				pct := float64(info.Remaining) / float64(info.Limit) * 100
				if pct < 10 && !output.QuietFromContext(ctx) {
					_, _ = fmt.Fprintf(out, "\nWarning: Rate limit is low (%.1f%% remaining)\n", pct)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Make a fresh API call to get updated rate limit info")

	return cmd
}
