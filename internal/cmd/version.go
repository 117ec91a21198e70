package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/output"
	"github.com/verdantlabs/earthengine-cli/internal/update"
)

func newVersionCmd(app *App) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data := map[string]interface{}{
				"version":    app.Version,
				"commit":     app.Commit,
				"build_time": app.BuildTime,
				"go_version": runtime.Version(),
				"platform":   runtime.GOOS + "/" + runtime.GOARCH,
			}

			if check {
				if msg := update.Check(ctx, app.Version); msg != "" {
					data["update"] = msg
				}
			}

			format := output.FormatFromContext(ctx)
			if format == output.FormatJSON || format == output.FormatYAML {
				return printerForContext(ctx).Print(ctx, data)
			}

			out := stdoutFromContext(ctx)
			_, _ = fmt.Fprintf(out, "earthengine %s (commit %s, built %s, %s %s/%s)\n",
				app.Version, app.Commit, app.BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			if msg, ok := data["update"].(string); ok {
				_, _ = fmt.Fprintln(out, msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")

	return cmd
}
