package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/cmdutil"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
	"github.com/verdantlabs/earthengine-cli/internal/manifest"
)

func newUploadCmd() *cobra.Command {
	var wait bool
	var waitInterval time.Duration

	cmd := &cobra.Command{
		Use:   "upload <manifest.json | asset-id gs://...>",
		Short: "Ingest images from Cloud Storage",
		Long: `Start an ingestion task from an upload manifest.

The single-argument form takes a manifest JSON file (@file, '-' for
stdin, or inline JSON) describing the destination asset, tilesets, and
bands. The shorthand form takes a destination asset ID followed by one
or more gs:// source URIs and builds a single-band-per-file manifest.

Examples:
  earthengine upload @manifest.json
  earthengine upload users/name/dem gs://bucket/dem.tif`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var m *manifest.Manifest
			if len(args) == 1 {
				raw, err := cmdutil.ReadJSONInput(args[0])
				if err != nil {
					return err
				}
				parsed, err := manifest.Parse([]byte(raw))
				if err != nil {
					return ctxerrors.WrapUserError(err, "invalid upload manifest", "")
				}
				m = parsed
			} else {
				assetID, err := resolveAssetArg(ctx, args[0])
				if err != nil {
					return err
				}
				m = manifest.Normalize(assetID, args[1:])
			}

			if err := m.Validate(); err != nil {
				return err
			}
			request, err := m.Request()
			if err != nil {
				return fmt.Errorf("failed to serialize manifest: %w", err)
			}

			if DryRunFromContext(ctx) {
				p := NewDryRunPrinter(stdoutFromContext(ctx))
				p.Header("ingest", "asset", m.ID)
				for _, ts := range m.Tilesets {
					for _, src := range ts.Sources {
						p.Field("Source", src.PrimaryPath)
					}
				}
				encoded, _ := json.Marshal(request)
				p.Section("Request:")
				_, _ = fmt.Fprintln(stdoutFromContext(ctx), string(encoded))
				p.Footer()
				return nil
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			ids, err := client.NewTaskID(ctx, 1)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return fmt.Errorf("server returned no task id")
			}
			taskID := ids[0]

			if _, err := client.StartIngestion(ctx, taskID, request); err != nil {
				return err
			}

			if !wait {
				return printerForContext(ctx).Print(ctx, map[string]interface{}{
					"task_id": taskID,
					"id":      m.ID,
					"started": true,
				})
			}

			statuses, err := waitForTasks(ctx, client, []string{taskID}, waitInterval)
			if err != nil {
				return err
			}
			if err := printerForContext(ctx).Print(ctx, map[string]interface{}{"tasks": statuses}); err != nil {
				return err
			}
			for _, s := range statuses {
				if strings.EqualFold(s.State, "FAILED") {
					return fmt.Errorf("ingestion task %s failed: %s", s.ID, s.ErrorMessage)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the ingestion task completes")
	cmd.Flags().DurationVar(&waitInterval, "interval", 10*time.Second, "Polling interval used with --wait")

	return cmd
}
