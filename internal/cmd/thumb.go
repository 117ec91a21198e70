package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/ee"
)

func newThumbCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "thumb <params-json>",
		Short: "Create thumbnail images",
		Long: `Request a thumbnail for a visualization and print its URL.

The argument is a JSON object of thumbnail parameters (inline, @file, or
'-' for stdin). With --out, the thumbnail bytes are fetched to a file.

Example:
  earthengine thumb '{"image": "users/name/dem", "dimensions": "256x256"}' --out dem.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			params, err := formParamsFromJSON(args[0])
			if err != nil {
				return err
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			thumb, err := client.GetThumbID(ctx, params)
			if err != nil {
				return err
			}
			thumbURL := client.ThumbURL(thumb)

			if out != "" {
				if err := fetchToFile(ctx, client, thumbURL, out); err != nil {
					return err
				}
				return printerForContext(ctx).Print(ctx, map[string]interface{}{
					"thumbid": thumb.ThumbID,
					"file":    out,
				})
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"thumbid": thumb.ThumbID,
				"token":   thumb.Token,
				"url":     thumbURL,
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the thumbnail bytes to this file")

	return cmd
}

func newDownloadCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "download <params-json>",
		Short: "Create image download links",
		Long: `Request a download bundle for an image and print its URL.

The argument is a JSON object of download parameters. With --out, the
archive is fetched to a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			params, err := formParamsFromJSON(args[0])
			if err != nil {
				return err
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			d, err := client.GetDownloadID(ctx, params)
			if err != nil {
				return err
			}
			downloadURL := client.DownloadURL(d)

			if out != "" {
				if err := fetchToFile(ctx, client, downloadURL, out); err != nil {
					return err
				}
				return printerForContext(ctx).Print(ctx, map[string]interface{}{
					"docid": d.DocID,
					"file":  out,
				})
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"docid": d.DocID,
				"token": d.Token,
				"url":   downloadURL,
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the download archive to this file")

	return cmd
}

func newTableCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "table <params-json>",
		Short: "Create table download links",
		Long: `Request a table export (CSV, GeoJSON, KML, ...) and print its URL.

The argument is a JSON object of table parameters, typically a
serialized table and a format. With --out, the file is fetched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			params, err := formParamsFromJSON(args[0])
			if err != nil {
				return err
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			d, err := client.GetTableDownloadID(ctx, params)
			if err != nil {
				return err
			}
			tableURL := client.TableDownloadURL(d)

			if out != "" {
				if err := fetchToFile(ctx, client, tableURL, out); err != nil {
					return err
				}
				return printerForContext(ctx).Print(ctx, map[string]interface{}{
					"docid": d.DocID,
					"file":  out,
				})
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"docid": d.DocID,
				"token": d.Token,
				"url":   tableURL,
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the table file to this path")

	return cmd
}

// fetchToFile streams an authenticated download to a local file.
func fetchToFile(ctx context.Context, client *ee.Client, fetchURL, path string) error {
	body, err := client.FetchBytes(ctx, fetchURL)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("download failed: %w", err)
	}
	return f.Close()
}
