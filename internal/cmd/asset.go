package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verdantlabs/earthengine-cli/internal/batch"
	"github.com/verdantlabs/earthengine-cli/internal/cmdutil"
	"github.com/verdantlabs/earthengine-cli/internal/ee"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
	"github.com/verdantlabs/earthengine-cli/internal/output"
	"github.com/verdantlabs/earthengine-cli/internal/validate"
	"github.com/verdantlabs/earthengine-cli/internal/workers"
)

func newAssetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage Earth Engine assets",
		Long:  `Inspect, list, create, copy, move, and delete Earth Engine assets.`,
	}

	cmd.AddCommand(newAssetInfoCmd())
	cmd.AddCommand(newAssetListCmd())
	cmd.AddCommand(newAssetCreateCmd())
	cmd.AddCommand(newAssetCopyCmd())
	cmd.AddCommand(newAssetMoveCmd())
	cmd.AddCommand(newAssetDeleteCmd())
	cmd.AddCommand(newAssetRootsCmd())
	cmd.AddCommand(newAssetQuotaCmd())
	cmd.AddCommand(newAssetMkHomeCmd())
	cmd.AddCommand(newAssetACLCmd())
	cmd.AddCommand(newAssetPropCmd())

	return cmd
}

// resolveAssetArg maps an alias-or-ID argument to a normalized asset ID.
func resolveAssetArg(ctx context.Context, arg string) (string, error) {
	value := arg
	if af := AliasFileFromContext(ctx); af != nil {
		if resolved, ok := af.ResolveAsset(arg); ok {
			value = resolved
		}
	}
	return cmdutil.NormalizeAssetID(value)
}

func newAssetInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "info <asset-id>",
		Aliases: []string{"get"},
		Short:   "Show asset metadata",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assetID, err := resolveAssetArg(ctx, args[0])
			if err != nil {
				return err
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			raw, err := client.GetInfo(ctx, assetID)
			if err != nil {
				return ctxerrors.APINotFoundError(err, "asset", args[0])
			}

			var info interface{}
			if err := json.Unmarshal(raw, &info); err != nil {
				return fmt.Errorf("invalid asset info response: %w", err)
			}
			return printerForContext(ctx).Print(ctx, info)
		},
	}
}

func newAssetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls [asset-id]",
		Aliases: []string{"list"},
		Short:   "List the contents of a folder or collection",
		Long: `List child assets of a folder or image collection.

Without an argument, lists your asset roots. --limit caps the number of
children returned.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				roots, err := client.AssetRoots(ctx)
				if err != nil {
					return err
				}
				return printerForContext(ctx).Print(ctx, map[string]interface{}{"assets": roots})
			}

			assetID, err := resolveAssetArg(ctx, args[0])
			if err != nil {
				return err
			}

			opts := ee.ListOptions{ID: assetID}
			if limit := output.LimitFromContext(ctx); limit > 0 {
				if err := validate.PageSize(limit); err != nil {
					return err
				}
				opts.Num = limit
			}

			items, err := client.GetList(ctx, opts)
			if err != nil {
				return ctxerrors.APINotFoundError(err, "asset", args[0])
			}
			return printerForContext(ctx).Print(ctx, map[string]interface{}{"assets": items})
		},
	}
}

func newAssetCreateCmd() *cobra.Command {
	var assetType string
	var mkParents bool

	cmd := &cobra.Command{
		Use:   "create <asset-id>...",
		Short: "Create folders or image collections",
		Long: `Create one or more container assets.

With --parents, missing intermediate folders are created the way
mkdir -p does.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var eeType string
			switch strings.ToLower(assetType) {
			case "folder":
				eeType = ee.AssetTypeFolder
			case "image_collection", "imagecollection", "collection":
				eeType = ee.AssetTypeImageCollection
			default:
				return ctxerrors.NewUserError(
					fmt.Sprintf("invalid asset type %q", assetType),
					"Use --type folder or --type image_collection")
			}

			assetIDs := make([]string, 0, len(args))
			for _, arg := range args {
				id, err := resolveAssetArg(ctx, arg)
				if err != nil {
					return err
				}
				assetIDs = append(assetIDs, id)
			}

			if DryRunFromContext(ctx) {
				p := NewDryRunPrinter(stdoutFromContext(ctx))
				for _, id := range assetIDs {
					p.Header("create", strings.ToLower(eeType), id)
				}
				p.Field("Create parents", fmt.Sprintf("%v", mkParents))
				p.Footer()
				return nil
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			results, err := client.CreateAssets(ctx, assetIDs, eeType, mkParents)
			if err != nil {
				return err
			}
			return printerForContext(ctx).Print(ctx, map[string]interface{}{"results": results})
		},
	}

	cmd.Flags().StringVar(&assetType, "type", "folder", "Asset type: folder|image_collection")
	cmd.Flags().BoolVar(&mkParents, "parents", false, "Create missing parent folders")

	return cmd
}

func newAssetCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <source-id> <destination-id>",
		Short: "Copy an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetTransfer(cmd.Context(), args[0], args[1], "copy")
		},
	}
}

func newAssetMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source-id> <destination-id>",
		Short: "Move (rename) an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetTransfer(cmd.Context(), args[0], args[1], "move")
		},
	}
}

func runAssetTransfer(ctx context.Context, srcArg, dstArg, verb string) error {
	src, err := resolveAssetArg(ctx, srcArg)
	if err != nil {
		return err
	}
	dst, err := resolveAssetArg(ctx, dstArg)
	if err != nil {
		return err
	}

	if DryRunFromContext(ctx) {
		p := NewDryRunPrinter(stdoutFromContext(ctx))
		p.Header(verb, "asset", src)
		p.Field("Destination", dst)
		p.Footer()
		return nil
	}

	client, err := clientFromContext(ctx)
	if err != nil {
		return err
	}

	if verb == "copy" {
		err = client.CopyAsset(ctx, src, dst)
	} else {
		err = client.RenameAsset(ctx, src, dst)
	}
	if err != nil {
		return ctxerrors.APINotFoundError(err, "asset", srcArg)
	}

	return printerForContext(ctx).Print(ctx, map[string]interface{}{
		"status":      "success",
		"source":      src,
		"destination": dst,
	})
}

func newAssetDeleteCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:     "rm <asset-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete assets",
		Long: `Delete one or more assets.

Deleting a folder or collection that still has children requires
--recursive, which walks the children first. Recursive deletion prompts
for confirmation unless --yes is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			assetIDs := make([]string, 0, len(args))
			for _, arg := range args {
				id, err := resolveAssetArg(ctx, arg)
				if err != nil {
					return err
				}
				assetIDs = append(assetIDs, id)
			}

			if DryRunFromContext(ctx) {
				p := NewDryRunPrinter(stdoutFromContext(ctx))
				for _, id := range assetIDs {
					p.Header("delete", "asset", id)
				}
				if recursive {
					p.Field("Recursive", "true")
				}
				p.Footer()
				return nil
			}

			if recursive && !confirmProceed(ctx, fmt.Sprintf("Recursively delete %d asset(s)?", len(assetIDs))) {
				return ctxerrors.NewUserError("recursive deletion aborted",
					"Pass --yes to skip the confirmation prompt")
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			summary := batch.Run(ctx, assetIDs, workers.DefaultConcurrency, func(ctx context.Context, id string) error {
				if recursive {
					return deleteAssetRecursive(ctx, client, id)
				}
				return client.DeleteAsset(ctx, id)
			})

			if err := printerForContext(ctx).Print(ctx, summary); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d deletions failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Delete children before the container")

	return cmd
}

// deleteAssetRecursive removes an asset's children depth-first before the
// asset itself.
func deleteAssetRecursive(ctx context.Context, client *ee.Client, assetID string) error {
	children, err := client.GetList(ctx, ee.ListOptions{ID: assetID})
	if err == nil {
		for _, child := range children {
			if err := deleteAssetRecursive(ctx, client, child.ID); err != nil {
				return err
			}
		}
	}
	return client.DeleteAsset(ctx, assetID)
}

func newAssetRootsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roots",
		Short: "List your top-level asset folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			roots, err := client.AssetRoots(ctx)
			if err != nil {
				return err
			}
			return printerForContext(ctx).Print(ctx, map[string]interface{}{"assets": roots})
		},
	}
}

func newAssetQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota <root-id>",
		Short: "Show storage quota for an asset root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rootID, err := resolveAssetArg(ctx, args[0])
			if err != nil {
				return err
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			quota, err := client.AssetRootQuota(ctx, rootID)
			if err != nil {
				return ctxerrors.APINotFoundError(err, "asset root", args[0])
			}
			return printerForContext(ctx).Print(ctx, quota)
		},
	}
}

func newAssetMkHomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkhome <folder-id>",
		Short: "Create your home asset folder",
		Long: `Claim a top-level home folder (e.g. users/name). One-time setup for
accounts without an asset root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			folderID, err := cmdutil.NormalizeAssetID(args[0])
			if err != nil {
				return err
			}

			if DryRunFromContext(ctx) {
				p := NewDryRunPrinter(stdoutFromContext(ctx))
				p.Header("create", "home folder", folderID)
				p.Footer()
				return nil
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			if err := client.CreateAssetHome(ctx, folderID); err != nil {
				return err
			}
			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status": "success",
				"id":     folderID,
			})
		},
	}
}

func newAssetACLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acl",
		Short: "Get or set asset access control lists",
	}
	cmd.AddCommand(newAssetACLGetCmd())
	cmd.AddCommand(newAssetACLSetCmd())
	return cmd
}

func newAssetACLGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <asset-id>",
		Short: "Show an asset's ACL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assetID, err := resolveAssetArg(ctx, args[0])
			if err != nil {
				return err
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			acl, err := client.GetAssetACL(ctx, assetID)
			if err != nil {
				return ctxerrors.APINotFoundError(err, "asset", args[0])
			}
			return printerForContext(ctx).Print(ctx, acl)
		},
	}
}

func newAssetACLSetCmd() *cobra.Command {
	var public, private bool

	cmd := &cobra.Command{
		Use:   "set <asset-id> [acl-json]",
		Short: "Replace an asset's ACL",
		Long: `Replace an asset's access control list.

The ACL is given as inline JSON, @file, or '-' for stdin — or use the
--public/--private shortcuts to toggle all-users read access while
keeping the current reader/writer lists.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assetID, err := resolveAssetArg(ctx, args[0])
			if err != nil {
				return err
			}
			if public && private {
				return errOnlyOne("--public", "--private")
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			var acl *ee.ACL
			switch {
			case len(args) == 2:
				raw, err := cmdutil.ReadJSONInput(args[1])
				if err != nil {
					return err
				}
				acl = &ee.ACL{}
				if err := cmdutil.UnmarshalJSONInput(raw, acl); err != nil {
					return ctxerrors.WrapUserError(err, "invalid ACL JSON",
						`Expected {"readers": [...], "writers": [...], "all_users_can_read": bool}`)
				}
			case public || private:
				current, err := client.GetAssetACL(ctx, assetID)
				if err != nil {
					return ctxerrors.APINotFoundError(err, "asset", args[0])
				}
				current.AllUsersCanRead = public
				acl = current
			default:
				return ctxerrors.NewUserError("no ACL given",
					"Pass an ACL JSON argument or one of --public/--private")
			}

			if DryRunFromContext(ctx) {
				p := NewDryRunPrinter(stdoutFromContext(ctx))
				p.Header("update", "ACL of", assetID)
				p.Field("Readers", strings.Join(acl.Readers, ", "))
				p.Field("Writers", strings.Join(acl.Writers, ", "))
				p.Field("All users can read", fmt.Sprintf("%v", acl.AllUsersCanRead))
				p.Footer()
				return nil
			}

			if err := client.SetAssetACL(ctx, assetID, acl); err != nil {
				return err
			}
			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status": "success",
				"id":     assetID,
			})
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "Allow all users to read the asset")
	cmd.Flags().BoolVar(&private, "private", false, "Remove all-users read access")

	return cmd
}

func newAssetPropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prop",
		Short: "Manage asset properties",
	}
	cmd.AddCommand(newAssetPropSetCmd())
	return cmd
}

func newAssetPropSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <asset-id> <properties-json>",
		Short: "Set metadata properties on an asset",
		Long: `Set metadata properties. Properties are a flat JSON object; a null
value removes the property.

Example:
  earthengine asset prop set users/name/dem '{"system:description": "SRTM mosaic"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assetID, err := resolveAssetArg(ctx, args[0])
			if err != nil {
				return err
			}

			raw, err := cmdutil.ReadJSONInput(args[1])
			if err != nil {
				return err
			}
			if err := validate.JSONObject("properties", raw); err != nil {
				return err
			}
			var props map[string]interface{}
			if err := cmdutil.UnmarshalJSONInput(raw, &props); err != nil {
				return err
			}

			if DryRunFromContext(ctx) {
				p := NewDryRunPrinter(stdoutFromContext(ctx))
				p.Header("update", "properties of", assetID)
				for k, v := range props {
					p.Field(k, fmt.Sprintf("%v", v))
				}
				p.Footer()
				return nil
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			if err := client.SetAssetProperties(ctx, assetID, props); err != nil {
				return ctxerrors.APINotFoundError(err, "asset", args[0])
			}
			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status": "success",
				"id":     assetID,
			})
		},
	}
}

// confirmProceed asks for confirmation on stderr unless --yes was given.
// Non-interactive sessions without --yes refuse.
func confirmProceed(ctx context.Context, prompt string) bool {
	if output.YesFromContext(ctx) {
		return true
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}

	_, _ = fmt.Fprintf(stderrFromContext(ctx), "%s [y/N]: ", prompt)
	var answer string
	_, _ = fmt.Fscanln(os.Stdin, &answer)
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
