package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/aliasfile"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

func newAliasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage friendly names for asset IDs",
		Long: `Manage the alias table at ~/.config/earthengine/aliases.md.

Aliases are short names for asset IDs. Commands that take an asset ID
resolve aliases automatically, so 'earthengine asset info dem' works
once 'dem' is set.`,
	}

	cmd.AddCommand(newAliasListCmd())
	cmd.AddCommand(newAliasSetCmd())
	cmd.AddCommand(newAliasRemoveCmd())
	cmd.AddCommand(newAliasResolveCmd())

	return cmd
}

func newAliasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured aliases",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := aliasfile.Load()
			if err != nil {
				return err
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"assets":   f.Assets,
				"projects": f.Projects,
			})
		},
	}
}

func newAliasSetCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "set <alias> <asset-id>",
		Short: "Add or update an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := aliasfile.Load()
			if err != nil {
				return err
			}

			f.Set(args[0], args[1], note)
			if err := f.Save(); err != nil {
				return fmt.Errorf("failed to save alias file: %w", err)
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status": "success",
				"alias":  args[0],
				"id":     args[1],
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Free-form note stored with the alias")

	return cmd
}

func newAliasRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <alias>",
		Aliases: []string{"remove"},
		Short:   "Remove an alias",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := aliasfile.Load()
			if err != nil {
				return err
			}

			if !f.Remove(args[0]) {
				return ctxerrors.NotFoundError("alias", args[0])
			}
			if err := f.Save(); err != nil {
				return fmt.Errorf("failed to save alias file: %w", err)
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status": "success",
				"alias":  args[0],
			})
		},
	}
}

func newAliasResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <alias-or-id>",
		Short: "Show what an alias resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := aliasfile.Load()
			if err != nil {
				return err
			}

			resolved, ok := f.ResolveAsset(args[0])
			if !ok {
				return ctxerrors.NotFoundError("alias", args[0])
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"alias": args[0],
				"id":    resolved,
			})
		},
	}
}
