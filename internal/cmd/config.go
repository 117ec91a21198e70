package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/config"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

// configKeys are the scalar keys 'config set' accepts.
var configKeys = map[string]struct{}{
	"output":           {},
	"color":            {},
	"credential_store": {},
	"default_project":  {},
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long: `Manage the configuration file at ~/.config/earthengine/config.yaml.

Scalar keys: output, color, credential_store, default_project.
Project profiles are managed with 'config project'.`,
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigProjectCmd())

	return cmd
}

func configScalar(cfg *config.Config, key string) (string, error) {
	switch key {
	case "output":
		return cfg.Output, nil
	case "color":
		return cfg.Color, nil
	case "credential_store":
		return cfg.CredentialStore, nil
	case "default_project":
		return cfg.DefaultProject, nil
	default:
		return "", unknownConfigKey(key)
	}
}

func unknownConfigKey(key string) error {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return ctxerrors.NewUserError(
		fmt.Sprintf("unknown config key %q", key),
		"Valid keys: "+strings.Join(keys, ", "))
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			value, err := configScalar(cfg, args[0])
			if err != nil {
				return err
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"key":   args[0],
				"value": value,
			})
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key, value := args[0], args[1]

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			switch key {
			case "output":
				switch value {
				case "text", "json", "ndjson", "table", "yaml":
				default:
					return ctxerrors.NewUserError(
						fmt.Sprintf("invalid output format %q", value),
						"Valid formats: text, json, ndjson, table, yaml")
				}
				cfg.Output = value
			case "color":
				switch value {
				case "auto", "always", "never":
				default:
					return ctxerrors.NewUserError(
						fmt.Sprintf("invalid color mode %q", value),
						"Valid modes: auto, always, never")
				}
				cfg.Color = value
			case "credential_store":
				switch value {
				case "file", "keyring":
				default:
					return ctxerrors.NewUserError(
						fmt.Sprintf("invalid credential store %q", value),
						"Valid stores: file, keyring")
				}
				cfg.CredentialStore = value
			case "default_project":
				if err := cfg.SetDefaultProject(value); err != nil {
					return ctxerrors.WrapUserError(err, "cannot set default project",
						"Add the project first with 'earthengine config project add'")
				}
			default:
				return unknownConfigKey(key)
			}

			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status": "success",
				"key":    key,
				"value":  value,
			})
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all configuration values",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"output":           cfg.Output,
				"color":            cfg.Color,
				"credential_store": cfg.CredentialStore,
				"default_project":  cfg.DefaultProject,
				"projects":         cfg.ListProjects(),
			})
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdoutFromContext(cmd.Context()), path)
			return nil
		},
	}
}

func newConfigProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage project profiles",
		Long: `Manage named project profiles.

A profile names the Cloud project billed for API calls and can override
the API and tile endpoints. Select a profile per invocation with
--project, or set one as the default.`,
	}

	cmd.AddCommand(newConfigProjectAddCmd())
	cmd.AddCommand(newConfigProjectRemoveCmd())
	cmd.AddCommand(newConfigProjectUseCmd())
	cmd.AddCommand(newConfigProjectListCmd())

	return cmd
}

func newConfigProjectAddCmd() *cobra.Command {
	var cloudProject, apiURL, tileURL, outputFormat string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a project profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			p := config.ProjectConfig{
				Project: cloudProject,
				APIURL:  apiURL,
				TileURL: tileURL,
				Output:  outputFormat,
			}
			if err := cfg.AddProject(args[0], p); err != nil {
				return ctxerrors.WrapUserError(err, "cannot add project", "")
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status":  "success",
				"project": args[0],
				"default": cfg.DefaultProject == args[0],
			})
		},
	}

	cmd.Flags().StringVar(&cloudProject, "cloud-project", "", "Cloud project identifier billed for API calls")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL override")
	cmd.Flags().StringVar(&tileURL, "tile-url", "", "Tile base URL override")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "Default output format for this project")

	return cmd
}

func newConfigProjectRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Remove a project profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := cfg.RemoveProject(args[0]); err != nil {
				return ctxerrors.NotFoundError("project", args[0])
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status":  "success",
				"project": args[0],
			})
		},
	}
}

func newConfigProjectUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the default project profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := cfg.SetDefaultProject(args[0]); err != nil {
				return ctxerrors.NotFoundError("project", args[0])
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status":  "success",
				"default": args[0],
			})
		},
	}
}

func newConfigProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List project profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			projects := make([]map[string]interface{}, 0, len(cfg.Projects))
			for _, name := range cfg.ListProjects() {
				p := cfg.Projects[name]
				projects = append(projects, map[string]interface{}{
					"name":    name,
					"project": p.Project,
					"default": cfg.DefaultProject == name,
				})
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"projects": projects,
			})
		},
	}
}
