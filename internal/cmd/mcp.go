package cmd

import (
	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/mcp"
)

func newMCPCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
		Long: `Expose Earth Engine to MCP clients.

The server speaks MCP over stdio and offers read-only tools (asset
metadata and listings, task status, algorithm signatures, tile URLs).
Point an MCP-capable agent at 'earthengine mcp serve'.`,
	}

	cmd.AddCommand(newMCPServeCmd(app))

	return cmd
}

func newMCPServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return mcp.NewServer(client, app.Version).ServeStdio()
		},
	}
}
