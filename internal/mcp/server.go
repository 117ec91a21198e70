// Package mcp exposes a read-only Model Context Protocol server over
// stdio so agents can query Earth Engine without shelling out to the
// CLI for every call.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/verdantlabs/earthengine-cli/internal/ee"
)

const serverName = "earthengine-cli"

// EarthEngine is the slice of the API client the server needs. The CLI
// passes a *ee.Client; tests pass a fake.
type EarthEngine interface {
	GetInfo(ctx context.Context, assetID string) (json.RawMessage, error)
	GetList(ctx context.Context, opts ee.ListOptions) ([]ee.ListItem, error)
	TaskList(ctx context.Context) ([]ee.TaskStatus, error)
	TaskStatuses(ctx context.Context, taskIDs []string) ([]ee.TaskStatus, error)
	Algorithms(ctx context.Context) (map[string]ee.Algorithm, error)
	TileURL(m *ee.MapID, x, y, z int) string
}

// Server wraps an MCP server bound to an Earth Engine client.
type Server struct {
	client EarthEngine
	mcp    *server.MCPServer
}

// NewServer builds the MCP server and registers the tool set.
func NewServer(client EarthEngine, version string) *Server {
	s := &Server{
		client: client,
		mcp: server.NewMCPServer(serverName, version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("asset_info",
		mcp.WithDescription("Get metadata for an Earth Engine asset (image, collection, folder, or table)"),
		mcp.WithString("asset_id", mcp.Required(), mcp.Description("Asset ID, e.g. users/name/dem or COPERNICUS/S2")),
	), s.handleAssetInfo)

	s.mcp.AddTool(mcp.NewTool("asset_list",
		mcp.WithDescription("List the children of an Earth Engine folder or image collection"),
		mcp.WithString("asset_id", mcp.Required(), mcp.Description("Parent asset ID")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of children to return")),
	), s.handleAssetList)

	s.mcp.AddTool(mcp.NewTool("task_list",
		mcp.WithDescription("List recent Earth Engine export and ingestion tasks"),
	), s.handleTaskList)

	s.mcp.AddTool(mcp.NewTool("task_status",
		mcp.WithDescription("Get the status of one or more tasks by ID"),
		mcp.WithString("task_ids", mcp.Required(), mcp.Description("Comma-separated task IDs")),
	), s.handleTaskStatus)

	s.mcp.AddTool(mcp.NewTool("algorithms",
		mcp.WithDescription("List Earth Engine algorithm names, or describe one algorithm's signature"),
		mcp.WithString("name", mcp.Description("Algorithm name to describe; omit to list all")),
	), s.handleAlgorithms)

	s.mcp.AddTool(mcp.NewTool("tile_url",
		mcp.WithDescription("Build a map tile URL for an existing map ID"),
		mcp.WithString("mapid", mcp.Required(), mcp.Description("Map ID from a prior getmapid call")),
		mcp.WithString("token", mcp.Description("Map token, if the map requires one")),
		mcp.WithNumber("z", mcp.Required(), mcp.Description("Zoom level")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Tile x coordinate")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Tile y coordinate")),
	), s.handleTileURL)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

func (s *Server) handleAssetInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	assetID, err := req.RequireString("asset_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.client.GetInfo(ctx, assetID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(info)), nil
}

func (s *Server) handleAssetList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	assetID, err := req.RequireString("asset_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)

	items, err := s.client.GetList(ctx, ee.ListOptions{ID: assetID, Num: limit})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{"assets": items})
}

func (s *Server) handleTaskList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := s.client.TaskList(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{"tasks": tasks})
}

func (s *Server) handleTaskStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("task_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("task_ids must contain at least one task ID"), nil
	}

	statuses, err := s.client.TaskStatuses(ctx, ids)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{"tasks": statuses})
}

func (s *Server) handleAlgorithms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	algorithms, err := s.client.Algorithms(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if name := req.GetString("name", ""); name != "" {
		algo, ok := algorithms[name]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("algorithm %q not found", name)), nil
		}
		return jsonResult(map[string]interface{}{
			"name":        name,
			"description": algo.Description,
			"returns":     algo.Returns,
			"args":        algo.Args,
			"deprecated":  algo.Deprecated,
		})
	}

	names := make([]string, 0, len(algorithms))
	for name, algo := range algorithms {
		if algo.Hidden {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return jsonResult(map[string]interface{}{"results": names})
}

func (s *Server) handleTileURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID, err := req.RequireString("mapid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	z, err := req.RequireInt("z")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := req.RequireInt("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := req.RequireInt("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m := &ee.MapID{MapID: mapID, Token: req.GetString("token", "")}
	return jsonResult(map[string]interface{}{"url": s.client.TileURL(m, x, y, z)})
}
