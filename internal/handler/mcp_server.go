package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// mcpTools exposes the router to MCP clients (agents) as tools.
type mcpTools struct {
	router *service.CapabilityRouter
}

// NewMCPServer builds an MCP server with the routing tools registered.
func NewMCPServer(router *service.CapabilityRouter, version string) *server.MCPServer {
	s := server.NewMCPServer("capability-router", version, server.WithToolCapabilities(false))
	t := &mcpTools{router: router}

	s.AddTool(mcp.Tool{
		Name:        "route_capability",
		Description: "Pick the best server for a capability. Returns the primary server, up to three fallbacks and a confidence in [0,1].",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"capability": map[string]any{
					"type":        "string",
					"description": "Capability tag, e.g. vector_search",
				},
				"prefer_servers": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Servers to boost by 20%",
				},
				"avoid_servers": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Servers that must not be chosen",
				},
			},
			Required: []string{"capability"},
		},
	}, t.handleRoute)

	s.AddTool(mcp.Tool{
		Name:        "capability_coverage",
		Description: "Map each capability to the servers that provide it.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, t.handleCoverage)

	s.AddTool(mcp.Tool{
		Name:        "routing_stats",
		Description: "Aggregate statistics over the most recent routing decisions.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, t.handleStats)

	s.AddTool(mcp.Tool{
		Name:        "server_capabilities",
		Description: "List the capabilities registered for a server.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"server": map[string]any{
					"type":        "string",
					"description": "Server name, e.g. qdrant_admin",
				},
			},
			Required: []string{"server"},
		},
	}, t.handleServerCapabilities)

	return s
}

// NewMCPHandler serves the MCP tools over streamable HTTP.
func NewMCPHandler(router *service.CapabilityRouter, version string) http.Handler {
	return server.NewStreamableHTTPServer(NewMCPServer(router, version))
}

func (t *mcpTools) handleRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	capability, err := request.RequireString("capability")
	if err != nil || capability == "" {
		return mcp.NewToolResultError("missing or invalid 'capability' argument"), nil
	}

	args := request.GetArguments()
	prefer, err := stringList(args, "prefer_servers")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	avoid, err := stringList(args, "avoid_servers")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	decision := t.router.RouteRequest(ctx, domain.RouteRequest{
		Capability:    domain.Capability(capability),
		PreferServers: prefer,
		AvoidServers:  avoid,
	})
	return jsonResult(decision)
}

func (t *mcpTools) handleCoverage(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.router.CapabilityCoverage())
}

func (t *mcpTools) handleStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.router.RoutingStats())
}

func (t *mcpTools) handleServerCapabilities(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("server")
	if err != nil || name == "" {
		return mcp.NewToolResultError("missing or invalid 'server' argument"), nil
	}
	return jsonResult(map[string]any{
		"server":       name,
		"capabilities": t.router.ServerCapabilities(name),
	})
}

func stringList(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("'%s' must be an array of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("'%s' must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
