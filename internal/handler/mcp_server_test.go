package handler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/infra/observability"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTools() *mcpTools {
	router := service.NewCapabilityRouter([]domain.ServerCapability{
		{ServerName: "ai_memory", Capability: domain.CapabilityVectorSearch, PerformanceScore: 0.95, ReliabilityScore: 0.98, AverageLatencyMs: 100},
		{ServerName: "qdrant_admin", Capability: domain.CapabilityVectorSearch, PerformanceScore: 0.98, ReliabilityScore: 0.99, AverageLatencyMs: 50},
	}, observability.NewMetrics(), zap.NewNop())
	return &mcpTools{router: router}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestMCPRoute(t *testing.T) {
	tools := newTools()

	res, err := tools.handleRoute(context.Background(), callRequest(map[string]any{
		"capability":    "vector_search",
		"avoid_servers": []any{"qdrant_admin"},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var d domain.RoutingDecision
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &d))
	assert.Equal(t, "ai_memory", d.PrimaryServer)
}

func TestMCPRoute_BadArguments(t *testing.T) {
	tools := newTools()

	res, err := tools.handleRoute(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tools.handleRoute(context.Background(), callRequest(map[string]any{
		"capability":     "vector_search",
		"prefer_servers": "qdrant_admin",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMCPCoverageAndStats(t *testing.T) {
	tools := newTools()

	res, err := tools.handleCoverage(context.Background(), callRequest(nil))
	require.NoError(t, err)
	var cov map[string][]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &cov))
	assert.Equal(t, []string{"ai_memory", "qdrant_admin"}, cov["vector_search"])

	res, err = tools.handleStats(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_requests":0}`, resultText(t, res))
}

func TestMCPServerCapabilities(t *testing.T) {
	tools := newTools()

	res, err := tools.handleServerCapabilities(context.Background(), callRequest(map[string]any{"server": "qdrant_admin"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"server":"qdrant_admin","capabilities":["vector_search"]}`, resultText(t, res))

	res, err = tools.handleServerCapabilities(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestStringList(t *testing.T) {
	got, err := stringList(map[string]any{"k": []any{"a", "b"}}, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = stringList(map[string]any{}, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = stringList(map[string]any{"k": []any{"a", 1}}, "k")
	assert.Error(t, err)
}
