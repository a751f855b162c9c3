package client

import (
	"context"
	"fmt"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
)

// MCPProber checks MCP servers over streamable HTTP: it runs the initialize
// handshake and then a ping. A server that completes both is healthy.
type MCPProber struct {
	clientName    string
	clientVersion string
}

// NewMCPProber creates a prober identifying itself with name and version.
func NewMCPProber(name, version string) *MCPProber {
	return &MCPProber{clientName: name, clientVersion: version}
}

// Probe implements port.HealthProber.
func (p *MCPProber) Probe(ctx context.Context, ep domain.Endpoint) (domain.ServerHealth, error) {
	ctx, span := tracer.Start(ctx, "MCPProber.Probe")
	defer span.End()
	span.SetAttributes(attribute.String("server", ep.Server), attribute.String("url", ep.URL))

	start := time.Now()
	c, err := mcpclient.NewStreamableHttpClient(ep.URL)
	if err != nil {
		return domain.ServerHealth{}, fmt.Errorf("create mcp client: %w", err)
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return domain.ServerHealth{}, &domain.ErrExternalService{Service: ep.Server, Err: err}
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    p.clientName,
				Version: p.clientVersion,
			},
		},
	}
	result, err := c.Initialize(ctx, initReq)
	if err != nil {
		return domain.ServerHealth{}, &domain.ErrExternalService{Service: ep.Server, Err: fmt.Errorf("initialize: %w", err)}
	}
	if err := c.Ping(ctx); err != nil {
		return domain.ServerHealth{}, &domain.ErrExternalService{Service: ep.Server, Err: fmt.Errorf("ping: %w", err)}
	}

	return domain.ServerHealth{
		Status:    domain.StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
		Details: map[string]any{
			"server_name":      result.ServerInfo.Name,
			"server_version":   result.ServerInfo.Version,
			"protocol_version": result.ProtocolVersion,
		},
	}, nil
}
