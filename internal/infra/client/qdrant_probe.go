package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel/attribute"
)

// QdrantProber checks Qdrant instances with the gRPC HealthCheck call.
// Connections are opened on first use and kept per host:port.
type QdrantProber struct {
	apiKey string

	mu      sync.Mutex
	clients map[string]*qdrant.Client
}

// NewQdrantProber creates a prober authenticating with apiKey (may be empty).
func NewQdrantProber(apiKey string) *QdrantProber {
	return &QdrantProber{apiKey: apiKey, clients: make(map[string]*qdrant.Client)}
}

// Probe implements port.HealthProber.
func (p *QdrantProber) Probe(ctx context.Context, ep domain.Endpoint) (domain.ServerHealth, error) {
	ctx, span := tracer.Start(ctx, "QdrantProber.Probe")
	defer span.End()
	span.SetAttributes(attribute.String("server", ep.Server), attribute.String("host", ep.Host))

	c, err := p.clientFor(ep)
	if err != nil {
		return domain.ServerHealth{}, err
	}

	start := time.Now()
	reply, err := c.HealthCheck(ctx)
	if err != nil {
		return domain.ServerHealth{}, &domain.ErrExternalService{Service: ep.Server, Err: err}
	}

	return domain.ServerHealth{
		Status:    domain.StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
		Details: map[string]any{
			"title":   reply.GetTitle(),
			"version": reply.GetVersion(),
		},
	}, nil
}

// Close releases every open connection.
func (p *QdrantProber) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for key, c := range p.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.clients, key)
	}
	return firstErr
}

func (p *QdrantProber) clientFor(ep domain.Endpoint) (*qdrant.Client, error) {
	if ep.Host == "" {
		return nil, &domain.ErrValidation{Field: "host", Message: "qdrant endpoint for " + ep.Server + " has no host"}
	}
	port := ep.Port
	if port == 0 {
		port = 6334
	}
	key := fmt.Sprintf("%s:%d", ep.Host, port)

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   ep.Host,
		Port:   port,
		APIKey: p.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client %s: %w", key, err)
	}
	p.clients[key] = c
	return c, nil
}
