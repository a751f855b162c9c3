// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the routing
// service from concrete probes, feeds and caches.
package port

import (
	"context"

	"github.com/sophia-ai/capability-router/internal/domain"
)

// HealthProber checks the health of a single server endpoint.
// A returned error means the server could not be reached or answered badly;
// callers treat it as unhealthy.
type HealthProber interface {
	Probe(ctx context.Context, ep domain.Endpoint) (domain.ServerHealth, error)
}

// HealthSink receives complete health snapshots. Each call replaces the
// previous snapshot wholesale.
type HealthSink interface {
	UpdateServerHealth(snapshot domain.HealthSnapshot)
}

// Cache keeps values with a TTL. Items returns only unexpired entries.
type Cache[T any] interface {
	Set(key string, value T)
	Items() map[string]T
}
