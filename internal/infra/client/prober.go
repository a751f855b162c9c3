// Package client holds the health probers used by the health monitor.
// Each prober speaks one endpoint kind; ProberSet dispatches on Endpoint.Kind.
package client

import (
	"context"
	"fmt"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/port"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("client")

// ProberSet routes a probe to the prober registered for the endpoint kind.
type ProberSet struct {
	probers map[string]port.HealthProber
}

// NewProberSet creates an empty set.
func NewProberSet() *ProberSet {
	return &ProberSet{probers: make(map[string]port.HealthProber)}
}

// Register installs p for kind, replacing any previous prober.
func (s *ProberSet) Register(kind string, p port.HealthProber) *ProberSet {
	s.probers[kind] = p
	return s
}

// Probe implements port.HealthProber.
func (s *ProberSet) Probe(ctx context.Context, ep domain.Endpoint) (domain.ServerHealth, error) {
	kind := ep.Kind
	if kind == "" {
		kind = domain.EndpointHTTP
	}
	p, ok := s.probers[kind]
	if !ok {
		return domain.ServerHealth{}, &domain.ErrValidation{
			Field:   "kind",
			Message: fmt.Sprintf("no prober for endpoint kind %q (server %s)", kind, ep.Server),
		}
	}
	return p.Probe(ctx, ep)
}
