package service

import (
	"github.com/sophia-ai/capability-router/internal/domain"
)

// CapabilityRegistry holds the (server, capability, scores) records.
//
// Servers are iterated in registration order so that every scan is
// reproducible. The registry does no locking of its own; CapabilityRouter
// guards it together with the health map and the decision log.
type CapabilityRegistry struct {
	servers map[string][]domain.ServerCapability
	order   []string
}

// NewCapabilityRegistry builds a registry from seed records, applying the
// same replace-in-place semantics as Upsert.
func NewCapabilityRegistry(seed []domain.ServerCapability) *CapabilityRegistry {
	r := &CapabilityRegistry{servers: make(map[string][]domain.ServerCapability)}
	for _, sc := range seed {
		r.Upsert(sc)
	}
	return r
}

// Upsert inserts sc, or replaces the existing record for the same
// (server, capability) pair. Scores are stored as given.
func (r *CapabilityRegistry) Upsert(sc domain.ServerCapability) {
	records, known := r.servers[sc.ServerName]
	if !known {
		r.order = append(r.order, sc.ServerName)
	}
	for i := range records {
		if records[i].Capability == sc.Capability {
			records[i] = sc
			return
		}
	}
	r.servers[sc.ServerName] = append(records, sc)
}

// ServersFor returns every server holding a record for capability,
// in registration order.
func (r *CapabilityRegistry) ServersFor(capability domain.Capability) []string {
	var out []string
	for _, name := range r.order {
		for _, sc := range r.servers[name] {
			if sc.Capability == capability {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// CapabilitiesFor returns the capabilities registered for server.
// An unknown server yields an empty, non-nil slice.
func (r *CapabilityRegistry) CapabilitiesFor(server string) []domain.Capability {
	records := r.servers[server]
	out := make([]domain.Capability, 0, len(records))
	for _, sc := range records {
		out = append(out, sc.Capability)
	}
	return out
}

// Candidates returns the records matching capability, in registration order.
func (r *CapabilityRegistry) Candidates(capability domain.Capability) []domain.ServerCapability {
	var out []domain.ServerCapability
	for _, name := range r.order {
		for _, sc := range r.servers[name] {
			if sc.Capability == capability {
				out = append(out, sc)
			}
		}
	}
	return out
}

// Coverage maps every capability held by at least one server to its servers.
// It is recomputed from the full registry on each call.
func (r *CapabilityRegistry) Coverage() map[domain.Capability][]string {
	out := make(map[domain.Capability][]string)
	for _, name := range r.order {
		for _, sc := range r.servers[name] {
			out[sc.Capability] = append(out[sc.Capability], name)
		}
	}
	return out
}

// Servers returns all registered server names in registration order.
func (r *CapabilityRegistry) Servers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered servers.
func (r *CapabilityRegistry) Len() int {
	return len(r.order)
}
