// Package domain defines the core entities of the capability router.
// These models are independent of transports and probes and represent the
// canonical data structures used throughout the service.
package domain

import "time"

// ============================================================
// Registry
// ============================================================

// DefaultScore is applied to performance and reliability when a caller
// registers a capability without tuning it.
const DefaultScore = 0.8

// ServerCapability associates a server with one capability and its scores.
type ServerCapability struct {
	ServerName       string     `json:"server_name" yaml:"server"`
	Capability       Capability `json:"capability" yaml:"capability"`
	PerformanceScore float64    `json:"performance_score" yaml:"performance"`
	ReliabilityScore float64    `json:"reliability_score" yaml:"reliability"`
	CostPerRequest   float64    `json:"cost_per_request" yaml:"cost_per_request"`
	AverageLatencyMs float64    `json:"average_latency_ms" yaml:"average_latency_ms"`
}

// CapabilityUpdate is the payload for registering or replacing a capability.
// Nil scores fall back to DefaultScore.
type CapabilityUpdate struct {
	PerformanceScore *float64 `json:"performance_score,omitempty"`
	ReliabilityScore *float64 `json:"reliability_score,omitempty"`
	CostPerRequest   float64  `json:"cost_per_request,omitempty"`
	AverageLatencyMs float64  `json:"average_latency_ms,omitempty"`
}

// ToServerCapability resolves the update into a full record, applying
// DefaultScore to any score the caller left out.
func (u CapabilityUpdate) ToServerCapability(server string, capability Capability) ServerCapability {
	perf, rel := DefaultScore, DefaultScore
	if u.PerformanceScore != nil {
		perf = *u.PerformanceScore
	}
	if u.ReliabilityScore != nil {
		rel = *u.ReliabilityScore
	}
	return ServerCapability{
		ServerName:       server,
		Capability:       capability,
		PerformanceScore: perf,
		ReliabilityScore: rel,
		CostPerRequest:   u.CostPerRequest,
		AverageLatencyMs: u.AverageLatencyMs,
	}
}

// ============================================================
// Routing
// ============================================================

// RouteRequest asks the router for the best servers for a capability.
type RouteRequest struct {
	Capability    Capability     `json:"capability"`
	Context       map[string]any `json:"context,omitempty"`
	PreferServers []string       `json:"prefer_servers,omitempty"`
	AvoidServers  []string       `json:"avoid_servers,omitempty"`
}

// RoutingDecision is the ranked outcome of a routing request.
// An empty PrimaryServer means no server could serve the capability.
type RoutingDecision struct {
	DecisionID      string     `json:"decision_id"`
	PrimaryServer   string     `json:"primary_server"`
	FallbackServers []string   `json:"fallback_servers"`
	Capability      Capability `json:"capability"`
	ConfidenceScore float64    `json:"confidence_score"`
	Reason          string     `json:"reason"`
	DecidedAt       time.Time  `json:"decided_at"`
}

// HasRoute reports whether the decision names a usable primary server.
func (d RoutingDecision) HasRoute() bool {
	return d.PrimaryServer != ""
}

// DecisionRecord is the summary of a decision kept in the decision log.
type DecisionRecord struct {
	Timestamp     string     `json:"timestamp"` // ISO-8601, UTC
	Capability    Capability `json:"capability"`
	PrimaryServer string     `json:"primary_server"`
	Confidence    float64    `json:"confidence"`
}

// RoutingStats aggregates the decision log.
// When no decision has been recorded only TotalRequests is set.
type RoutingStats struct {
	TotalRequests          int                     `json:"total_requests"`
	CapabilityDistribution map[Capability]int      `json:"capability_distribution,omitempty"`
	ServerDistribution     map[string]int          `json:"server_distribution,omitempty"`
	AverageConfidence      *float64                `json:"average_confidence,omitempty"`
	CapabilityCoverage     map[Capability][]string `json:"capability_coverage,omitempty"`
}
