package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/infra/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/router")

// maxFallbacks bounds the fallback list of a decision.
const maxFallbacks = 3

// CapabilityRouter scores registered servers for a requested capability and
// returns a primary/fallback decision.
//
// The registry, the cached health map and the decision log are guarded by a
// single mutex, so a route sees one consistent view of all three.
type CapabilityRouter struct {
	mu       sync.RWMutex
	registry *CapabilityRegistry
	health   domain.HealthSnapshot
	log      *DecisionLog

	metrics *observability.Metrics
	logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewCapabilityRouter creates the router over an initial registry.
func NewCapabilityRouter(seed []domain.ServerCapability, metrics *observability.Metrics, logger *zap.Logger) *CapabilityRouter {
	return &CapabilityRouter{
		registry: NewCapabilityRegistry(seed),
		health:   domain.HealthSnapshot{},
		log:      NewDecisionLog(DecisionLogCapacity),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type scoredCandidate struct {
	server string
	score  float64
}

// RouteRequest picks the best server for req.Capability.
//
// Avoided servers are dropped before scoring. Preferred servers get a 1.2x
// boost. When nothing is left the decision has an empty PrimaryServer and a
// zero confidence; that is a normal outcome, not an error.
func (r *CapabilityRouter) RouteRequest(ctx context.Context, req domain.RouteRequest) domain.RoutingDecision {
	_, span := tracer.Start(ctx, "CapabilityRouter.RouteRequest")
	defer span.End()
	span.SetAttributes(attribute.String("capability", string(req.Capability)))

	start := time.Now()
	avoid := toSet(req.AvoidServers)
	prefer := toSet(req.PreferServers)

	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []scoredCandidate
	for _, sc := range r.registry.Candidates(req.Capability) {
		if _, skip := avoid[sc.ServerName]; skip {
			continue
		}
		score := Score(sc, r.health.StatusOf(sc.ServerName))
		if _, ok := prefer[sc.ServerName]; ok {
			score *= preferredBoost
		}
		candidates = append(candidates, scoredCandidate{server: sc.ServerName, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].server < candidates[j].server
		}
		return candidates[i].score > candidates[j].score
	})

	decision := domain.RoutingDecision{
		DecisionID:      r.newID(),
		FallbackServers: []string{},
		Capability:      req.Capability,
		DecidedAt:       r.now().UTC(),
	}

	if len(candidates) == 0 {
		decision.Reason = fmt.Sprintf("no servers available for capability %s", req.Capability)
		r.logger.Warn("no route for capability",
			zap.String("capability", string(req.Capability)),
			zap.Strings("avoid_servers", req.AvoidServers),
		)
	} else {
		top := candidates[0]
		decision.PrimaryServer = top.server
		for _, c := range candidates[1:] {
			if len(decision.FallbackServers) == maxFallbacks {
				break
			}
			decision.FallbackServers = append(decision.FallbackServers, c.server)
		}
		decision.ConfidenceScore = math.Min(top.score, 1.0)
		decision.Reason = fmt.Sprintf("selected %s for %s with score %.3f", top.server, req.Capability, top.score)
	}

	r.log.Record(domain.DecisionRecord{
		Timestamp:     decision.DecidedAt.Format(time.RFC3339Nano),
		Capability:    decision.Capability,
		PrimaryServer: decision.PrimaryServer,
		Confidence:    decision.ConfidenceScore,
	})

	r.metrics.RecordRoute(req.Capability, decision.HasRoute(), decision.ConfidenceScore, time.Since(start))
	r.logger.Debug("routing decision",
		zap.String("decision_id", decision.DecisionID),
		zap.String("capability", string(req.Capability)),
		zap.String("primary", decision.PrimaryServer),
		zap.Strings("fallbacks", decision.FallbackServers),
		zap.Float64("confidence", decision.ConfidenceScore),
		zap.Int("context_keys", len(req.Context)),
	)
	span.SetAttributes(
		attribute.String("primary_server", decision.PrimaryServer),
		attribute.Float64("confidence", decision.ConfidenceScore),
	)

	return decision
}

// UpdateServerHealth replaces the cached health map wholesale. Servers not
// in snapshot are treated as unknown from the next route onwards.
func (r *CapabilityRouter) UpdateServerHealth(snapshot domain.HealthSnapshot) {
	cp := make(domain.HealthSnapshot, len(snapshot))
	for k, v := range snapshot {
		cp[k] = v
	}

	r.mu.Lock()
	r.health = cp
	r.mu.Unlock()

	r.metrics.SetServerHealth(cp)
	r.logger.Debug("server health replaced", zap.Int("servers", len(cp)))
}

// ServerHealth returns a copy of the cached health map.
func (r *CapabilityRouter) ServerHealth() domain.HealthSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := make(domain.HealthSnapshot, len(r.health))
	for k, v := range r.health {
		cp[k] = v
	}
	return cp
}

// CapabilityCoverage maps each covered capability to the servers holding it.
func (r *CapabilityRouter) CapabilityCoverage() map[domain.Capability][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.registry.Coverage()
}

// ServerCapabilities returns the capabilities of server; empty when unknown.
func (r *CapabilityRouter) ServerCapabilities(server string) []domain.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.registry.CapabilitiesFor(server)
}

// ServersFor returns the servers registered for capability.
func (r *CapabilityRouter) ServersFor(capability domain.Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.registry.ServersFor(capability)
}

// Servers returns every registered server name.
func (r *CapabilityRouter) Servers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.registry.Servers()
}

// AddServerCapability registers sc, replacing any existing record for the
// same server and capability.
func (r *CapabilityRouter) AddServerCapability(sc domain.ServerCapability) {
	r.mu.Lock()
	r.registry.Upsert(sc)
	r.mu.Unlock()

	r.logger.Info("server capability registered",
		zap.String("server", sc.ServerName),
		zap.String("capability", string(sc.Capability)),
		zap.Float64("performance", sc.PerformanceScore),
		zap.Float64("reliability", sc.ReliabilityScore),
	)
}

// RoutingStats aggregates the decision log. An empty log yields only
// TotalRequests = 0.
func (r *CapabilityRouter) RoutingStats() domain.RoutingStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.log.Entries()
	if len(entries) == 0 {
		return domain.RoutingStats{TotalRequests: 0}
	}

	byCapability := make(map[domain.Capability]int)
	byServer := make(map[string]int)
	var sum float64
	for _, e := range entries {
		byCapability[e.Capability]++
		if e.PrimaryServer != "" {
			byServer[e.PrimaryServer]++
		}
		sum += e.Confidence
	}
	avg := sum / float64(len(entries))

	return domain.RoutingStats{
		TotalRequests:          len(entries),
		CapabilityDistribution: byCapability,
		ServerDistribution:     byServer,
		AverageConfidence:      &avg,
		CapabilityCoverage:     r.registry.Coverage(),
	}
}

// RecentDecisions returns up to limit of the newest decision summaries,
// newest first. A non-positive limit returns the whole log.
func (r *CapabilityRouter) RecentDecisions(limit int) []domain.DecisionRecord {
	r.mu.RLock()
	entries := r.log.Entries()
	r.mu.RUnlock()

	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]domain.DecisionRecord, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
