package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/infra/observability"
	"github.com/sophia-ai/capability-router/internal/infra/resilience"
	"github.com/sophia-ai/capability-router/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthSourceProbe labels snapshots produced by the monitor.
const HealthSourceProbe = "probe"

// HealthMonitorConfig tunes the probe loop.
type HealthMonitorConfig struct {
	Interval        time.Duration
	Timeout         time.Duration
	DegradedLatency time.Duration
	Retry           resilience.Config
}

// HealthMonitor probes every known endpoint and pushes the resulting
// snapshot into a HealthSink.
//
// Each probe runs through the server's circuit breaker and the retry
// policy; the bulkhead caps how many probes are in flight. Results land in
// a TTL cache, so a server that stops being probed drops out of the next
// snapshot and reads as unknown.
type HealthMonitor struct {
	prober   port.HealthProber
	sink     port.HealthSink
	cache    port.Cache[domain.ServerHealth]
	breakers *resilience.BreakerSet
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
	cfg      HealthMonitorConfig

	mu        sync.RWMutex
	endpoints map[string]domain.Endpoint

	now func() time.Time
}

// NewHealthMonitor creates a monitor. Zero config values fall back to
// 30s interval, 5s timeout and 1s degraded latency.
func NewHealthMonitor(
	prober port.HealthProber,
	sink port.HealthSink,
	cache port.Cache[domain.ServerHealth],
	breakers *resilience.BreakerSet,
	metrics *observability.Metrics,
	logger *zap.Logger,
	cfg HealthMonitorConfig,
) *HealthMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.DegradedLatency <= 0 {
		cfg.DegradedLatency = time.Second
	}
	return &HealthMonitor{
		prober:    prober,
		sink:      sink,
		cache:     cache,
		breakers:  breakers,
		bulkhead:  resilience.NewBulkhead(cfg.Retry.MaxConcurrency),
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		endpoints: make(map[string]domain.Endpoint),
		now:       time.Now,
	}
}

// SetEndpoint adds or replaces the probe endpoint of ep.Server.
func (m *HealthMonitor) SetEndpoint(ep domain.Endpoint) {
	m.mu.Lock()
	m.endpoints[ep.Server] = ep
	m.mu.Unlock()
}

// Endpoints returns the probe targets sorted by server name.
func (m *HealthMonitor) Endpoints() []domain.Endpoint {
	m.mu.RLock()
	out := make([]domain.Endpoint, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		out = append(out, ep)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Server < out[j].Server })
	return out
}

// Snapshot returns the unexpired probe results.
func (m *HealthMonitor) Snapshot() domain.HealthSnapshot {
	return domain.HealthSnapshot(m.cache.Items())
}

// Run probes immediately and then every Interval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.logger.Info("health monitor started",
		zap.Duration("interval", m.cfg.Interval),
		zap.Int("endpoints", len(m.Endpoints())),
	)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		m.ProbeAll(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info("health monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProbeAll probes every endpoint once, pushes the snapshot to the sink and
// returns it.
func (m *HealthMonitor) ProbeAll(ctx context.Context) domain.HealthSnapshot {
	ctx, span := tracer.Start(ctx, "HealthMonitor.ProbeAll")
	defer span.End()

	endpoints := m.Endpoints()
	span.SetAttributes(attribute.Int("endpoints", len(endpoints)))

	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range endpoints {
		g.Go(func() error {
			if err := m.bulkhead.Acquire(gctx); err != nil {
				return err
			}
			defer m.bulkhead.Release()

			m.cache.Set(ep.Server, m.probeOne(gctx, ep))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Warn("probe round interrupted", zap.Error(err))
	}

	snapshot := m.Snapshot()
	m.sink.UpdateServerHealth(snapshot)
	m.metrics.IncrHealthUpdate(HealthSourceProbe)
	return snapshot
}

func (m *HealthMonitor) probeOne(ctx context.Context, ep domain.Endpoint) domain.ServerHealth {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	start := time.Now()
	var last domain.ServerHealth
	err := m.breakers.Execute(ep.Server, func() error {
		return resilience.RetryWithBackoff(ctx, m.cfg.Retry, func() error {
			h, err := m.prober.Probe(ctx, ep)
			last = h
			if err != nil {
				return err
			}
			if h.Status == domain.StatusUnhealthy {
				return &domain.ErrExternalService{Service: ep.Server, Err: errors.New(h.Error)}
			}
			return nil
		})
	})
	elapsed := time.Since(start)
	m.metrics.RecordProbeDuration(ep.Kind, elapsed)

	checked := m.now().UTC()
	if err != nil {
		m.metrics.IncrProbeError(ep.Server)
		m.logger.Warn("health probe failed",
			zap.String("server", ep.Server),
			zap.String("kind", ep.Kind),
			zap.Error(err),
		)
		return domain.ServerHealth{
			Status:      domain.StatusUnhealthy,
			LatencyMs:   elapsed.Milliseconds(),
			LastChecked: &checked,
			Error:       probeError(ctx, err),
			Details:     last.Details,
		}
	}

	h := last
	h.LastChecked = &checked
	if h.LatencyMs == 0 {
		h.LatencyMs = elapsed.Milliseconds()
	}
	h.Status = domain.NormalizeStatus(h.Status)
	if h.Status == domain.StatusHealthy && time.Duration(h.LatencyMs)*time.Millisecond > m.cfg.DegradedLatency {
		h.Status = domain.StatusDegraded
	}
	return h
}

func probeError(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return (&domain.ErrTimeout{Operation: "health probe"}).Error()
	}
	var open *domain.ErrCircuitOpen
	if errors.As(err, &open) {
		return open.Error()
	}
	return fmt.Sprintf("probe: %v", err)
}
