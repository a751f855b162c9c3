package observability

import (
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Route outcomes used as the "outcome" label.
const (
	OutcomeRouted     = "routed"
	OutcomeNoCoverage = "no_coverage"
)

// Metrics holds all Prometheus metrics for the capability router.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	routeRequests *prometheus.CounterVec
	routeDuration prometheus.Histogram
	confidence    prometheus.Histogram
	serverHealth  *prometheus.GaugeVec
	probeErrors   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	healthUpdates *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// router metrics in it. A private registry lets tests build many instances.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		routeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capability_router_requests_total",
				Help: "Total routing requests by capability and outcome.",
			},
			[]string{"capability", "outcome"},
		),
		routeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "capability_router_route_duration_seconds",
				Help:    "Time spent computing a routing decision.",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
		),
		confidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "capability_router_confidence",
				Help:    "Confidence score of routing decisions.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		serverHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capability_router_server_health",
				Help: "1 for the status currently reported for a server, 0 otherwise.",
			},
			[]string{"server", "status"},
		),
		probeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capability_router_probe_errors_total",
				Help: "Total failed health probes by server.",
			},
			[]string{"server"},
		),
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capability_router_probe_duration_seconds",
				Help:    "Duration of health probes by endpoint kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		healthUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capability_router_health_updates_total",
				Help: "Total health snapshot replacements by source.",
			},
			[]string{"source"},
		),
	}
}

// RecordRoute records one routing decision.
func (m *Metrics) RecordRoute(capability domain.Capability, routed bool, confidence float64, d time.Duration) {
	outcome := OutcomeNoCoverage
	if routed {
		outcome = OutcomeRouted
	}
	m.routeRequests.WithLabelValues(string(capability), outcome).Inc()
	m.routeDuration.Observe(d.Seconds())
	m.confidence.Observe(confidence)
}

// SetServerHealth publishes a full snapshot as the server health gauge.
// Servers missing from the snapshot are dropped from the gauge.
func (m *Metrics) SetServerHealth(snapshot domain.HealthSnapshot) {
	m.serverHealth.Reset()
	statuses := []string{domain.StatusHealthy, domain.StatusDegraded, domain.StatusUnhealthy, domain.StatusUnknown}
	for server := range snapshot {
		current := domain.NormalizeStatus(snapshot.StatusOf(server))
		for _, s := range statuses {
			v := 0.0
			if s == current {
				v = 1
			}
			m.serverHealth.WithLabelValues(server, s).Set(v)
		}
	}
}

// IncrProbeError increments the probe error counter.
func (m *Metrics) IncrProbeError(server string) {
	m.probeErrors.WithLabelValues(server).Inc()
}

// RecordProbeDuration records the duration of one probe.
func (m *Metrics) RecordProbeDuration(kind string, d time.Duration) {
	m.probeDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncrHealthUpdate counts a wholesale health snapshot replacement.
func (m *Metrics) IncrHealthUpdate(source string) {
	m.healthUpdates.WithLabelValues(source).Inc()
}

// Snapshot returns the router counters in the shape served by
// GET /v1/metrics/router.
func (m *Metrics) Snapshot() *domain.RouterMetrics {
	routed := sumCounterVec(m.routeRequests, func(labels map[string]string) bool {
		return labels["outcome"] == OutcomeRouted
	})
	noCoverage := sumCounterVec(m.routeRequests, func(labels map[string]string) bool {
		return labels["outcome"] == OutcomeNoCoverage
	})
	total := routed + noCoverage

	rate := 0.0
	if total > 0 {
		rate = noCoverage / total
	}

	return &domain.RouterMetrics{
		TotalRequests:  int64(total),
		RoutedRequests: int64(routed),
		NoCoverage:     int64(noCoverage),
		NoCoverageRate: rate,
		ProbeErrors:    int64(sumCounterVec(m.probeErrors, nil)),
		HealthUpdates:  int64(sumCounterVec(m.healthUpdates, nil)),
		Period:         "all_time",
	}
}

// sumCounterVec adds up every child of a CounterVec whose labels match keep.
// A nil keep matches all children.
func sumCounterVec(cv *prometheus.CounterVec, keep func(labels map[string]string) bool) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil || m.Counter == nil {
			continue
		}
		if keep != nil {
			labels := make(map[string]string, len(m.Label))
			for _, lp := range m.Label {
				labels[lp.GetName()] = lp.GetValue()
			}
			if !keep(labels) {
				continue
			}
		}
		total += m.Counter.GetValue()
	}
	return total
}
