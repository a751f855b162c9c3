package observability_test

import (
	"testing"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/infra/observability"
)

func TestMetrics_SnapshotCountsOutcomes(t *testing.T) {
	m := observability.NewMetrics()

	m.RecordRoute(domain.CapabilityVectorSearch, true, 0.9, time.Microsecond)
	m.RecordRoute(domain.CapabilityVectorSearch, true, 0.8, time.Microsecond)
	m.RecordRoute(domain.CapabilityCodeReview, true, 0.7, time.Microsecond)
	m.RecordRoute(domain.Capability("nonexistent"), false, 0, time.Microsecond)
	m.IncrProbeError("gong_intelligence")
	m.IncrHealthUpdate("monitor")
	m.IncrHealthUpdate("api")

	snap := m.Snapshot()
	if snap.TotalRequests != 4 {
		t.Errorf("expected 4 total requests, got %d", snap.TotalRequests)
	}
	if snap.RoutedRequests != 3 {
		t.Errorf("expected 3 routed, got %d", snap.RoutedRequests)
	}
	if snap.NoCoverage != 1 {
		t.Errorf("expected 1 no-coverage, got %d", snap.NoCoverage)
	}
	if snap.NoCoverageRate != 0.25 {
		t.Errorf("expected rate 0.25, got %f", snap.NoCoverageRate)
	}
	if snap.ProbeErrors != 1 || snap.HealthUpdates != 2 {
		t.Errorf("unexpected probe/update counters: %+v", snap)
	}
}

func TestMetrics_SnapshotEmpty(t *testing.T) {
	snap := observability.NewMetrics().Snapshot()
	if snap.TotalRequests != 0 || snap.NoCoverageRate != 0 {
		t.Errorf("expected zeroed snapshot, got %+v", snap)
	}
}

func TestMetrics_ServerHealthGauge(t *testing.T) {
	m := observability.NewMetrics()
	m.SetServerHealth(domain.HealthSnapshot{
		"ai_memory":    {Status: domain.StatusHealthy},
		"qdrant_admin": {Status: "on fire"},
	})

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "capability_router_server_health" {
			continue
		}
		for _, metric := range f.GetMetric() {
			var server, status string
			for _, lp := range metric.GetLabel() {
				switch lp.GetName() {
				case "server":
					server = lp.GetValue()
				case "status":
					status = lp.GetValue()
				}
			}
			found[server+"/"+status] = metric.GetGauge().GetValue()
		}
	}

	if found["ai_memory/healthy"] != 1 {
		t.Errorf("expected ai_memory healthy=1, got %v", found["ai_memory/healthy"])
	}
	if found["qdrant_admin/unknown"] != 1 {
		t.Errorf("unrecognised status should be reported as unknown, got %v", found)
	}
	if found["qdrant_admin/healthy"] != 0 {
		t.Errorf("expected qdrant_admin healthy=0")
	}
}
