package domain

import "time"

// ============================================================
// Server health
// ============================================================

// Health status values understood by the scoring engine.
// Any other value, or a missing entry, is treated as StatusUnknown.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
)

// NormalizeStatus maps any unrecognised status onto StatusUnknown.
func NormalizeStatus(status string) string {
	switch status {
	case StatusHealthy, StatusDegraded, StatusUnhealthy:
		return status
	}
	return StatusUnknown
}

// ServerHealth is a snapshot of one server's health as reported by a probe
// or by the external health monitor.
type ServerHealth struct {
	Status      string         `json:"status"`
	LatencyMs   int64          `json:"latency_ms,omitempty"`
	LastChecked *time.Time     `json:"last_checked,omitempty"`
	Error       string         `json:"error,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// HealthSnapshot maps server names to their current health.
type HealthSnapshot map[string]ServerHealth

// StatusOf returns the status for server, or StatusUnknown when absent.
func (s HealthSnapshot) StatusOf(server string) string {
	h, ok := s[server]
	if !ok || h.Status == "" {
		return StatusUnknown
	}
	return h.Status
}

// ============================================================
// Probe endpoints
// ============================================================

// Endpoint kinds supported by the probers.
const (
	EndpointHTTP   = "http"
	EndpointMCP    = "mcp"
	EndpointQdrant = "qdrant"
)

// Endpoint describes how to reach a server to check its health.
type Endpoint struct {
	Server     string `json:"server" yaml:"-"`
	Kind       string `json:"kind" yaml:"kind"`
	URL        string `json:"url,omitempty" yaml:"url"`
	// HealthPath is appended to URL for http endpoints.
	HealthPath string `json:"health_path,omitempty" yaml:"health_path"`
	Host       string `json:"host,omitempty" yaml:"host"`
	Port       int    `json:"port,omitempty" yaml:"port"`
}

// ============================================================
// Operational endpoints
// ============================================================

// ServiceStatus is returned by GET /healthz.
type ServiceStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency of the router.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// RouterMetrics is returned by GET /v1/metrics/router.
type RouterMetrics struct {
	TotalRequests  int64   `json:"totalRequests"`
	RoutedRequests int64   `json:"routedRequests"`
	NoCoverage     int64   `json:"noCoverage"`
	NoCoverageRate float64 `json:"noCoverageRate"`
	ProbeErrors    int64   `json:"probeErrors"`
	HealthUpdates  int64   `json:"healthUpdates"`
	Period         string  `json:"period"`
}
