package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sophia-ai/capability-router/internal/config"
	"github.com/sophia-ai/capability-router/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "HEALTH_SOURCE", "HEALTH_PROBE_INTERVAL", "JWT_SECRET", "OTEL_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.HealthSourceProbe, cfg.HealthSource)
	assert.Equal(t, 30*time.Second, cfg.HealthProbeInterval)
	assert.Empty(t, cfg.JWTSecret)
	assert.Empty(t, cfg.TracingEndpoint())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("HEALTH_PROBE_INTERVAL", "5s")
	t.Setenv("MAX_CONCURRENCY", "not-a-number")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("HEALTH_SOURCE", "REDIS")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := config.Load()

	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.HealthProbeInterval)
	assert.Equal(t, 16, cfg.MaxConcurrency)
	assert.Equal(t, "collector:4317", cfg.TracingEndpoint())
	assert.Equal(t, config.HealthSourceRedis, cfg.HealthSource)
}

func TestLoad_RedisSourceWithoutAddrFallsBack(t *testing.T) {
	t.Setenv("HEALTH_SOURCE", "redis")
	t.Setenv("REDIS_ADDR", "")

	assert.Equal(t, config.HealthSourceNone, config.Load().HealthSource)
}

func TestLoad_NonPositiveDurationsUseDefaults(t *testing.T) {
	t.Setenv("HEALTH_TTL", "0s")
	t.Setenv("HEALTH_PROBE_INTERVAL", "-5s")
	t.Setenv("HEALTH_PROBE_TIMEOUT", "0")

	cfg := config.Load()

	assert.Equal(t, 2*time.Minute, cfg.HealthTTL)
	assert.Equal(t, 30*time.Second, cfg.HealthProbeInterval)
	assert.Equal(t, 5*time.Second, cfg.HealthProbeTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# local\nCR_TEST_A=one\nexport CR_TEST_B=\"two\"\nCR_TEST_C='three'\nmalformed\nCR_TEST_KEEP=fromfile\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CR_TEST_KEEP", "fromenv")
	for _, k := range []string{"CR_TEST_A", "CR_TEST_B", "CR_TEST_C"} {
		t.Cleanup(func() { os.Unsetenv(k) })
	}

	require.NoError(t, config.LoadDotEnv(path))

	assert.Equal(t, "one", os.Getenv("CR_TEST_A"))
	assert.Equal(t, "two", os.Getenv("CR_TEST_B"))
	assert.Equal(t, "three", os.Getenv("CR_TEST_C"))
	assert.Equal(t, "fromenv", os.Getenv("CR_TEST_KEEP"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.Error(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadRegistry_BuiltIn(t *testing.T) {
	reg, err := config.LoadRegistry("")
	require.NoError(t, err)

	require.NotEmpty(t, reg.Capabilities)
	require.NotEmpty(t, reg.Endpoints)

	covered := map[domain.Capability]bool{}
	for _, sc := range reg.Capabilities {
		covered[sc.Capability] = true
	}
	for _, c := range domain.AllCapabilities() {
		assert.True(t, covered[c], "built-in fleet should cover %s", c)
	}

	var qdrant domain.Endpoint
	for _, ep := range reg.Endpoints {
		if ep.Server == "qdrant_admin" {
			qdrant = ep
		}
	}
	assert.Equal(t, domain.EndpointQdrant, qdrant.Kind)
	assert.Equal(t, 6334, qdrant.Port)
}

func TestParseRegistry_DefaultsAndEndpoints(t *testing.T) {
	reg, err := config.ParseRegistry([]byte(`
servers:
  - name: new_integration
    endpoint:
      url: http://new:8080
      health_path: /health
    capabilities:
      - capability: web_search
      - capability: crm_sync
        performance: 0.5
        average_latency_ms: 120
  - name: no_probe
    capabilities:
      - capability: ui_design
`))
	require.NoError(t, err)

	require.Len(t, reg.Capabilities, 3)
	assert.Equal(t, domain.ServerCapability{
		ServerName:       "new_integration",
		Capability:       domain.CapabilityWebSearch,
		PerformanceScore: domain.DefaultScore,
		ReliabilityScore: domain.DefaultScore,
	}, reg.Capabilities[0])
	assert.Equal(t, 0.5, reg.Capabilities[1].PerformanceScore)
	assert.Equal(t, domain.DefaultScore, reg.Capabilities[1].ReliabilityScore)
	assert.Equal(t, 120.0, reg.Capabilities[1].AverageLatencyMs)

	require.Len(t, reg.Endpoints, 1)
	assert.Equal(t, domain.Endpoint{
		Server:     "new_integration",
		Kind:       domain.EndpointHTTP,
		URL:        "http://new:8080",
		HealthPath: "/health",
	}, reg.Endpoints[0])
}

func TestParseRegistry_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown capability":  `servers: [{name: a, capabilities: [{capability: teleportation}]}]`,
		"missing name":        `servers: [{capabilities: [{capability: web_search}]}]`,
		"duplicate server":    `servers: [{name: a}, {name: a}]`,
		"negative latency":    `servers: [{name: a, capabilities: [{capability: web_search, average_latency_ms: -1}]}]`,
		"qdrant without host": `servers: [{name: a, endpoint: {kind: qdrant}}]`,
		"unsupported kind":    `servers: [{name: a, endpoint: {kind: smtp, url: "x"}}]`,
		"not yaml":            `servers: [`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.ParseRegistry([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := config.LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "not found")
}
