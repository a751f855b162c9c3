package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// maxHealthBody caps how much of a health response is decoded.
const maxHealthBody = 64 << 10

// HTTPProber checks servers exposing an HTTP health endpoint.
//
// A JSON body carrying a "status" field is trusted as-is. Otherwise the
// status code decides: 2xx is healthy, 5xx unhealthy, anything else degraded.
type HTTPProber struct {
	httpClient *http.Client
}

// NewHTTPProber creates a prober using httpClient.
func NewHTTPProber(httpClient *http.Client) *HTTPProber {
	return &HTTPProber{httpClient: httpClient}
}

type healthBody struct {
	Status string `json:"status"`
}

// Probe implements port.HealthProber.
func (p *HTTPProber) Probe(ctx context.Context, ep domain.Endpoint) (domain.ServerHealth, error) {
	ctx, span := tracer.Start(ctx, "HTTPProber.Probe")
	defer span.End()

	url := strings.TrimRight(ep.URL, "/") + ep.HealthPath
	span.SetAttributes(attribute.String("server", ep.Server), attribute.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ServerHealth{}, fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.ServerHealth{}, &domain.ErrExternalService{Service: ep.Server, Err: err}
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	health := domain.ServerHealth{
		Status:    statusFromCode(resp.StatusCode),
		LatencyMs: latency.Milliseconds(),
		Details:   map[string]any{"http_status": resp.StatusCode},
	}
	if health.Status == domain.StatusUnhealthy {
		health.Error = fmt.Sprintf("health endpoint returned status %d", resp.StatusCode)
	}

	var body healthBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxHealthBody))
	if len(raw) > 0 && json.Unmarshal(raw, &body) == nil {
		if status, ok := statusFromBody(body.Status); ok {
			health.Status = status
			if status != domain.StatusUnhealthy {
				health.Error = ""
			}
		}
	}

	span.SetAttributes(attribute.String("status", health.Status))
	return health, nil
}

// statusFromBody maps a reported status word onto the router's vocabulary.
// Words it does not recognise leave the status code in charge.
func statusFromBody(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case domain.StatusHealthy, "ok", "up", "pass", "green":
		return domain.StatusHealthy, true
	case domain.StatusDegraded, "warn", "yellow":
		return domain.StatusDegraded, true
	case domain.StatusUnhealthy, "down", "fail", "red":
		return domain.StatusUnhealthy, true
	}
	return "", false
}

func statusFromCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return domain.StatusHealthy
	case code >= 500:
		return domain.StatusUnhealthy
	default:
		return domain.StatusDegraded
	}
}
