package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/infra/observability"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// HealthSourceAPI labels health snapshots pushed through PUT /v1/health.
const HealthSourceAPI = "api"

// ============================================================
// Routing
// ============================================================

func routeHandler(router *service.CapabilityRouter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/route")
		defer span.End()

		var req domain.RouteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "body", Message: "invalid request body"}, logger)
			return
		}
		if req.Capability == "" {
			handleServiceError(w, &domain.ErrValidation{Field: "capability", Message: "is required"}, logger)
			return
		}
		span.SetAttributes(attribute.String("capability", string(req.Capability)))

		writeJSON(w, http.StatusOK, router.RouteRequest(ctx, req))
	}
}

func routeByPathHandler(router *service.CapabilityRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/route/{capability}")
		defer span.End()

		req := domain.RouteRequest{
			Capability:    domain.Capability(chi.URLParam(r, "capability")),
			PreferServers: queryList(r, "prefer"),
			AvoidServers:  queryList(r, "avoid"),
		}
		span.SetAttributes(attribute.String("capability", string(req.Capability)))

		writeJSON(w, http.StatusOK, router.RouteRequest(ctx, req))
	}
}

func recentDecisionsHandler(router *service.CapabilityRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		writeJSON(w, http.StatusOK, map[string]any{
			"decisions": router.RecentDecisions(limit),
		})
	}
}

func routingStatsHandler(router *service.CapabilityRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, router.RoutingStats())
	}
}

// ============================================================
// Registry
// ============================================================

func listCapabilitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"capabilities": domain.AllCapabilities(),
		})
	}
}

func coverageHandler(router *service.CapabilityRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coverage := router.CapabilityCoverage()
		var uncovered []domain.Capability
		for _, c := range domain.AllCapabilities() {
			if len(coverage[c]) == 0 {
				uncovered = append(uncovered, c)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"coverage":  coverage,
			"uncovered": uncovered,
		})
	}
}

func listServersHandler(router *service.CapabilityRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"servers": router.Servers()})
	}
}

func serverCapabilitiesHandler(router *service.CapabilityRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		server := chi.URLParam(r, "server")
		writeJSON(w, http.StatusOK, map[string]any{
			"server":       server,
			"capabilities": router.ServerCapabilities(server),
		})
	}
}

func upsertCapabilityHandler(router *service.CapabilityRouter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "PUT /v1/servers/{server}/capabilities/{capability}")
		defer span.End()

		server := chi.URLParam(r, "server")
		capability, ok := domain.ParseCapability(chi.URLParam(r, "capability"))
		if !ok {
			handleServiceError(w, &domain.ErrValidation{
				Field:   "capability",
				Message: fmt.Sprintf("unknown capability %q", chi.URLParam(r, "capability")),
			}, logger)
			return
		}

		// An empty body registers the capability with default scores.
		var update domain.CapabilityUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil && !errors.Is(err, io.EOF) {
			handleServiceError(w, &domain.ErrValidation{Field: "body", Message: "invalid request body"}, logger)
			return
		}
		if update.CostPerRequest < 0 || update.AverageLatencyMs < 0 {
			handleServiceError(w, &domain.ErrValidation{
				Field:   "body",
				Message: "cost_per_request and average_latency_ms must not be negative",
			}, logger)
			return
		}

		sc := update.ToServerCapability(server, capability)
		router.AddServerCapability(sc)
		logger.Info("capability registered via api",
			zap.String("server", server),
			zap.String("capability", string(capability)),
			zap.String("admin", AdminSubjectFromContext(r.Context())),
		)
		writeJSON(w, http.StatusOK, sc)
	}
}

// ============================================================
// Health
// ============================================================

func serverHealthHandler(router *service.CapabilityRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, router.ServerHealth())
	}
}

func replaceHealthHandler(router *service.CapabilityRouter, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snapshot domain.HealthSnapshot
		if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil || snapshot == nil {
			handleServiceError(w, &domain.ErrValidation{Field: "body", Message: "must be a JSON object of server health"}, logger)
			return
		}

		router.UpdateServerHealth(snapshot)
		metrics.IncrHealthUpdate(HealthSourceAPI)
		logger.Info("server health replaced via api",
			zap.Int("servers", len(snapshot)),
			zap.String("admin", AdminSubjectFromContext(r.Context())),
		)
		writeJSON(w, http.StatusOK, map[string]any{"servers": len(snapshot)})
	}
}
