package handler

import (
	"net/http"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/infra/observability"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// BreakerStates reports per-server circuit breaker states.
type BreakerStates interface {
	States() map[string]string
}

// Deps are the collaborators served by the HTTP API.
type Deps struct {
	Router   *service.CapabilityRouter
	Auth     *service.TokenAuthority // nil or secretless disables admin auth
	Breakers BreakerStates           // optional
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Version  string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Router))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Handle("/mcp", NewMCPHandler(d.Router, d.Version))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Routing
		// =============================================
		r.Post("/route", routeHandler(d.Router, logger))
		r.Get("/route/{capability}", routeByPathHandler(d.Router))
		r.Get("/decisions", recentDecisionsHandler(d.Router))
		r.Get("/stats", routingStatsHandler(d.Router))

		// =============================================
		// Registry
		// =============================================
		r.Get("/capabilities", listCapabilitiesHandler())
		r.Get("/coverage", coverageHandler(d.Router))
		r.Get("/servers", listServersHandler(d.Router))
		r.Get("/servers/{server}/capabilities", serverCapabilitiesHandler(d.Router))

		// =============================================
		// Health
		// =============================================
		r.Get("/health/servers", serverHealthHandler(d.Router))
		r.Get("/health/breakers", breakerStatesHandler(d.Breakers))

		// =============================================
		// Metrics
		// =============================================
		r.Get("/metrics/router", routerMetricsHandler(d.Metrics))

		// =============================================
		// Admin (mutating)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Auth, logger))
			r.Put("/health", replaceHealthHandler(d.Router, d.Metrics, logger))
			r.Put("/servers/{server}/capabilities/{capability}", upsertCapabilityHandler(d.Router, logger))
		})
	})

	return r
}

func healthzHandler(router *service.CapabilityRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "capability-router", Status: domain.StatusHealthy, LastChecked: now},
		}

		health := router.ServerHealth()
		anyHealthy := false
		for _, name := range router.Servers() {
			h, ok := health[name]
			status := health.StatusOf(name)
			sh := domain.ServiceHealth{Name: name, Status: status}
			if ok {
				sh.LatencyMs = h.LatencyMs
				if h.LastChecked != nil {
					sh.LastChecked = h.LastChecked.UTC().Format(time.RFC3339)
				}
			}
			if status == domain.StatusHealthy {
				anyHealthy = true
			}
			services = append(services, sh)
		}

		overall := domain.StatusHealthy
		if len(health) > 0 && !anyHealthy {
			overall = domain.StatusDegraded
		}

		writeJSON(w, http.StatusOK, domain.ServiceStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func routerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}

func breakerStatesHandler(breakers BreakerStates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states := map[string]string{}
		if breakers != nil {
			states = breakers.States()
		}
		writeJSON(w, http.StatusOK, map[string]any{"breakers": states})
	}
}
