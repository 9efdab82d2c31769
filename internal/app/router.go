package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	analytichttp "github.com/gksmfly/convenience-store-system/internal/analytics/http"
	"github.com/gksmfly/convenience-store-system/internal/inventory"
	"github.com/gksmfly/convenience-store-system/internal/observability"
	"github.com/gksmfly/convenience-store-system/internal/platform/httpx"
	"github.com/gksmfly/convenience-store-system/internal/pricing"
	"github.com/gksmfly/convenience-store-system/internal/report"
	"github.com/gksmfly/convenience-store-system/jobs"
)

// HealthCheck probes one backing service for /healthz.
type HealthCheck struct {
	Name  string
	Check func(context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	ProductHandler   *inventory.Handler
	DiscountHandler  *pricing.Handler
	AnalyticsHandler *analytichttp.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	HealthChecks     []HealthCheck
}

// NewRouter constructs the chi.Router with store defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthz(params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/products", params.ProductHandler.MountRoutes)
	r.Route("/discounts", params.DiscountHandler.MountRoutes)
	if params.AnalyticsHandler != nil {
		r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
	}
	r.Route("/reports", params.ReportHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	return r
}

func healthz(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				deps[c.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[c.Name] = "ok"
		}
		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["checks"] = deps
		}
		httpx.JSON(w, status, body)
	}
}
