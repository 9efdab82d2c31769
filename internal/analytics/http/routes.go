package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers analytics endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/sales", h.handleSales)
	r.Get("/top", h.handleTop)
	r.Get("/top-revenue", h.handleTopRevenue)
	r.Get("/today", h.handleToday)
	r.Get("/rotation", h.handleRotation)
	r.Get("/excess", h.handleExcess)
	r.Get("/dead", h.handleDead)
	r.Get("/abc", h.handleABC)
	r.Get("/trend", h.handleTrend)
	r.Get("/summary", h.handleSummary)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export/{kind}.csv", h.handleCSV)
	})
}
