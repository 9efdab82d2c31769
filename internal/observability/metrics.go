// Package observability exposes Prometheus collectors for the HTTP surface and store mutations.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gksmfly/convenience-store-system/internal/inventory"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	salesTotal      prometheus.Counter
	unitsSold       prometheus.Counter
	revenue         prometheus.Counter
	mutations       *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and store collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sales := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_sales_total",
		Help: "Committed sale records.",
	})
	units := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_units_sold_total",
		Help: "Units sold across all products.",
	})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_revenue_krw_total",
		Help: "Sales revenue in won.",
	})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_stock_mutations_total",
		Help: "Committed catalog and stock mutations by kind.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, sales, units, revenue, mutations)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		salesTotal:      sales,
		unitsSold:       units,
		revenue:         revenue,
		mutations:       mutations,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveMutation counts a committed inventory mutation.
func (m *Metrics) ObserveMutation(mut inventory.Mutation) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(mut.Kind)).Inc()
	if mut.Kind == inventory.MutationSell && mut.Sale != nil {
		m.salesTotal.Inc()
		m.unitsSold.Add(float64(mut.Sale.Qty))
		m.revenue.Add(float64(mut.Sale.Amount()))
	}
}

// Registerer exposes the registry for extra collectors such as job metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
