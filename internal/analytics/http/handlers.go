package analytichttp

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/gksmfly/convenience-store-system/internal/analytics"
	"github.com/gksmfly/convenience-store-system/internal/analytics/export"
	"github.com/gksmfly/convenience-store-system/internal/platform/httpx"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

const (
	defaultWindowDays = 7
	defaultTopN       = 5
	requestTimeout    = 2 * time.Second
)

// Handler serves analytics read models as JSON and CSV.
type Handler struct {
	logger  *slog.Logger
	service *analytics.Service
	csvPool sync.Pool
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service *analytics.Service) *Handler {
	h := &Handler{logger: logger, service: service}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// Summary bundles the headline analytics for one window.
type Summary struct {
	Days     int                        `json:"days"`
	Today    analytics.DaySales         `json:"today"`
	Top      []analytics.ProductSales   `json:"top"`
	TopByRev []analytics.ProductSales   `json:"top_by_revenue"`
	ABC      map[string]analytics.Class `json:"abc"`
	Dead     []string                   `json:"dead_stock"`
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, q query) (any, error) {
		return h.service.Window(ctx, q.days)
	})
}

func (h *Handler) handleTop(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, q query) (any, error) {
		return h.service.TopN(ctx, q.n, q.days)
	})
}

func (h *Handler) handleTopRevenue(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, q query) (any, error) {
		return h.service.TopNByRevenue(ctx, q.n, q.days)
	})
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, _ query) (any, error) {
		return h.service.TodaySales(ctx)
	})
}

func (h *Handler) handleRotation(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, q query) (any, error) {
		return h.service.RotationRates(ctx, q.days)
	})
}

func (h *Handler) handleExcess(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, _ query) (any, error) {
		return h.service.ExcessInventory(ctx)
	})
}

func (h *Handler) handleDead(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, q query) (any, error) {
		return h.service.DeadStock(ctx, q.days)
	})
}

func (h *Handler) handleABC(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, q query) (any, error) {
		return h.service.ABC(ctx, q.days)
	})
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, q query) (any, error) {
		return h.service.DailyTrend(ctx, q.days)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, q query) (any, error) {
		return LoadSummary(ctx, h.service, q.n, q.days)
	})
}

// LoadSummary fetches the summary parts concurrently.
func LoadSummary(ctx context.Context, svc *analytics.Service, n, days int) (Summary, error) {
	data := Summary{Days: days}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		today, err := svc.TodaySales(ctx)
		data.Today = today
		return err
	})
	g.Go(func() error {
		top, err := svc.TopN(ctx, n, days)
		data.Top = top
		return err
	})
	g.Go(func() error {
		top, err := svc.TopNByRevenue(ctx, n, days)
		data.TopByRev = top
		return err
	})
	g.Go(func() error {
		abc, err := svc.ABC(ctx, days)
		data.ABC = abc
		return err
	})
	g.Go(func() error {
		dead, err := svc.DeadStock(ctx, days)
		data.Dead = dead
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return data, nil
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.csvPool.Put(buf)

	kind := chi.URLParam(r, "kind")
	switch kind {
	case "sales":
		var rows []analytics.ProductSales
		if rows, err = h.service.Window(ctx, q.days); err == nil {
			err = export.WriteWindowCSV(buf, rows)
		}
	case "trend":
		var points []analytics.DayPoint
		if points, err = h.service.DailyTrend(ctx, q.days); err == nil {
			err = export.WriteTrendCSV(buf, points)
		}
	case "abc":
		var classes map[string]analytics.Class
		if classes, err = h.service.ABC(ctx, q.days); err == nil {
			err = export.WriteABCCSV(buf, classes)
		}
	default:
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown export "+kind)
		return
	}
	if err != nil {
		h.handleServerError(w, "export "+kind, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+kind+`.csv"`)
	_, _ = w.Write(buf.Bytes())
}

type query struct {
	days int
	n    int
}

func parseQuery(r *http.Request) (query, error) {
	days, err := httpx.QueryInt(r, "days", defaultWindowDays)
	if err != nil {
		return query{}, err
	}
	n, err := httpx.QueryInt(r, "n", defaultTopN)
	if err != nil {
		return query{}, err
	}
	return query{days: days, n: n}, nil
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, load func(context.Context, query) (any, error)) {
	q, err := parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	data, err := load(ctx, q)
	if err != nil {
		h.handleServerError(w, r.URL.Path, err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	if shared.UserSafeMessage(err) == "internal error" {
		h.logger.Error("analytics request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
