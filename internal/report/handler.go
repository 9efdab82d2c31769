package report

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/gksmfly/convenience-store-system/internal/platform/httpx"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

const buildTimeout = 5 * time.Second

// Handler serves report sections over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	builds  singleflight.Group
}

// NewHandler constructs the report handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.index)
	r.Get("/dashboard", h.dashboard)
	r.Get("/{section}", h.section)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"sections": Sections})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	// Concurrent requests for the same day share one build.
	key := "dashboard:" + h.service.inv.Clock().Today().Format(time.DateOnly)
	val, err, dup := h.build(r.Context(), key, func(ctx context.Context) (any, error) {
		return h.service.Dashboard(ctx)
	})
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	if dup {
		h.logger.Debug("dashboard build shared", slog.String("key", key))
	}
	httpx.Text(w, http.StatusOK, val.(string))
}

func (h *Handler) section(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "section")
	sec, err := h.service.Section(r.Context(), key)
	if err != nil {
		h.fail(w, key, err)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, sec)
		return
	}
	httpx.Text(w, http.StatusOK, sec.String()+"\n")
}

// build runs fn once per key for all concurrent callers. The shared build outlives
// any single caller and is bounded by buildTimeout instead.
func (h *Handler) build(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	resultChan := h.builds.DoChan(key, func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		return fn(buildCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.UserSafeMessage(err) == "internal error" {
		h.logger.Error("report build failed", slog.String("section", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
