package pricing

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gksmfly/convenience-store-system/internal/auth"
	"github.com/gksmfly/convenience-store-system/internal/platform/httpx"
)

// Catalog confirms a product exists before an override is stored.
type Catalog interface {
	Exists(ctx context.Context, productID string) error
}

// Handler exposes manual discount management.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	catalog  Catalog
	pins     *auth.PINVerifier
	validate *validator.Validate
}

// NewHandler constructs the discount handler.
func NewHandler(logger *slog.Logger, service *Service, catalog Catalog, pins *auth.PINVerifier) *Handler {
	return &Handler{logger: logger, service: service, catalog: catalog, pins: pins, validate: validator.New()}
}

// MountRoutes registers discount routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.requirePIN)
		r.Put("/{id}", h.set)
		r.Delete("/{id}", h.clear)
	})
}

// ManualDiscount is the wire form of an override.
type ManualDiscount struct {
	ProductID string  `json:"product_id"`
	Percent   int     `json:"percent"`
	Rate      float64 `json:"rate"`
}

type setRequest struct {
	Percent *int `json:"percent" validate:"required"`
}

func (h *Handler) requirePIN(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.pins.Verify(r.Header.Get(auth.PINHeader)); err != nil {
			h.logger.Warn("manager PIN rejected", slog.String("path", r.URL.Path))
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, SortedDiscounts(h.service.ManualDiscounts()))
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}
	if h.catalog != nil {
		if err := h.catalog.Exists(r.Context(), id); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	if err := h.service.SetManualDiscount(id, *req.Percent); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("manual discount set", slog.String("product_id", id), slog.Int("percent", *req.Percent))
	rate, _ := h.service.ManualDiscountRate(id)
	httpx.JSON(w, http.StatusOK, ManualDiscount{ProductID: id, Percent: *req.Percent, Rate: rate})
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.service.ClearManualDiscount(id)
	h.logger.Info("manual discount cleared", slog.String("product_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// SortedDiscounts flattens overrides ordered by product id.
func SortedDiscounts(manual map[string]float64) []ManualDiscount {
	out := make([]ManualDiscount, 0, len(manual))
	for id, rate := range manual {
		out = append(out, ManualDiscount{ProductID: id, Percent: int(math.Round(rate * 100)), Rate: rate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
