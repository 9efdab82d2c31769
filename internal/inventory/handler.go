package inventory

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gksmfly/convenience-store-system/internal/clock"
	"github.com/gksmfly/convenience-store-system/internal/platform/httpx"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update)
		r.Delete("/", h.remove)
		r.Post("/receive", h.receive)
		r.Post("/sell", h.sell)
		r.Post("/dispose", h.dispose)
	})
}

type productRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required"`
	Category     string `json:"category" validate:"required"`
	Price        int64  `json:"price" validate:"gte=0"`
	TargetStock  int    `json:"target_stock" validate:"gte=0"`
	CurrentStock int    `json:"current_stock" validate:"gte=0"`
	ExpiryDate   string `json:"expiry_date"`
	Barcode      string `json:"barcode"`
}

type qtyRequest struct {
	Qty int `json:"qty"`
}

// ProductView is a product with its derived state as of today.
type ProductView struct {
	Product
	Status       StockStatus `json:"status"`
	StockRate    float64     `json:"stock_rate"`
	DaysLeft     *int        `json:"days_left,omitempty"`
	DiscountRate float64     `json:"discount_rate"`
	FinalPrice   int64       `json:"final_price"`
}

func (h *Handler) view(p Product) ProductView {
	rate, price := h.service.CurrentPrice(p)
	return ProductView{
		Product:      p,
		Status:       h.service.StockStatus(p, 0),
		StockRate:    StockRate(p),
		DaysLeft:     h.service.DaysLeft(p),
		DiscountRate: rate,
		FinalPrice:   price,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, h.view(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	created, err := h.service.AddProduct(r.Context(), p)
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.view(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p.ID = chi.URLParam(r, "id")
	updated, err := h.service.UpdateProduct(r.Context(), p)
	if err != nil {
		h.fail(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(updated))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	qty, ok := h.decodeQty(w, r)
	if !ok {
		return
	}
	p, err := h.service.Receive(r.Context(), chi.URLParam(r, "id"), qty)
	if err != nil {
		h.fail(w, "receive stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(p))
}

func (h *Handler) dispose(w http.ResponseWriter, r *http.Request) {
	qty, ok := h.decodeQty(w, r)
	if !ok {
		return
	}
	p, err := h.service.Dispose(r.Context(), chi.URLParam(r, "id"), qty)
	if err != nil {
		h.fail(w, "dispose stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(p))
}

func (h *Handler) sell(w http.ResponseWriter, r *http.Request) {
	qty, ok := h.decodeQty(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Sell(r.Context(), chi.URLParam(r, "id"), qty)
	if err != nil {
		h.fail(w, "sell", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (Product, bool) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return Product{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return Product{}, false
	}
	cat, ok := ParseCategory(req.Category)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "unknown category "+req.Category)
		return Product{}, false
	}
	p := Product{
		ID:           strings.TrimSpace(req.ID),
		Name:         strings.TrimSpace(req.Name),
		Category:     cat,
		Price:        req.Price,
		TargetStock:  req.TargetStock,
		CurrentStock: req.CurrentStock,
		Barcode:      strings.TrimSpace(req.Barcode),
	}
	if req.ExpiryDate != "" {
		d, err := clock.ParseDate(req.ExpiryDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "expiry_date must be YYYY-MM-DD")
			return Product{}, false
		}
		p.ExpiryDate = &d
	}
	return p, true
}

func (h *Handler) decodeQty(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req qtyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	return req.Qty, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.UserSafeMessage(err) == "internal error" {
		h.logger.Error("inventory request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
