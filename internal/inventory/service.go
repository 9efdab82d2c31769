package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gksmfly/convenience-store-system/internal/clock"
	"github.com/gksmfly/convenience-store-system/internal/pricing"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// ProductRepository stores products keyed by id.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]Product, error)
	FindByID(ctx context.Context, id string) (Product, error)
	Save(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}

// SalesRepository is the append-only sales ledger.
type SalesRepository interface {
	Record(ctx context.Context, s Sale) error
	All(ctx context.Context) ([]Sale, error)
	ByDateRange(ctx context.Context, from, to time.Time) ([]Sale, error)
}

// TxRepository exposes the operations available inside a unit of work.
type TxRepository interface {
	ProductRepository
	SalesRepository
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	TxRepository
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops derived read models after a committed write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Observer receives committed mutations.
type Observer interface {
	ObserveMutation(m Mutation)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	StockThreshold float64
	ExpiryWarnDays int
}

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	prices   *pricing.Service
	clock    clock.Clock
	audit    AuditPort
	cache    CacheInvalidator
	observer Observer
	logger   *slog.Logger
	validate *validator.Validate
	cfg      ServiceConfig
}

// NewService builds Service.
func NewService(repo RepositoryPort, prices *pricing.Service, clk clock.Clock, audit AuditPort, cfg ServiceConfig) *Service {
	if cfg.StockThreshold <= 0 {
		cfg.StockThreshold = DefaultStockThreshold
	}
	if cfg.ExpiryWarnDays <= 0 {
		cfg.ExpiryWarnDays = DefaultExpiryWarnDays
	}
	if prices == nil {
		prices = pricing.NewService(nil)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		repo:     repo,
		prices:   prices,
		clock:    clk,
		audit:    audit,
		logger:   slog.Default(),
		validate: validator.New(),
		cfg:      cfg,
	}
}

// WithCache registers the analytics cache invalidated after every commit.
func (s *Service) WithCache(cache CacheInvalidator) *Service {
	s.cache = cache
	return s
}

// WithObserver registers a mutation observer such as the metrics collector.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// WithLogger replaces the default logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Config returns the effective settings.
func (s *Service) Config() ServiceConfig { return s.cfg }

// Clock returns the service clock.
func (s *Service) Clock() clock.Clock { return s.clock }

// Pricing returns the pricing service used for sales.
func (s *Service) Pricing() *pricing.Service { return s.prices }

// Sales exposes the ledger for read models.
func (s *Service) Sales() SalesRepository { return s.repo }

// StockRate returns current/target, or 0 when the target is 0.
func StockRate(p Product) float64 {
	if p.TargetStock == 0 {
		return 0
	}
	return float64(p.CurrentStock) / float64(p.TargetStock)
}

// Shortage returns how many units are missing to reach the target.
func Shortage(p Product) int {
	if p.CurrentStock >= p.TargetStock {
		return 0
	}
	return p.TargetStock - p.CurrentStock
}

// StockStatusOf derives the product status for the given threshold.
func StockStatusOf(p Product, threshold float64) StockStatus {
	switch {
	case p.CurrentStock <= 0:
		return StatusOutOfStock
	case StockRate(p) < threshold:
		return StatusLow
	default:
		return StatusSufficient
	}
}

// NeedsReorder reports whether the stock rate fell below threshold.
func NeedsReorder(p Product, threshold float64) bool {
	return StockRate(p) < threshold
}

// ReorderPoint is avgDaily*leadDays truncated, plus safety stock.
func ReorderPoint(avgDaily float64, leadDays, safety int) int {
	return int(avgDaily*float64(leadDays)) + safety
}

// StockStatus derives the status using the configured threshold when threshold <= 0.
func (s *Service) StockStatus(p Product, threshold float64) StockStatus {
	return StockStatusOf(p, s.threshold(threshold))
}

// NeedsReorder uses the configured threshold when threshold <= 0.
func (s *Service) NeedsReorder(p Product, threshold float64) bool {
	return NeedsReorder(p, s.threshold(threshold))
}

func (s *Service) threshold(t float64) float64 {
	if t <= 0 {
		return s.cfg.StockThreshold
	}
	return t
}

// DaysLeft returns the calendar days from today to expiry, nil when not expiry managed.
func (s *Service) DaysLeft(p Product) *int {
	if p.ExpiryDate == nil {
		return nil
	}
	d := clock.DaysBetween(s.clock.Today(), *p.ExpiryDate)
	return &d
}

// ExpiringSoon keeps products whose days left fall within [0, warnDays].
func (s *Service) ExpiringSoon(products []Product, warnDays int) []Product {
	var out []Product
	for _, p := range products {
		d := s.DaysLeft(p)
		if d == nil || *d < 0 || *d > warnDays {
			continue
		}
		out = append(out, p)
	}
	return out
}

// CurrentPrice returns the rate and discounted unit price a sale would charge today.
func (s *Service) CurrentPrice(p Product) (float64, int64) {
	rate := s.prices.CurrentDiscountRate(p.ID, s.DaysLeft(p))
	return rate, s.prices.FinalPrice(p.Price, rate)
}

// Receive adds qty units to stock.
func (s *Service) Receive(ctx context.Context, id string, qty int) (Product, error) {
	return s.adjust(ctx, MutationReceive, id, qty)
}

// Dispose removes qty units without recording a sale.
func (s *Service) Dispose(ctx context.Context, id string, qty int) (Product, error) {
	return s.adjust(ctx, MutationDispose, id, qty)
}

func (s *Service) adjust(ctx context.Context, kind MutationKind, id string, qty int) (Product, error) {
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkQty(kind, qty); err != nil {
			return err
		}
		switch kind {
		case MutationReceive:
			if qty > MaxStock-p.CurrentStock {
				return fmt.Errorf("inventory: receive %d of %q with %d on hand exceeds %d: %w", qty, id, p.CurrentStock, MaxStock, shared.ErrInvalidArgument)
			}
			p.CurrentStock += qty
		case MutationDispose:
			if qty > p.CurrentStock {
				return fmt.Errorf("inventory: dispose %d of %q with %d on hand: %w", qty, id, p.CurrentStock, shared.ErrInsufficientStock)
			}
			p.CurrentStock -= qty
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.afterCommit(ctx, Mutation{Kind: kind, ProductID: id, Qty: qty}, map[string]any{"qty": qty, "stock": updated.CurrentStock})
	return updated, nil
}

// Sell decrements stock and appends a sale priced with the current discount.
// Both writes commit together.
func (s *Service) Sell(ctx context.Context, id string, qty int) (Sale, error) {
	var sale Sale
	var remaining int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkQty(MutationSell, qty); err != nil {
			return err
		}
		if qty > p.CurrentStock {
			return fmt.Errorf("inventory: sell %d of %q with %d on hand: %w", qty, id, p.CurrentStock, shared.ErrInsufficientStock)
		}
		_, unitPrice := s.CurrentPrice(p)
		p.CurrentStock -= qty
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		sale = Sale{ProductID: id, Qty: qty, PriceAtSale: unitPrice, Timestamp: s.clock.Today()}
		remaining = p.CurrentStock
		return tx.Record(ctx, sale)
	})
	if err != nil {
		return Sale{}, err
	}
	s.afterCommit(ctx, Mutation{Kind: MutationSell, ProductID: id, Qty: qty, Sale: &sale}, map[string]any{
		"qty":           qty,
		"price_at_sale": sale.PriceAtSale,
		"stock":         remaining,
	})
	return sale, nil
}

// MaxStock bounds on-hand quantity to the range of the products.current_stock column.
const MaxStock = math.MaxInt32

func checkQty(kind MutationKind, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("inventory: %s quantity %d must be positive: %w", kind, qty, shared.ErrInvalidArgument)
	}
	return nil
}

// AllProducts lists the catalog in insertion order.
func (s *Service) AllProducts(ctx context.Context) ([]Product, error) {
	return s.repo.FindAll(ctx)
}

// Product fetches one product.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	return s.repo.FindByID(ctx, id)
}

// Exists returns shared.ErrNotFound for unknown ids.
func (s *Service) Exists(ctx context.Context, id string) error {
	_, err := s.repo.FindByID(ctx, id)
	return err
}

// Search filters the catalog by keyword over id, name and barcode.
func (s *Service) Search(ctx context.Context, keyword string) ([]Product, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Product
	for _, p := range all {
		if p.Matches(keyword) {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddProduct inserts a new product. Duplicate ids are rejected.
func (s *Service) AddProduct(ctx context.Context, p Product) (Product, error) {
	p, err := s.normalizeProduct(p)
	if err != nil {
		return Product{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, err := tx.FindByID(ctx, p.ID)
		switch {
		case err == nil:
			return fmt.Errorf("inventory: product %q already exists: %w", p.ID, shared.ErrInvalidArgument)
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}
		return tx.Save(ctx, p)
	})
	if err != nil {
		return Product{}, err
	}
	s.afterCommit(ctx, Mutation{Kind: MutationCreate, ProductID: p.ID}, map[string]any{"name": p.Name, "stock": p.CurrentStock})
	return p, nil
}

// UpdateProduct replaces an existing product's attributes.
func (s *Service) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	p, err := s.normalizeProduct(p)
	if err != nil {
		return Product{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.FindByID(ctx, p.ID); err != nil {
			return err
		}
		return tx.Save(ctx, p)
	})
	if err != nil {
		return Product{}, err
	}
	s.afterCommit(ctx, Mutation{Kind: MutationUpdate, ProductID: p.ID}, map[string]any{"name": p.Name, "stock": p.CurrentStock})
	return p, nil
}

// DeleteProduct removes a product. Its sales remain in the ledger.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.prices.ClearManualDiscount(id)
	s.afterCommit(ctx, Mutation{Kind: MutationDelete, ProductID: id}, nil)
	return nil
}

func (s *Service) normalizeProduct(p Product) (Product, error) {
	if p.ID == "" {
		return Product{}, fmt.Errorf("inventory: product id required: %w", shared.ErrInvalidArgument)
	}
	if !p.Category.Valid() {
		return Product{}, fmt.Errorf("inventory: unknown category %q: %w", p.Category, shared.ErrInvalidArgument)
	}
	if err := s.validate.Struct(p); err != nil {
		return Product{}, fmt.Errorf("inventory: %v: %w", err, shared.ErrInvalidArgument)
	}
	if p.ExpiryDate != nil {
		d := clock.Truncate(*p.ExpiryDate)
		p.ExpiryDate = &d
	}
	return p, nil
}

func (s *Service) afterCommit(ctx context.Context, m Mutation, meta map[string]any) {
	if s.observer != nil {
		s.observer.ObserveMutation(m)
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("analytics cache invalidation failed", slog.String("product_id", m.ProductID), slog.Any("error", err))
		}
	}
	if s.audit != nil {
		log := shared.AuditLog{
			Action:   "product." + string(m.Kind),
			Entity:   "product",
			EntityID: m.ProductID,
			Meta:     meta,
		}
		if err := s.audit.Record(ctx, log); err != nil {
			s.logger.Warn("audit record failed", slog.String("product_id", m.ProductID), slog.Int("qty", m.Qty), slog.Any("error", err))
		}
	}
}
