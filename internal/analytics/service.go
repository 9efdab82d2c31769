// Package analytics computes read models over the sales ledger and the catalog.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gksmfly/convenience-store-system/internal/clock"
	"github.com/gksmfly/convenience-store-system/internal/inventory"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// Ledger reads sales by calendar date.
type Ledger interface {
	ByDateRange(ctx context.Context, from, to time.Time) ([]inventory.Sale, error)
}

// Catalog lists products in insertion order.
type Catalog interface {
	AllProducts(ctx context.Context) ([]inventory.Product, error)
}

// ProductSales aggregates one product over a window.
type ProductSales struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Revenue   int64  `json:"revenue"`
}

// DaySales is the store total for a single day.
type DaySales struct {
	Qty     int   `json:"qty"`
	Revenue int64 `json:"revenue"`
}

// Service coordinates analytics query execution with the cache layer.
type Service struct {
	ledger  Ledger
	catalog Catalog
	clock   clock.Clock
	cache   *Cache
	logger  *slog.Logger
}

// NewService wires the ledger and catalog with an optional Cache.
func NewService(ledger Ledger, catalog Catalog, clk clock.Clock, cache *Cache) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{ledger: ledger, catalog: catalog, clock: clk, cache: cache, logger: slog.Default()}
}

// WithLogger replaces the default logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Today returns the service date.
func (s *Service) Today() time.Time { return s.clock.Today() }

// MaxWindowDays caps every analysis window at roughly ten years.
const MaxWindowDays = 3650

func checkDays(days int) error {
	if days < 1 || days > MaxWindowDays {
		return fmt.Errorf("analytics: window of %d days outside 1..%d: %w", days, MaxWindowDays, shared.ErrInvalidArgument)
	}
	return nil
}

// Window aggregates sales of the last days days, today included, in first-encountered ledger order.
func (s *Service) Window(ctx context.Context, days int) ([]ProductSales, error) {
	if err := checkDays(days); err != nil {
		return nil, err
	}
	today := s.clock.Today()
	var loadErr error
	loader := func(ctx context.Context) (any, error) {
		out, err := s.aggregate(ctx, today, days)
		loadErr = err
		return out, err
	}
	if s.cache == nil {
		return s.aggregate(ctx, today, days)
	}
	key, err := s.cache.BuildKey(ctx, keyWindow(today, days))
	if err == nil {
		var out []ProductSales
		if err = s.cache.FetchJSON(ctx, key, &out, loader); err == nil {
			return out, nil
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}
	s.logger.Warn("analytics cache unavailable", slog.Int("days", days), slog.Any("error", err))
	return s.aggregate(ctx, today, days)
}

func (s *Service) aggregate(ctx context.Context, today time.Time, days int) ([]ProductSales, error) {
	from, to := clock.Window(today, days)
	sales, err := s.ledger.ByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var out []ProductSales
	for _, sale := range sales {
		i, ok := index[sale.ProductID]
		if !ok {
			i = len(out)
			index[sale.ProductID] = i
			out = append(out, ProductSales{ProductID: sale.ProductID})
		}
		out[i].Qty += sale.Qty
		out[i].Revenue += sale.Amount()
	}
	return out, nil
}

// SalesByProduct returns units sold per product.
func (s *Service) SalesByProduct(ctx context.Context, days int) (map[string]int, error) {
	window, err := s.Window(ctx, days)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(window))
	for _, ps := range window {
		out[ps.ProductID] = ps.Qty
	}
	return out, nil
}

// SalesByProductWithRevenue returns units and revenue per product.
func (s *Service) SalesByProductWithRevenue(ctx context.Context, days int) (map[string]ProductSales, error) {
	window, err := s.Window(ctx, days)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ProductSales, len(window))
	for _, ps := range window {
		out[ps.ProductID] = ps
	}
	return out, nil
}

// RevenueByProduct returns revenue per product.
func (s *Service) RevenueByProduct(ctx context.Context, days int) (map[string]int64, error) {
	window, err := s.Window(ctx, days)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(window))
	for _, ps := range window {
		out[ps.ProductID] = ps.Revenue
	}
	return out, nil
}

// TodaySales totals units and revenue for today.
func (s *Service) TodaySales(ctx context.Context) (DaySales, error) {
	window, err := s.Window(ctx, 1)
	if err != nil {
		return DaySales{}, err
	}
	var total DaySales
	for _, ps := range window {
		total.Qty += ps.Qty
		total.Revenue += ps.Revenue
	}
	return total, nil
}

// TopN returns the n best sellers by units. Ties keep first-encountered order.
func (s *Service) TopN(ctx context.Context, n, days int) ([]ProductSales, error) {
	return s.top(ctx, n, days, func(a, b ProductSales) bool { return a.Qty > b.Qty })
}

// TopNByRevenue returns the n best sellers by revenue. Ties keep first-encountered order.
func (s *Service) TopNByRevenue(ctx context.Context, n, days int) ([]ProductSales, error) {
	return s.top(ctx, n, days, func(a, b ProductSales) bool { return a.Revenue > b.Revenue })
}

func (s *Service) top(ctx context.Context, n, days int, less func(a, b ProductSales) bool) ([]ProductSales, error) {
	if n < 0 {
		return nil, fmt.Errorf("analytics: top %d: %w", n, shared.ErrInvalidArgument)
	}
	window, err := s.Window(ctx, days)
	if err != nil {
		return nil, err
	}
	ranked := append([]ProductSales(nil), window...)
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// AverageDailySales is units sold over the window divided by its length.
func (s *Service) AverageDailySales(ctx context.Context, productID string, days int) (float64, error) {
	sold, err := s.SalesByProduct(ctx, days)
	if err != nil {
		return 0, err
	}
	return float64(sold[productID]) / float64(days), nil
}
