package analytics

import (
	"context"
	"math"
	"sort"
)

// Rotation is units sold relative to what is left on the shelf.
type Rotation struct {
	ProductID string  `json:"product_id"`
	SoldQty   int     `json:"sold_qty"`
	RatePct   float64 `json:"rate_pct"`
}

// Excess is stock held above target.
type Excess struct {
	ProductID string `json:"product_id"`
	OverQty   int    `json:"over_qty"`
}

// Class is an ABC revenue class.
type Class string

const (
	ClassA Class = "A"
	ClassB Class = "B"
	ClassC Class = "C"
)

// ABC share limits in percent of window revenue.
const (
	classALimitPct = 80
	classBLimitPct = 95
)

// RotationRates covers every catalog product, sorted by rate descending.
// The denominator is current stock, floored at one.
func (s *Service) RotationRates(ctx context.Context, days int) ([]Rotation, error) {
	sold, err := s.SalesByProduct(ctx, days)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Rotation, 0, len(products))
	for _, p := range products {
		qty := sold[p.ID]
		out = append(out, Rotation{
			ProductID: p.ID,
			SoldQty:   qty,
			RatePct:   float64(qty) / float64(max(p.CurrentStock, 1)) * 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RatePct > out[j].RatePct })
	return out, nil
}

// ExcessInventory lists products whose stock exceeds target, largest surplus first.
func (s *Service) ExcessInventory(ctx context.Context) ([]Excess, error) {
	products, err := s.catalog.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	var out []Excess
	for _, p := range products {
		if p.CurrentStock > p.TargetStock {
			out = append(out, Excess{ProductID: p.ID, OverQty: p.CurrentStock - p.TargetStock})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OverQty > out[j].OverQty })
	return out, nil
}

// DeadStock lists catalog products with no sales in the window, in catalog order.
func (s *Service) DeadStock(ctx context.Context, days int) ([]string, error) {
	sold, err := s.SalesByProduct(ctx, days)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range products {
		if sold[p.ID] == 0 {
			out = append(out, p.ID)
		}
	}
	return out, nil
}

// ABC classifies products by cumulative revenue share. Unsold catalog products are C.
func (s *Service) ABC(ctx context.Context, days int) (map[string]Class, error) {
	ranked, err := s.TopNByRevenue(ctx, math.MaxInt, days)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.AllProducts(ctx)
	if err != nil {
		return nil, err
	}

	var grand int64
	for _, ps := range ranked {
		grand += ps.Revenue
	}
	grand = max(grand, 1)

	out := make(map[string]Class, len(products)+len(ranked))
	var acc int64
	for _, ps := range ranked {
		acc += ps.Revenue
		switch {
		case acc*100 <= grand*classALimitPct:
			out[ps.ProductID] = ClassA
		case acc*100 <= grand*classBLimitPct:
			out[ps.ProductID] = ClassB
		default:
			out[ps.ProductID] = ClassC
		}
	}
	for _, p := range products {
		if _, ok := out[p.ID]; !ok {
			out[p.ID] = ClassC
		}
	}
	return out, nil
}
