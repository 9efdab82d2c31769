// Package pricing owns the expiry discount policy and manual discount overrides.
package pricing

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// Service computes discount rates and discounted prices.
type Service struct {
	tiers Tiers

	mu     sync.RWMutex
	manual map[string]float64
}

// NewService builds a Service. Nil or empty tiers fall back to DefaultTiers.
func NewService(tiers Tiers) *Service {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	cp := append(Tiers(nil), tiers...)
	cp.normalize()
	return &Service{tiers: cp, manual: make(map[string]float64)}
}

// Tiers returns the configured schedule.
func (s *Service) Tiers() Tiers {
	return append(Tiers(nil), s.tiers...)
}

// RateByDaysLeft returns the date-derived rate. A nil daysLeft means the product is not
// expiry managed and is never discounted.
func (s *Service) RateByDaysLeft(daysLeft *int) float64 {
	if daysLeft == nil {
		return 0
	}
	return s.tiers.rate(*daysLeft)
}

// SetManualDiscount stores an override of percent/100 for the product.
func (s *Service) SetManualDiscount(productID string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("pricing: discount percent %d out of range 0..100: %w", percent, shared.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual[productID] = float64(percent) / 100
	return nil
}

// ClearManualDiscount removes an override if present.
func (s *Service) ClearManualDiscount(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.manual, productID)
}

// ManualDiscountRate returns the override for a product.
func (s *Service) ManualDiscountRate(productID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.manual[productID]
	return rate, ok
}

// ManualDiscounts returns a snapshot of every override.
func (s *Service) ManualDiscounts() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.manual))
	for id, rate := range s.manual {
		out[id] = rate
	}
	return out
}

// CurrentDiscountRate applies the override first, then the expiry schedule.
func (s *Service) CurrentDiscountRate(productID string, daysLeft *int) float64 {
	if rate, ok := s.ManualDiscountRate(productID); ok {
		return rate
	}
	return s.RateByDaysLeft(daysLeft)
}

// FinalPrice returns floor(price * (1 - rate)), never negative.
func FinalPrice(price int64, rate float64) int64 {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(rate))
	out := decimal.NewFromInt(price).Mul(factor).Floor()
	if out.IsNegative() {
		return 0
	}
	return out.IntPart()
}

// FinalPrice is the method form used by callers holding a Service.
func (s *Service) FinalPrice(price int64, rate float64) int64 {
	return FinalPrice(price, rate)
}
