package pricing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// Tier maps a days-left threshold to a discount rate.
type Tier struct {
	MinDaysLeft int
	Rate        float64
}

// Tiers is a step function ordered by descending threshold.
type Tiers []Tier

// DefaultTiers returns the standard expiry discount schedule:
// three or more days 0%, two days 30%, one day 50%, expiry day 70%.
func DefaultTiers() Tiers {
	return Tiers{
		{MinDaysLeft: 3, Rate: 0},
		{MinDaysLeft: 2, Rate: 0.30},
		{MinDaysLeft: 1, Rate: 0.50},
		{MinDaysLeft: 0, Rate: 0.70},
	}
}

// ParseTiers reads a "days:rate" list such as "3:0,2:0.3,1:0.5,0:0.7".
func ParseTiers(raw string) (Tiers, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTiers(), nil
	}
	seen := make(map[int]struct{})
	var tiers Tiers
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		daysStr, rateStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("pricing: tier %q: %w", part, shared.ErrInvalidArgument)
		}
		days, err := strconv.Atoi(strings.TrimSpace(daysStr))
		if err != nil {
			return nil, fmt.Errorf("pricing: tier %q days: %w", part, shared.ErrInvalidArgument)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(rateStr), 64)
		if err != nil || rate < 0 || rate > 1 {
			return nil, fmt.Errorf("pricing: tier %q rate: %w", part, shared.ErrInvalidArgument)
		}
		if _, dup := seen[days]; dup {
			return nil, fmt.Errorf("pricing: duplicate tier %d: %w", days, shared.ErrInvalidArgument)
		}
		seen[days] = struct{}{}
		tiers = append(tiers, Tier{MinDaysLeft: days, Rate: rate})
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("pricing: no tiers: %w", shared.ErrInvalidArgument)
	}
	tiers.normalize()
	return tiers, nil
}

// String renders tiers in the same form ParseTiers accepts.
func (t Tiers) String() string {
	parts := make([]string, 0, len(t))
	for _, tier := range t {
		parts = append(parts, strconv.Itoa(tier.MinDaysLeft)+":"+strconv.FormatFloat(tier.Rate, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (t Tiers) normalize() {
	sort.Slice(t, func(i, j int) bool { return t[i].MinDaysLeft > t[j].MinDaysLeft })
}

// rate picks the largest threshold not above daysLeft. Values below every threshold
// fall through to the lowest tier.
func (t Tiers) rate(daysLeft int) float64 {
	if len(t) == 0 {
		return 0
	}
	for _, tier := range t {
		if daysLeft >= tier.MinDaysLeft {
			return tier.Rate
		}
	}
	return t[len(t)-1].Rate
}
