// Package report renders operator facing text sections from inventory, pricing and analytics data.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gksmfly/convenience-store-system/internal/analytics"
	"github.com/gksmfly/convenience-store-system/internal/inventory"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// Config holds section defaults.
type Config struct {
	StoreName      string
	StockThreshold float64
	ExpiryWarnDays int
	WindowDays     int
	TopN           int
	LeadDays       int
	SafetyStock    int
}

func (c Config) withDefaults() Config {
	if c.StoreName == "" {
		c.StoreName = "편의점 스마트 재고 관리 시스템"
	}
	if c.StockThreshold <= 0 {
		c.StockThreshold = inventory.DefaultStockThreshold
	}
	if c.ExpiryWarnDays <= 0 {
		c.ExpiryWarnDays = inventory.DefaultExpiryWarnDays
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 7
	}
	if c.TopN <= 0 {
		c.TopN = 5
	}
	if c.LeadDays <= 0 {
		c.LeadDays = 2
	}
	if c.SafetyStock < 0 {
		c.SafetyStock = 0
	}
	return c
}

// Section is one titled block of report lines.
type Section struct {
	Key   string   `json:"key"`
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// String renders the title followed by one line per entry, or "- 없음" when empty.
func (s Section) String() string {
	var b strings.Builder
	b.WriteString(s.Title)
	if len(s.Lines) == 0 {
		b.WriteString("\n- 없음")
	}
	for _, line := range s.Lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

// Service assembles report sections. It never computes prices or totals itself.
type Service struct {
	inv      *inventory.Service
	analysis *analytics.Service
	cfg      Config
}

// NewService constructs the report service.
func NewService(inv *inventory.Service, analysis *analytics.Service, cfg Config) *Service {
	return &Service{inv: inv, analysis: analysis, cfg: cfg.withDefaults()}
}

// Config returns the effective section defaults.
func (s *Service) Config() Config { return s.cfg }

// StockAlerts lists products that are out of stock or below threshold.
func (s *Service) StockAlerts(ctx context.Context, threshold float64) (Section, error) {
	if threshold <= 0 {
		threshold = s.cfg.StockThreshold
	}
	products, err := s.inv.AllProducts(ctx)
	if err != nil {
		return Section{}, err
	}
	sec := Section{Key: "stock-alerts", Title: fmt.Sprintf("⚠️  긴급 재고 알림(< %s)", Percent(threshold))}
	for _, p := range products {
		st := s.inv.StockStatus(p, threshold)
		if st == inventory.StatusSufficient {
			continue
		}
		sec.Lines = append(sec.Lines, fmt.Sprintf("- %s (%d/%d → %.1f%%) → %s / 부족 %d개",
			p.Name, p.CurrentStock, p.TargetStock, inventory.StockRate(p)*100, st, inventory.Shortage(p)))
	}
	return sec, nil
}

// ExpiryAlerts lists the top expiry-managed products by fewest days left, expired ones included.
func (s *Service) ExpiryAlerts(ctx context.Context, top int) (Section, error) {
	if top <= 0 {
		top = s.cfg.TopN
	}
	products, err := s.inv.AllProducts(ctx)
	if err != nil {
		return Section{}, err
	}
	type dated struct {
		p    inventory.Product
		left int
	}
	var rows []dated
	for _, p := range products {
		if d := s.inv.DaysLeft(p); d != nil {
			rows = append(rows, dated{p: p, left: *d})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].left < rows[j].left })
	if len(rows) > top {
		rows = rows[:top]
	}
	sec := Section{Key: "expiry-alerts", Title: fmt.Sprintf("⏳ 유통기한 임박(상위 %d)", top)}
	for _, row := range rows {
		_, price := s.inv.CurrentPrice(row.p)
		sec.Lines = append(sec.Lines, fmt.Sprintf("- %s: %s → %s", row.p.Name, DayLabel(row.left), Won(price)))
	}
	return sec, nil
}

// ExpiringSoon previews the discount each product within warnDays would sell at today.
func (s *Service) ExpiringSoon(ctx context.Context, warnDays int) (Section, error) {
	if warnDays <= 0 {
		warnDays = s.cfg.ExpiryWarnDays
	}
	products, err := s.inv.AllProducts(ctx)
	if err != nil {
		return Section{}, err
	}
	sec := Section{Key: "expiring-soon", Title: fmt.Sprintf("⏳ 유통기한 임박 목록(D≤%d)", warnDays)}
	for _, p := range s.inv.ExpiringSoon(products, warnDays) {
		left := *s.inv.DaysLeft(p)
		rate, price := s.inv.CurrentPrice(p)
		sec.Lines = append(sec.Lines, fmt.Sprintf("- %s: %s (%s) → 할인 %s (%s → %s)",
			p.Name, p.ExpiryDate.Format(time.DateOnly), DayLabel(left), Percent(rate), Won(p.Price), Won(price)))
	}
	return sec, nil
}

// ManualDiscounts lists catalog products carrying an override, in catalog order.
func (s *Service) ManualDiscounts(ctx context.Context) (Section, error) {
	products, err := s.inv.AllProducts(ctx)
	if err != nil {
		return Section{}, err
	}
	prices := s.inv.Pricing()
	sec := Section{Key: "manual-discounts", Title: "🈹 할인 등록 상품"}
	for _, p := range products {
		rate, ok := prices.ManualDiscountRate(p.ID)
		if !ok {
			continue
		}
		sec.Lines = append(sec.Lines, fmt.Sprintf("- %s: 수동 할인 %s (%s → %s)",
			p.Name, Percent(rate), Won(p.Price), Won(prices.FinalPrice(p.Price, rate))))
	}
	return sec, nil
}

// BestSellers ranks the top n products by revenue over the window.
func (s *Service) BestSellers(ctx context.Context, n, days int) (Section, error) {
	n, days = s.orDefault(n, days)
	top, err := s.analysis.TopNByRevenue(ctx, n, days)
	if err != nil {
		return Section{}, err
	}
	names, err := s.names(ctx)
	if err != nil {
		return Section{}, err
	}
	sec := Section{Key: "best-sellers", Title: fmt.Sprintf("📈 최근 %d일 베스트셀러 TOP %d", days, n)}
	for i, ps := range top {
		sec.Lines = append(sec.Lines, fmt.Sprintf("%d위: %s (%d개, 매출 %s)", i+1, nameOf(names, ps.ProductID), ps.Qty, Won(ps.Revenue)))
	}
	return sec, nil
}

// TodaySummary totals today's sales and lists the top products by revenue.
func (s *Service) TodaySummary(ctx context.Context, top int) (Section, error) {
	if top <= 0 {
		top = s.cfg.TopN
	}
	total, err := s.analysis.TodaySales(ctx)
	if err != nil {
		return Section{}, err
	}
	ranked, err := s.analysis.TopNByRevenue(ctx, top, 1)
	if err != nil {
		return Section{}, err
	}
	names, err := s.names(ctx)
	if err != nil {
		return Section{}, err
	}
	sec := Section{Key: "today", Title: fmt.Sprintf("💰 오늘 총 매출: %s (총 %d개 판매)", Won(total.Revenue), total.Qty)}
	if len(ranked) == 0 {
		sec.Lines = append(sec.Lines, "  - 품목별 매출 데이터 없음")
		return sec, nil
	}
	sec.Lines = append(sec.Lines, fmt.Sprintf("  - 품목별 상위 %d", top))
	for i, ps := range ranked {
		sec.Lines = append(sec.Lines, fmt.Sprintf("    %d위: %s (%d개, 매출 %s)", i+1, nameOf(names, ps.ProductID), ps.Qty, Won(ps.Revenue)))
	}
	return sec, nil
}

// ManagementInsights reports turnover extremes, excess stock and reorder needs.
func (s *Service) ManagementInsights(ctx context.Context, days int, threshold float64) (Section, error) {
	_, days = s.orDefault(0, days)
	if threshold <= 0 {
		threshold = s.cfg.StockThreshold
	}
	rotations, err := s.analysis.RotationRates(ctx, days)
	if err != nil {
		return Section{}, err
	}
	excess, err := s.analysis.ExcessInventory(ctx)
	if err != nil {
		return Section{}, err
	}
	products, err := s.inv.AllProducts(ctx)
	if err != nil {
		return Section{}, err
	}
	byID := make(map[string]inventory.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	sec := Section{Key: "insights", Title: "📊 경영 분석 리포트"}
	if len(rotations) > 0 {
		hi := rotations[0]
		p := byID[hi.ProductID]
		sec.Lines = append(sec.Lines,
			fmt.Sprintf("- 재고 회전율 최고: %s (재고 %d개, %d일 판매 %d개 → %.1f%% 회전)", p.Name, p.CurrentStock, days, hi.SoldQty, hi.RatePct),
		)
		lo := rotations[len(rotations)-1]
		p = byID[lo.ProductID]
		sec.Lines = append(sec.Lines,
			fmt.Sprintf("- 재고 회전율 최저: %s (재고 %d개, %d일 판매 %d개 → %.1f%% 회전)", p.Name, p.CurrentStock, days, lo.SoldQty, lo.RatePct),
		)
	}
	if len(excess) == 0 {
		sec.Lines = append(sec.Lines, "- 재고 과다 품목: 없음")
	} else {
		names := nameMap(byID)
		parts := make([]string, 0, 2)
		for _, e := range excess[:min(2, len(excess))] {
			parts = append(parts, fmt.Sprintf("%s (%d개)", nameOf(names, e.ProductID), e.OverQty))
		}
		sec.Lines = append(sec.Lines, "- 재고 과다 품목: "+strings.Join(parts, ", "))
	}
	count, qty := 0, 0
	for _, p := range products {
		if s.inv.NeedsReorder(p, threshold) {
			count++
			qty += max(inventory.Shortage(p), 1)
		}
	}
	sec.Lines = append(sec.Lines, fmt.Sprintf("- 발주 권장: 총 %d개 품목, %d개 수량", count, qty))
	return sec, nil
}

// OperationsSummary reports catalog, stock value and today's totals.
func (s *Service) OperationsSummary(ctx context.Context, warnDays int, threshold float64) (Section, error) {
	if warnDays <= 0 {
		warnDays = s.cfg.ExpiryWarnDays
	}
	if threshold <= 0 {
		threshold = s.cfg.StockThreshold
	}
	products, err := s.inv.AllProducts(ctx)
	if err != nil {
		return Section{}, err
	}
	today, err := s.analysis.TodaySales(ctx)
	if err != nil {
		return Section{}, err
	}
	var stock int
	var value int64
	low := 0
	for _, p := range products {
		stock += p.CurrentStock
		value += p.Price * int64(p.CurrentStock)
		if s.inv.NeedsReorder(p, threshold) {
			low++
		}
	}
	expiring := len(s.inv.ExpiringSoon(products, warnDays))
	return Section{
		Key:   "operations",
		Title: "🧾 종합 운영 현황",
		Lines: []string{
			fmt.Sprintf("- 전체 등록 상품: %d종", len(products)),
			fmt.Sprintf("- 현재 총 재고: %d개", stock),
			fmt.Sprintf("- 현재 재고가치: %s", Won(value)),
			fmt.Sprintf("- 재고 부족 상품: %d종 (%s 미만)", low, Percent(threshold)),
			fmt.Sprintf("- 유통기한 임박: %d종 (%d일 이내)", expiring, warnDays),
			fmt.Sprintf("- 오늘 총 판매: %d개, 매출 %s", today.Qty, Won(today.Revenue)),
		},
	}, nil
}

// ReorderSuggestions lists products at or below their reorder point.
func (s *Service) ReorderSuggestions(ctx context.Context, days, leadDays, safety int) (Section, error) {
	_, days = s.orDefault(0, days)
	if leadDays <= 0 {
		leadDays = s.cfg.LeadDays
	}
	if safety < 0 {
		safety = s.cfg.SafetyStock
	}
	products, err := s.inv.AllProducts(ctx)
	if err != nil {
		return Section{}, err
	}
	sec := Section{Key: "reorder", Title: fmt.Sprintf("📦 발주 제안 (최근 %d일, 리드타임 %d일, 안전재고 %d개)", days, leadDays, safety)}
	for _, p := range products {
		avg, err := s.analysis.AverageDailySales(ctx, p.ID, days)
		if err != nil {
			return Section{}, err
		}
		rop := inventory.ReorderPoint(avg, leadDays, safety)
		if p.CurrentStock > rop {
			continue
		}
		sec.Lines = append(sec.Lines, fmt.Sprintf("- %s: ROP=%d, 현재=%d → 발주 %d개", p.Name, rop, p.CurrentStock, inventory.Shortage(p)))
	}
	return sec, nil
}

// Sections lists the keys accepted by Section.
var Sections = []string{
	"stock-alerts",
	"expiry-alerts",
	"expiring-soon",
	"manual-discounts",
	"best-sellers",
	"today",
	"insights",
	"operations",
	"reorder",
}

// Section renders one section by key using configured defaults.
func (s *Service) Section(ctx context.Context, key string) (Section, error) {
	switch key {
	case "stock-alerts":
		return s.StockAlerts(ctx, 0)
	case "expiry-alerts":
		return s.ExpiryAlerts(ctx, 0)
	case "expiring-soon":
		return s.ExpiringSoon(ctx, 0)
	case "manual-discounts":
		return s.ManualDiscounts(ctx)
	case "best-sellers":
		return s.BestSellers(ctx, 0, 0)
	case "today":
		return s.TodaySummary(ctx, 0)
	case "insights":
		return s.ManagementInsights(ctx, 0, 0)
	case "operations":
		return s.OperationsSummary(ctx, 0, 0)
	case "reorder":
		return s.ReorderSuggestions(ctx, 0, 0, s.cfg.SafetyStock)
	default:
		return Section{}, fmt.Errorf("report: section %q: %w", key, shared.ErrNotFound)
	}
}

func (s *Service) orDefault(n, days int) (int, int) {
	if n <= 0 {
		n = s.cfg.TopN
	}
	if days <= 0 {
		days = s.cfg.WindowDays
	}
	return n, days
}

func (s *Service) names(ctx context.Context) (map[string]string, error) {
	products, err := s.inv.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(products))
	for _, p := range products {
		out[p.ID] = p.Name
	}
	return out, nil
}

func nameMap(byID map[string]inventory.Product) map[string]string {
	out := make(map[string]string, len(byID))
	for id, p := range byID {
		out[id] = p.Name
	}
	return out
}

// nameOf falls back to the id for products deleted after they sold.
func nameOf(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}
