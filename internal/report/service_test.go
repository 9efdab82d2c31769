package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gksmfly/convenience-store-system/internal/analytics"
	"github.com/gksmfly/convenience-store-system/internal/clock"
	"github.com/gksmfly/convenience-store-system/internal/inventory"
	"github.com/gksmfly/convenience-store-system/internal/pricing"
)

var today = clock.Date(2025, 10, 11)

func in(days int) *time.Time {
	d := today.AddDate(0, 0, days)
	return &d
}

func newTestReport(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	repo := inventory.NewMemoryRepository()
	inv := inventory.NewService(repo, pricing.NewService(nil), clock.Fixed(today), nil, inventory.ServiceConfig{})
	for _, p := range []inventory.Product{
		{ID: "P1", Name: "우유", Category: inventory.CategoryDairy, Price: 1500, TargetStock: 10, CurrentStock: 2, ExpiryDate: in(1)},
		{ID: "P2", Name: "콜라", Category: inventory.CategoryBeverage, Price: 1800, TargetStock: 10, CurrentStock: 10},
		{ID: "P3", Name: "삼각김밥", Category: inventory.CategoryConvenienceMeal, Price: 1200, TargetStock: 5, CurrentStock: 12, ExpiryDate: in(2)},
		{ID: "P4", Name: "과자", Category: inventory.CategorySnack, Price: 1000, TargetStock: 10, CurrentStock: 0},
	} {
		_, err := inv.AddProduct(ctx, p)
		require.NoError(t, err)
	}
	_, err := inv.Sell(ctx, "P2", 3)
	require.NoError(t, err)
	_, err = inv.Sell(ctx, "P3", 2)
	require.NoError(t, err)
	require.NoError(t, inv.Pricing().SetManualDiscount("P2", 10))

	analysis := analytics.NewService(repo, inv, clock.Fixed(today), nil)
	return NewService(inv, analysis, Config{SafetyStock: 5})
}

func TestMoneyFormatting(t *testing.T) {
	require.Equal(t, "₩0", Won(0))
	require.Equal(t, "₩1,800", Won(1800))
	require.Equal(t, "₩1,234,567", Won(1234567))
	require.Equal(t, "30%", Percent(0.3))
	require.Equal(t, "29%", Percent(0.29))
	require.Equal(t, "D-0", DayLabel(0))
	require.Equal(t, "D+2", DayLabel(-2))
}

func TestEmptySectionRendersPlaceholder(t *testing.T) {
	require.Equal(t, "제목\n- 없음", Section{Title: "제목"}.String())
	require.Equal(t, "제목\na\nb", Section{Title: "제목", Lines: []string{"a", "b"}}.String())
}

func TestStockAlerts(t *testing.T) {
	svc := newTestReport(t)
	sec, err := svc.StockAlerts(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "⚠️  긴급 재고 알림(< 30%)", sec.Title)
	require.Equal(t, []string{
		"- 우유 (2/10 → 20.0%) → LOW / 부족 8개",
		"- 과자 (0/10 → 0.0%) → OUT_OF_STOCK / 부족 10개",
	}, sec.Lines)
}

func TestExpiringSoonMatchesSalePrice(t *testing.T) {
	svc := newTestReport(t)
	sec, err := svc.ExpiringSoon(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, []string{
		"- 우유: 2025-10-12 (D-1) → 할인 50% (₩1,500 → ₩750)",
		"- 삼각김밥: 2025-10-13 (D-2) → 할인 30% (₩1,200 → ₩840)",
	}, sec.Lines)

	alerts, err := svc.ExpiryAlerts(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"- 우유: D-1 → ₩750"}, alerts.Lines)
}

func TestManualDiscounts(t *testing.T) {
	svc := newTestReport(t)
	sec, err := svc.ManualDiscounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"- 콜라: 수동 할인 10% (₩1,800 → ₩1,620)"}, sec.Lines)
}

func TestBestSellersAndToday(t *testing.T) {
	svc := newTestReport(t)
	ctx := context.Background()

	best, err := svc.BestSellers(ctx, 5, 7)
	require.NoError(t, err)
	require.Equal(t, "📈 최근 7일 베스트셀러 TOP 5", best.Title)
	require.Equal(t, []string{
		"1위: 콜라 (3개, 매출 ₩5,400)",
		"2위: 삼각김밥 (2개, 매출 ₩1,680)",
	}, best.Lines)

	today, err := svc.TodaySummary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "💰 오늘 총 매출: ₩7,080 (총 5개 판매)", today.Title)
	require.Equal(t, []string{"  - 품목별 상위 1", "    1위: 콜라 (3개, 매출 ₩5,400)"}, today.Lines)
}

func TestManagementInsights(t *testing.T) {
	svc := newTestReport(t)
	sec, err := svc.ManagementInsights(context.Background(), 7, 0.3)
	require.NoError(t, err)
	require.Equal(t, []string{
		"- 재고 회전율 최고: 콜라 (재고 7개, 7일 판매 3개 → 42.9% 회전)",
		"- 재고 회전율 최저: 과자 (재고 0개, 7일 판매 0개 → 0.0% 회전)",
		"- 재고 과다 품목: 삼각김밥 (5개)",
		"- 발주 권장: 총 2개 품목, 18개 수량",
	}, sec.Lines)
}

func TestOperationsSummary(t *testing.T) {
	svc := newTestReport(t)
	sec, err := svc.OperationsSummary(context.Background(), 3, 0.3)
	require.NoError(t, err)
	require.Equal(t, []string{
		"- 전체 등록 상품: 4종",
		"- 현재 총 재고: 19개",
		"- 현재 재고가치: ₩27,600",
		"- 재고 부족 상품: 2종 (30% 미만)",
		"- 유통기한 임박: 2종 (3일 이내)",
		"- 오늘 총 판매: 5개, 매출 ₩7,080",
	}, sec.Lines)
}

func TestReorderSuggestions(t *testing.T) {
	svc := newTestReport(t)
	sec, err := svc.ReorderSuggestions(context.Background(), 7, 2, 5)
	require.NoError(t, err)
	require.Equal(t, []string{
		"- 우유: ROP=5, 현재=2 → 발주 8개",
		"- 과자: ROP=5, 현재=0 → 발주 10개",
	}, sec.Lines)
}

func TestDashboardOrder(t *testing.T) {
	svc := newTestReport(t)
	out, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "=== 편의점 스마트 재고 관리 시스템 ===\n기준일: 2025-10-11\n"))

	markers := []string{"긴급 재고 알림", "유통기한 임박 목록", "할인 등록 상품", "베스트셀러", "오늘 총 매출", "경영 분석", "종합 운영 현황"}
	last := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		require.Greater(t, idx, last, m)
		last = idx
	}
	require.NotContains(t, out, "발주 제안")

	again, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestSectionLookup(t *testing.T) {
	svc := newTestReport(t)
	for _, key := range Sections {
		sec, err := svc.Section(context.Background(), key)
		require.NoError(t, err, key)
		require.Equal(t, key, sec.Key)
	}
	_, err := svc.Section(context.Background(), "nope")
	require.Error(t, err)
}
