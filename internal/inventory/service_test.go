package inventory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gksmfly/convenience-store-system/internal/clock"
	"github.com/gksmfly/convenience-store-system/internal/pricing"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

var today = clock.Date(2025, 10, 11)

func dayOffset(n int) *time.Time {
	d := today.AddDate(0, 0, n)
	return &d
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
	err  error
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return a.err
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

type mutationLog []Mutation

func (m *mutationLog) ObserveMutation(mu Mutation) { *m = append(*m, mu) }

func newTestService(t *testing.T, products ...Product) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	for _, p := range products {
		require.NoError(t, repo.Save(context.Background(), p))
	}
	svc := NewService(repo, pricing.NewService(nil), clock.Fixed(today), nil, ServiceConfig{})
	return svc, repo
}

func milk(stock int, expiry *time.Time) Product {
	return Product{ID: "P1", Name: "우유", Category: CategoryDairy, Price: 1500, TargetStock: 10, CurrentStock: stock, ExpiryDate: expiry}
}

func TestStockStatus(t *testing.T) {
	svc, _ := newTestService(t)
	require.Equal(t, StatusOutOfStock, svc.StockStatus(milk(0, nil), 0))
	require.Equal(t, StatusLow, svc.StockStatus(milk(2, nil), 0))
	require.Equal(t, StatusSufficient, svc.StockStatus(milk(3, nil), 0))
	require.Equal(t, StatusLow, svc.StockStatus(milk(3, nil), 0.5))

	zeroTarget := Product{ID: "Z", TargetStock: 0, CurrentStock: 5}
	require.Equal(t, 0.0, StockRate(zeroTarget))
	require.Equal(t, StatusLow, StockStatusOf(zeroTarget, 0.3))
	require.True(t, NeedsReorder(zeroTarget, 0.3))
	require.Equal(t, 0, Shortage(zeroTarget))
	require.Equal(t, 8, Shortage(milk(2, nil)))
}

func TestNeedsReorderAgreesWithStatus(t *testing.T) {
	svc, _ := newTestService(t)
	for stock := 1; stock <= 12; stock++ {
		p := milk(stock, nil)
		require.Equal(t, svc.StockStatus(p, 0.3) == StatusLow, svc.NeedsReorder(p, 0.3), "stock=%d", stock)
	}
}

func TestReorderPoint(t *testing.T) {
	require.Equal(t, 7, ReorderPoint(2.5, 2, 2))
	require.Equal(t, 5, ReorderPoint(1.9, 1, 4))
	require.Equal(t, 3, ReorderPoint(0, 7, 3))
}

func TestDaysLeft(t *testing.T) {
	svc, _ := newTestService(t)
	require.Nil(t, svc.DaysLeft(milk(1, nil)))
	require.Equal(t, 2, *svc.DaysLeft(milk(1, dayOffset(2))))
	require.Equal(t, 0, *svc.DaysLeft(milk(1, dayOffset(0))))
	require.Equal(t, -1, *svc.DaysLeft(milk(1, dayOffset(-1))))
}

func TestExpiringSoon(t *testing.T) {
	svc, _ := newTestService(t)
	products := []Product{
		{ID: "expired", ExpiryDate: dayOffset(-1)},
		{ID: "today", ExpiryDate: dayOffset(0)},
		{ID: "edge", ExpiryDate: dayOffset(3)},
		{ID: "later", ExpiryDate: dayOffset(4)},
		{ID: "none"},
	}
	got := svc.ExpiringSoon(products, 3)
	require.Len(t, got, 2)
	require.Equal(t, "today", got[0].ID)
	require.Equal(t, "edge", got[1].ID)
}

func TestReceive(t *testing.T) {
	svc, repo := newTestService(t, milk(5, nil))
	ctx := context.Background()

	p, err := svc.Receive(ctx, "P1", 4)
	require.NoError(t, err)
	require.Equal(t, 9, p.CurrentStock)
	stored, _ := repo.FindByID(ctx, "P1")
	require.Equal(t, 9, stored.CurrentStock)

	_, err = svc.Receive(ctx, "P1", 0)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.Receive(ctx, "NOPE", 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Receive(ctx, "NOPE", -1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReceiveRejectsStockOverflow(t *testing.T) {
	svc, repo := newTestService(t, milk(5, nil))
	ctx := context.Background()

	_, err := svc.Receive(ctx, "P1", math.MaxInt)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.Receive(ctx, "P1", MaxStock-4)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	stored, _ := repo.FindByID(ctx, "P1")
	require.Equal(t, 5, stored.CurrentStock)

	p, err := svc.Receive(ctx, "P1", MaxStock-5)
	require.NoError(t, err)
	require.Equal(t, MaxStock, p.CurrentStock)
}

func TestSellAppliesExpiryDiscount(t *testing.T) {
	svc, repo := newTestService(t, milk(5, dayOffset(2)))
	ctx := context.Background()

	sale, err := svc.Sell(ctx, "P1", 2)
	require.NoError(t, err)
	require.Equal(t, Sale{ProductID: "P1", Qty: 2, PriceAtSale: 1050, Timestamp: today}, sale)

	p, _ := repo.FindByID(ctx, "P1")
	require.Equal(t, 3, p.CurrentStock)
	sales, _ := repo.All(ctx)
	require.Equal(t, []Sale{sale}, sales)
}

func TestSellManualOverrideWins(t *testing.T) {
	svc, _ := newTestService(t, milk(5, dayOffset(0)))
	require.NoError(t, svc.Pricing().SetManualDiscount("P1", 10))

	sale, err := svc.Sell(context.Background(), "P1", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1350), sale.PriceAtSale)
}

func TestSellFailuresLeaveNoTrace(t *testing.T) {
	svc, repo := newTestService(t, milk(3, nil))
	ctx := context.Background()

	_, err := svc.Sell(ctx, "P1", 4)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	_, err = svc.Sell(ctx, "P1", 0)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.Sell(ctx, "NOPE", 1)
	require.ErrorIs(t, err, shared.ErrNotFound)

	p, _ := repo.FindByID(ctx, "P1")
	require.Equal(t, 3, p.CurrentStock)
	sales, _ := repo.All(ctx)
	require.Empty(t, sales)

	_, err = svc.Sell(ctx, "P1", 3)
	require.NoError(t, err)
	p, _ = repo.FindByID(ctx, "P1")
	require.Equal(t, 0, p.CurrentStock)
}

func TestDisposeRecordsNoSale(t *testing.T) {
	svc, repo := newTestService(t, milk(4, dayOffset(0)))
	ctx := context.Background()

	p, err := svc.Dispose(ctx, "P1", 4)
	require.NoError(t, err)
	require.Equal(t, 0, p.CurrentStock)
	sales, _ := repo.All(ctx)
	require.Empty(t, sales)

	_, err = svc.Dispose(ctx, "P1", 1)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestStockConservation(t *testing.T) {
	svc, repo := newTestService(t, milk(10, nil))
	ctx := context.Background()

	_, err := svc.Receive(ctx, "P1", 7)
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "P1", 5)
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "P1", 3)
	require.NoError(t, err)
	_, err = svc.Dispose(ctx, "P1", 2)
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "P1", 100)
	require.Error(t, err)

	sales, _ := repo.All(ctx)
	sold := 0
	for _, s := range sales {
		sold += s.Qty
	}
	p, _ := repo.FindByID(ctx, "P1")
	require.Equal(t, 10+7-sold-2, p.CurrentStock)
	require.Equal(t, 7, p.CurrentStock)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	svc, repo := newTestService(t, milk(50, nil))
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Sell(ctx, "P1", 1); err != nil {
				assert.ErrorIs(t, err, shared.ErrInsufficientStock)
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p, _ := repo.FindByID(ctx, "P1")
	sales, _ := repo.All(ctx)
	require.Equal(t, 0, p.CurrentStock)
	require.Len(t, sales, 50)
	require.Equal(t, 30, failures)
}

func TestCatalogOperations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, Product{ID: "B1", Name: "콜라", Category: CategoryBeverage, Price: 1800, TargetStock: 20, CurrentStock: 5, Barcode: "8801094"})
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, Product{ID: "S1", Name: "Honey Chips", Category: CategorySnack, Price: 1500, TargetStock: 10})
	require.NoError(t, err)

	_, err = svc.AddProduct(ctx, Product{ID: "B1", Name: "dup", Category: CategoryBeverage})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.AddProduct(ctx, Product{ID: "X", Name: "bad", Category: "WHATEVER"})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.AddProduct(ctx, Product{ID: "X", Name: "neg", Category: CategoryEtc, Price: -1})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	all, err := svc.AllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "B1", all[0].ID)

	found, err := svc.Search(ctx, "honey")
	require.NoError(t, err)
	require.Len(t, found, 1)
	found, err = svc.Search(ctx, "8801")
	require.NoError(t, err)
	require.Equal(t, "B1", found[0].ID)

	updated, err := svc.UpdateProduct(ctx, Product{ID: "S1", Name: "Honey Chips L", Category: CategorySnack, Price: 2000, TargetStock: 10, CurrentStock: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2000), updated.Price)
	_, err = svc.UpdateProduct(ctx, Product{ID: "NOPE", Name: "x", Category: CategoryEtc})
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.Pricing().SetManualDiscount("B1", 20))
	require.NoError(t, svc.DeleteProduct(ctx, "B1"))
	require.ErrorIs(t, svc.DeleteProduct(ctx, "B1"), shared.ErrNotFound)
	require.ErrorIs(t, svc.Exists(ctx, "B1"), shared.ErrNotFound)
	_, ok := svc.Pricing().ManualDiscountRate("B1")
	require.False(t, ok)
}

func TestDeleteKeepsLedger(t *testing.T) {
	svc, repo := newTestService(t, milk(5, nil))
	ctx := context.Background()
	_, err := svc.Sell(ctx, "P1", 2)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(ctx, "P1"))

	sales, _ := repo.All(ctx)
	require.Len(t, sales, 1)
	require.Equal(t, "P1", sales[0].ProductID)
}

func TestAfterCommitHooks(t *testing.T) {
	svc, _ := newTestService(t, milk(5, nil))
	audit := &recordingAudit{err: errors.New("audit down")}
	cache := &countingCache{}
	var observed mutationLog
	svc.audit = audit
	svc.WithCache(cache).WithObserver(&observed)
	ctx := context.Background()

	_, err := svc.Sell(ctx, "P1", 1)
	require.NoError(t, err, "audit failures never undo a commit")
	_, err = svc.Receive(ctx, "P1", 3)
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "P1", 100)
	require.Error(t, err)

	require.Equal(t, 2, cache.bumps)
	require.Len(t, observed, 2)
	require.Equal(t, MutationSell, observed[0].Kind)
	require.NotNil(t, observed[0].Sale)
	require.Equal(t, MutationReceive, observed[1].Kind)
	require.Len(t, audit.logs, 2)
	require.Equal(t, "product.sell", audit.logs[0].Action)
}
