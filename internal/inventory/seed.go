package inventory

import (
	"context"
	"time"
)

// DemoProducts is the starter catalog loaded by Seed.
func DemoProducts() []Product {
	return []Product{
		{ID: "P001", Name: "콜라", Category: CategoryBeverage, Price: 1800, TargetStock: 30, CurrentStock: 10},
		{ID: "P002", Name: "새우깡", Category: CategorySnack, Price: 1500, TargetStock: 30, CurrentStock: 5},
		{ID: "P003", Name: "김치찌개 도시락", Category: CategoryFood, Price: 4800, TargetStock: 20, CurrentStock: 3},
	}
}

// Seed loads the demo catalog and a few historical single-unit sales into an empty
// repository. Seeded sales are ledger history only and do not move stock. A repository
// that already holds products is left untouched.
func Seed(ctx context.Context, repo RepositoryPort, at time.Time) (bool, error) {
	seeded := false
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.FindAll(ctx)
		if err != nil || len(existing) > 0 {
			return err
		}
		for _, p := range DemoProducts() {
			if err := tx.Save(ctx, p); err != nil {
				return err
			}
		}
		history := []struct {
			id    string
			times int
			price int64
		}{
			{"P001", 5, 1800},
			{"P002", 2, 1500},
		}
		for _, h := range history {
			for range h.times {
				if err := tx.Record(ctx, Sale{ProductID: h.id, Qty: 1, PriceAtSale: h.price, Timestamp: at}); err != nil {
					return err
				}
			}
		}
		seeded = true
		return nil
	})
	return seeded, err
}
