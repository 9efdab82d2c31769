package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// MemoryRepository keeps products in insertion order and sales as an append-only slice.
// A single writer lock serializes WithTx units; reads take the read lock.
type MemoryRepository struct {
	mu       sync.RWMutex
	order    []string
	products map[string]Product
	sales    []Sale
}

// NewMemoryRepository constructs an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{products: make(map[string]Product)}
}

// WithTx runs fn while holding the write lock. Writes made by fn are undone if it fails.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// FindAll returns products in insertion order.
func (r *MemoryRepository) FindAll(ctx context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findAll(), nil
}

// FindByID returns a product or shared.ErrNotFound.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findByID(id)
}

// Save inserts or replaces a product.
func (r *MemoryRepository) Save(ctx context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.save(p)
	return nil
}

// Delete removes a product. Ledger entries referencing it are kept.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _, err := r.remove(id)
	return err
}

// Record appends a sale.
func (r *MemoryRepository) Record(ctx context.Context, s Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, s)
	return nil
}

// All returns the full ledger in append order.
func (r *MemoryRepository) All(ctx context.Context) ([]Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Sale(nil), r.sales...), nil
}

// ByDateRange returns sales dated within [from, to] inclusive.
func (r *MemoryRepository) ByDateRange(ctx context.Context, from, to time.Time) ([]Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byDateRange(from, to), nil
}

func (r *MemoryRepository) findAll() []Product {
	out := make([]Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneProduct(r.products[id]))
	}
	return out
}

func (r *MemoryRepository) findByID(id string) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("inventory: product %q: %w", id, shared.ErrNotFound)
	}
	return cloneProduct(p), nil
}

// save returns the previous value, if any.
func (r *MemoryRepository) save(p Product) (Product, bool) {
	prev, existed := r.products[p.ID]
	if !existed {
		r.order = append(r.order, p.ID)
	}
	r.products[p.ID] = cloneProduct(p)
	return prev, existed
}

// remove returns the removed product and its position in the order.
func (r *MemoryRepository) remove(id string) (Product, int, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, -1, fmt.Errorf("inventory: product %q: %w", id, shared.ErrNotFound)
	}
	delete(r.products, id)
	idx := -1
	for i, existing := range r.order {
		if existing == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		r.order = append(r.order[:idx], r.order[idx+1:]...)
	}
	return p, idx, nil
}

func (r *MemoryRepository) insertAt(p Product, idx int) {
	r.products[p.ID] = p
	if idx < 0 || idx > len(r.order) {
		r.order = append(r.order, p.ID)
		return
	}
	r.order = append(r.order, "")
	copy(r.order[idx+1:], r.order[idx:])
	r.order[idx] = p.ID
}

func (r *MemoryRepository) byDateRange(from, to time.Time) []Sale {
	var out []Sale
	for _, s := range r.sales {
		if s.Timestamp.Before(from) || s.Timestamp.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func cloneProduct(p Product) Product {
	if p.ExpiryDate != nil {
		d := *p.ExpiryDate
		p.ExpiryDate = &d
	}
	return p
}

// memoryTx operates on the repository while WithTx holds the write lock.
type memoryTx struct {
	repo *MemoryRepository
	undo []func()
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memoryTx) FindAll(ctx context.Context) ([]Product, error) {
	return tx.repo.findAll(), nil
}

func (tx *memoryTx) FindByID(ctx context.Context, id string) (Product, error) {
	return tx.repo.findByID(id)
}

func (tx *memoryTx) Save(ctx context.Context, p Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := tx.repo
	prev, existed := r.save(p)
	tx.undo = append(tx.undo, func() {
		if existed {
			r.products[prev.ID] = prev
			return
		}
		_, _, _ = r.remove(p.ID)
	})
	return nil
}

func (tx *memoryTx) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := tx.repo
	prev, idx, err := r.remove(id)
	if err != nil {
		return err
	}
	tx.undo = append(tx.undo, func() { r.insertAt(prev, idx) })
	return nil
}

func (tx *memoryTx) Record(ctx context.Context, s Sale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := tx.repo
	n := len(r.sales)
	r.sales = append(r.sales, s)
	tx.undo = append(tx.undo, func() { r.sales = r.sales[:n] })
	return nil
}

func (tx *memoryTx) All(ctx context.Context) ([]Sale, error) {
	return append([]Sale(nil), tx.repo.sales...), nil
}

func (tx *memoryTx) ByDateRange(ctx context.Context, from, to time.Time) ([]Sale, error) {
	return tx.repo.byDateRange(from, to), nil
}
