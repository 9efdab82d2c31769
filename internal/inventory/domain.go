package inventory

import (
	"strings"
	"time"
)

// DefaultStockThreshold is the stock rate below which a product counts as low.
const DefaultStockThreshold = 0.30

// DefaultExpiryWarnDays is the look-ahead window for expiry warnings.
const DefaultExpiryWarnDays = 3

// Product is a mutable inventory record.
type Product struct {
	ID           string     `json:"id"`
	Name         string     `json:"name" validate:"required"`
	Category     Category   `json:"category" validate:"required"`
	Price        int64      `json:"price" validate:"gte=0"`
	TargetStock  int        `json:"target_stock" validate:"gte=0,lte=2147483647"`
	CurrentStock int        `json:"current_stock" validate:"gte=0,lte=2147483647"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	Barcode      string     `json:"barcode,omitempty"`
}

// Matches reports whether keyword appears in the id, name or barcode, ignoring case.
func (p Product) Matches(keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.ID), keyword) ||
		strings.Contains(strings.ToLower(p.Name), keyword) ||
		(p.Barcode != "" && strings.Contains(strings.ToLower(p.Barcode), keyword))
}

// Sale is an immutable ledger entry.
type Sale struct {
	ProductID   string    `json:"product_id"`
	Qty         int       `json:"qty"`
	PriceAtSale int64     `json:"price_at_sale"`
	Timestamp   time.Time `json:"date"`
}

// Amount is qty times the charged unit price.
func (s Sale) Amount() int64 {
	return int64(s.Qty) * s.PriceAtSale
}

// StockStatus is derived from current and target stock.
type StockStatus string

const (
	// StatusOutOfStock means nothing on the shelf.
	StatusOutOfStock StockStatus = "OUT_OF_STOCK"
	// StatusLow means the stock rate fell below the threshold.
	StatusLow StockStatus = "LOW"
	// StatusSufficient is everything else.
	StatusSufficient StockStatus = "SUFFICIENT"
)

// Label returns the operator facing name.
func (s StockStatus) Label() string {
	switch s {
	case StatusOutOfStock:
		return "품절"
	case StatusLow:
		return "부족"
	default:
		return "충분"
	}
}

// MutationKind names a committed stock change.
type MutationKind string

const (
	MutationReceive MutationKind = "receive"
	MutationSell    MutationKind = "sell"
	MutationDispose MutationKind = "dispose"
	MutationCreate  MutationKind = "create"
	MutationUpdate  MutationKind = "update"
	MutationDelete  MutationKind = "delete"
)

// Mutation describes a committed change, delivered to observers after commit.
type Mutation struct {
	Kind      MutationKind
	ProductID string
	Qty       int
	Sale      *Sale
}
