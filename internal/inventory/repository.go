package inventory

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gksmfly/convenience-store-system/internal/platform/db"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

//go:embed schema.sql
var schemaSQL string

const pgCheckViolation = "23514"

// Repository persists products and the sales ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	pgStore
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, pgStore: pgStore{q: pool}}
}

// EnsureSchema creates the tables if they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("inventory: ensure schema: %w", err)
	}
	return nil
}

// WithTx executes the callback inside a read-committed transaction. Product reads
// inside the callback lock the row until commit, so a waiting unit re-reads the
// committed stock instead of failing on a stale snapshot.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgStore{q: tx, forUpdate: true})
	})
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgStore struct {
	q         querier
	forUpdate bool
}

const productColumns = `id, name, category, price, target_stock, current_stock, expiry_date, barcode`

func (s *pgStore) FindAll(ctx context.Context) ([]Product, error) {
	rows, err := s.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pgStore) FindByID(ctx context.Context, id string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if s.forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("inventory: product %q: %w", id, shared.ErrNotFound)
	}
	return p, err
}

func (s *pgStore) Save(ctx context.Context, p Product) error {
	_, err := s.q.Exec(ctx, `INSERT INTO products (id, name, category, price, target_stock, current_stock, expiry_date, barcode)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    category = EXCLUDED.category,
    price = EXCLUDED.price,
    target_stock = EXCLUDED.target_stock,
    current_stock = EXCLUDED.current_stock,
    expiry_date = EXCLUDED.expiry_date,
    barcode = EXCLUDED.barcode,
    updated_at = NOW()`,
		p.ID, p.Name, string(p.Category), p.Price, p.TargetStock, p.CurrentStock, toPgDate(p.ExpiryDate), p.Barcode)
	return mapPgError(err)
}

func (s *pgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory: product %q: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *pgStore) Record(ctx context.Context, sale Sale) error {
	_, err := s.q.Exec(ctx, `INSERT INTO sales (product_id, qty, price_at_sale, sold_on) VALUES ($1, $2, $3, $4)`,
		sale.ProductID, sale.Qty, sale.PriceAtSale, pgtype.Date{Time: sale.Timestamp, Valid: true})
	return mapPgError(err)
}

func (s *pgStore) All(ctx context.Context) ([]Sale, error) {
	return s.querySales(ctx, `SELECT product_id, qty, price_at_sale, sold_on FROM sales ORDER BY id`)
}

func (s *pgStore) ByDateRange(ctx context.Context, from, to time.Time) ([]Sale, error) {
	return s.querySales(ctx, `SELECT product_id, qty, price_at_sale, sold_on FROM sales
WHERE sold_on BETWEEN $1 AND $2 ORDER BY id`,
		pgtype.Date{Time: from, Valid: true}, pgtype.Date{Time: to, Valid: true})
}

func (s *pgStore) querySales(ctx context.Context, query string, args ...any) ([]Sale, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		var (
			sale   Sale
			soldOn pgtype.Date
		)
		if err := rows.Scan(&sale.ProductID, &sale.Qty, &sale.PriceAtSale, &soldOn); err != nil {
			return nil, err
		}
		sale.Timestamp = soldOn.Time
		out = append(out, sale)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		category string
		expiry   pgtype.Date
	)
	if err := row.Scan(&p.ID, &p.Name, &category, &p.Price, &p.TargetStock, &p.CurrentStock, &expiry, &p.Barcode); err != nil {
		return Product{}, err
	}
	p.Category = Category(category)
	if expiry.Valid {
		d := expiry.Time
		p.ExpiryDate = &d
	}
	return p, nil
}

func toPgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		if pgErr.ConstraintName == "products_current_stock_check" {
			return fmt.Errorf("inventory: %s: %w", pgErr.ConstraintName, shared.ErrInsufficientStock)
		}
		return fmt.Errorf("inventory: %s: %w", pgErr.ConstraintName, shared.ErrInvalidArgument)
	}
	return err
}
